// Package ports declares the outbound interfaces the application layer
// depends on. Implementations live under internal/infrastructure.
package ports

import "context"

// ChainTip is the wallet's view of the best chain.
type ChainTip struct {
	Height uint32
	// ConsensusBranchID identifies the network upgrade in force at the
	// tip.
	ConsensusBranchID uint32
}

// ChainSource exposes the subset of a full node the wallet needs.
type ChainSource interface {
	GetChainTip(ctx context.Context) (*ChainTip, error)
	// GetTxConfirmations returns 0 for mempool transactions.
	GetTxConfirmations(ctx context.Context, txid string) (uint32, error)
	// BroadcastTransaction submits a raw transaction and returns its txid.
	BroadcastTransaction(ctx context.Context, rawTx []byte) (string, error)
}
