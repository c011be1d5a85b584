package ports

import (
	"context"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

// Prover produces the zero-knowledge proofs of a container's shielded
// bundles. Proving is delegated to an external system and the resulting
// proof bytes are treated as opaque.
type Prover interface {
	CreateProofs(ctx context.Context, p *pczt.Pczt) error
}
