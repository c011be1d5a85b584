package application

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
)

// ZatoshiPerZec is the number of zatoshi in one coin.
const ZatoshiPerZec = 100_000_000

// Recipient is one destination of a transfer.
type Recipient struct {
	Address string
	// Amount is in zatoshi.
	Amount uint64
	Memo   []byte
}

// Balance is the per-pool balance of an account, split by spendability.
type Balance struct {
	Spendable uint64
	// Pending is the value awaiting the confirmation bar.
	Pending uint64
	// Reserved is the value locked by live proposals.
	Reserved uint64
}

// SignResult summarizes one signing pass over a container.
type SignResult struct {
	TransparentSigned int
	SaplingSigned     int
	OrchardSigned     int
	// Unsigned indexes the items this wallet could not sign, per pool.
	// Another party may hold their keys.
	TransparentUnsigned []int
	SaplingUnsigned     []int
	OrchardUnsigned     []int
}

// Total returns the number of signatures contributed in this pass.
func (r *SignResult) Total() int {
	return r.TransparentSigned + r.SaplingSigned + r.OrchardSigned
}

// ZecToZatoshi converts a decimal coin amount to zatoshi. Amounts with more
// than 8 fractional digits are rejected rather than rounded.
func ZecToZatoshi(amount decimal.Decimal) (uint64, error) {
	zats := amount.Mul(decimal.NewFromInt(ZatoshiPerZec))
	if !zats.IsInteger() {
		return 0, fmt.Errorf("%w: %s has sub-zatoshi precision", ErrInvalidAmount, amount)
	}
	if zats.IsNegative() || !zats.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return uint64(zats.IntPart()), nil
}

// ZatoshiToZec converts a zatoshi amount to its decimal coin representation.
func ZatoshiToZec(zats uint64) decimal.Decimal {
	return decimal.New(int64(zats), -8)
}

// AddressPool classifies an address string by the pool it receives into.
func AddressPool(addr string) (domain.Pool, error) {
	switch {
	case strings.HasPrefix(addr, keys.SaplingAddressHRP):
		return domain.PoolSapling, nil
	case strings.HasPrefix(addr, keys.OrchardAddressHRP) ||
		strings.HasPrefix(addr, "u1"):
		return domain.PoolOrchard, nil
	}
	if _, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams); err == nil {
		return domain.PoolTransparent, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
}
