package application

import (
	"sort"

	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/pkg/zip317"
)

// ActionLimits bounds the size of a funded transaction per pool.
type ActionLimits struct {
	MaxTransparentInputs int
	MaxSaplingActions    int
	MaxOrchardActions    int
}

// DefaultActionLimits mirror the default action bound nodes apply to
// unpaid transactions.
var DefaultActionLimits = ActionLimits{
	MaxTransparentInputs: 50,
	MaxSaplingActions:    50,
	MaxOrchardActions:    50,
}

// selection is the outcome of funding a transfer: the notes to spend, the
// fee they carry, and the change they produce.
type selection struct {
	notes      []domain.Note
	fee        uint64
	change     uint64
	changePool domain.Pool
}

// outputShape summarizes the recipient side of a transfer.
type outputShape struct {
	transparentOutputs int
	saplingOutputs     int
	orchardOutputs     int
}

func shapeOfRecipients(recipients []Recipient) (*outputShape, error) {
	shape := &outputShape{}
	for _, r := range recipients {
		pool, err := AddressPool(r.Address)
		if err != nil {
			return nil, err
		}
		switch pool {
		case domain.PoolTransparent:
			shape.transparentOutputs++
		case domain.PoolSapling:
			shape.saplingOutputs++
		case domain.PoolOrchard:
			shape.orchardOutputs++
		}
	}
	return shape, nil
}

// sourcePools returns the pools a transfer may draw from, most private
// first. Pools whose use would disclose more than the policy permits are
// excluded up front, so the selector never proposes a transfer the policy
// check would reject for its funding side.
func sourcePools(shape *outputShape, policy domain.PrivacyPolicy) []domain.Pool {
	pools := make([]domain.Pool, 0, 3)
	if shape.orchardOutputs > 0 {
		pools = append(pools, domain.PoolOrchard)
	}
	if shape.saplingOutputs > 0 {
		pools = append(pools, domain.PoolSapling)
	}
	if policy.AllowsRevealedAmounts() {
		// Crossing pools is permitted: the remaining shielded pools become
		// usable.
		for _, p := range []domain.Pool{domain.PoolOrchard, domain.PoolSapling} {
			if !containsPool(pools, p) {
				pools = append(pools, p)
			}
		}
	}
	if len(pools) == 0 {
		// Purely transparent recipients still prefer shielded funds.
		pools = append(pools, domain.PoolOrchard, domain.PoolSapling)
	}
	if policy.AllowsRevealedSenders() {
		pools = append(pools, domain.PoolTransparent)
	}
	return pools
}

func containsPool(pools []domain.Pool, p domain.Pool) bool {
	for _, candidate := range pools {
		if candidate == p {
			return true
		}
	}
	return false
}

// selectNotes picks notes funding the given recipients under the policy,
// recomputing the fee as inputs accrue. Notes are drawn largest first from
// the most private usable pool.
func selectNotes(
	spendable []domain.Note,
	recipients []Recipient,
	policy domain.PrivacyPolicy,
	limits ActionLimits,
) (*selection, error) {
	outShape, err := shapeOfRecipients(recipients)
	if err != nil {
		return nil, err
	}

	var target uint64
	for _, r := range recipients {
		if r.Amount == 0 {
			return nil, ErrInvalidAmount
		}
		target += r.Amount
	}

	byPool := map[domain.Pool][]domain.Note{}
	for _, n := range spendable {
		byPool[n.Pool] = append(byPool[n.Pool], n)
	}
	for _, notes := range byPool {
		notes := notes
		sort.Slice(notes, func(i, j int) bool {
			return notes[i].Value > notes[j].Value
		})
	}

	pools := sourcePools(outShape, policy)

	var (
		picked []domain.Note
		funded uint64
	)
	for _, pool := range pools {
		for i := range byPool[pool] {
			note := byPool[pool][i]
			picked = append(picked, note)
			funded += note.Value

			fee := feeFor(picked, outShape)
			if funded >= target+fee {
				if err := checkActionLimits(picked, outShape, limits); err != nil {
					return nil, err
				}
				return &selection{
					notes:      picked,
					fee:        fee,
					change:     funded - target - fee,
					changePool: changePool(picked),
				}, nil
			}
		}
	}

	available := uint64(0)
	for _, pool := range pools {
		for _, n := range byPool[pool] {
			available += n.Value
		}
	}
	return nil, &InsufficientFundsError{
		Requested: target + feeFor(picked, outShape),
		Available: available,
	}
}

// feeFor computes the conventional fee of the transaction spending the given
// notes, including the change output the spend will produce.
func feeFor(notes []domain.Note, outShape *outputShape) uint64 {
	saplingOutputs := uint64(outShape.saplingOutputs)
	orchardOutputs := uint64(outShape.orchardOutputs)

	// Change is always a shielded output.
	if changePool(notes) == domain.PoolSapling {
		saplingOutputs++
	} else {
		orchardOutputs++
	}

	orchardSpends := uint64(countPool(notes, domain.PoolOrchard))
	orchardActions := orchardSpends
	if orchardOutputs > orchardActions {
		orchardActions = orchardOutputs
	}

	return zip317.Fee(zip317.TxShape{
		TransparentInputs:  uint64(countPool(notes, domain.PoolTransparent)),
		TransparentOutputs: uint64(outShape.transparentOutputs),
		SaplingSpends:      uint64(countPool(notes, domain.PoolSapling)),
		SaplingOutputs:     saplingOutputs,
		OrchardActions:     orchardActions,
	})
}

func countPool(notes []domain.Note, pool domain.Pool) int {
	count := 0
	for _, n := range notes {
		if n.Pool == pool {
			count++
		}
	}
	return count
}

// changePool returns the pool change is sent to: the most private pool the
// transfer spends from, never transparent.
func changePool(notes []domain.Note) domain.Pool {
	hasSapling := false
	for _, n := range notes {
		switch n.Pool {
		case domain.PoolOrchard:
			return domain.PoolOrchard
		case domain.PoolSapling:
			hasSapling = true
		}
	}
	if hasSapling {
		return domain.PoolSapling
	}
	return domain.PoolOrchard
}

func checkActionLimits(
	notes []domain.Note, outShape *outputShape, limits ActionLimits,
) error {
	tIn := countPool(notes, domain.PoolTransparent)
	if limits.MaxTransparentInputs > 0 && tIn > limits.MaxTransparentInputs {
		return &ActionLimitExceededError{
			Pool:  domain.PoolTransparent,
			Limit: limits.MaxTransparentInputs,
			Count: tIn,
		}
	}

	saplingActions := countPool(notes, domain.PoolSapling) + outShape.saplingOutputs
	if limits.MaxSaplingActions > 0 && saplingActions > limits.MaxSaplingActions {
		return &ActionLimitExceededError{
			Pool:  domain.PoolSapling,
			Limit: limits.MaxSaplingActions,
			Count: saplingActions,
		}
	}

	orchardActions := countPool(notes, domain.PoolOrchard)
	if outs := outShape.orchardOutputs + 1; outs > orchardActions {
		orchardActions = outs
	}
	if limits.MaxOrchardActions > 0 && orchardActions > limits.MaxOrchardActions {
		return &ActionLimitExceededError{
			Pool:  domain.PoolOrchard,
			Limit: limits.MaxOrchardActions,
			Count: orchardActions,
		}
	}
	return nil
}

// transferShape derives the privacy disclosures of a funded transfer for the
// policy check.
func transferShape(
	notes []domain.Note, outShape *outputShape, change uint64, chgPool domain.Pool,
) *domain.TransferShape {
	shape := &domain.TransferShape{
		HasTransparentRecipient: outShape.transparentOutputs > 0,
	}

	seen := map[string]bool{}
	for _, n := range notes {
		switch n.Pool {
		case domain.PoolTransparent:
			if !seen[n.Address] {
				seen[n.Address] = true
				shape.TransparentSpendAddresses = append(
					shape.TransparentSpendAddresses, n.Address,
				)
			}
		case domain.PoolSapling, domain.PoolOrchard:
			if !containsPool(shape.ShieldedSpendPools, n.Pool) {
				shape.ShieldedSpendPools = append(shape.ShieldedSpendPools, n.Pool)
			}
		}
	}

	if outShape.saplingOutputs > 0 {
		shape.ShieldedOutputPools = append(shape.ShieldedOutputPools, domain.PoolSapling)
	}
	if outShape.orchardOutputs > 0 {
		shape.ShieldedOutputPools = append(shape.ShieldedOutputPools, domain.PoolOrchard)
	}
	if change > 0 && !containsPool(shape.ShieldedOutputPools, chgPool) {
		shape.ShieldedOutputPools = append(shape.ShieldedOutputPools, chgPool)
	}

	return shape
}
