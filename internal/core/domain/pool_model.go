package domain

import "fmt"

// Pool identifies the value pool a note lives in.
type Pool int

const (
	// PoolTransparent ...
	PoolTransparent Pool = iota
	// PoolSapling ...
	PoolSapling
	// PoolOrchard ...
	PoolOrchard
)

func (p Pool) String() string {
	switch p {
	case PoolTransparent:
		return "transparent"
	case PoolSapling:
		return "sapling"
	case PoolOrchard:
		return "orchard"
	default:
		return "unknown"
	}
}

// IsShielded reports whether notes in this pool are hidden from chain
// observers.
func (p Pool) IsShielded() bool {
	return p == PoolSapling || p == PoolOrchard
}

// ParsePool maps a pool name to its value.
func ParsePool(s string) (Pool, error) {
	switch s {
	case "transparent":
		return PoolTransparent, nil
	case "sapling":
		return PoolSapling, nil
	case "orchard":
		return PoolOrchard, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidPool, s)
	}
}
