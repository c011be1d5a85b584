package keys

// Scope classifies the derivation sub-path of an address.
type Scope uint32

const (
	// ScopeExternal marks addresses handed out for receiving funds.
	ScopeExternal Scope = 0
	// ScopeInternal marks change addresses.
	ScopeInternal Scope = 1
	// ScopeEphemeral marks short-lived addresses used for bridging funds
	// between pools.
	ScopeEphemeral Scope = 2
)

func (s Scope) String() string {
	switch s {
	case ScopeExternal:
		return "external"
	case ScopeInternal:
		return "internal"
	case ScopeEphemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// ParseScope maps the wire encoding of a scope back to its value.
func ParseScope(v uint32) (Scope, error) {
	switch Scope(v) {
	case ScopeExternal, ScopeInternal, ScopeEphemeral:
		return Scope(v), nil
	default:
		return 0, ErrInvalidScope
	}
}
