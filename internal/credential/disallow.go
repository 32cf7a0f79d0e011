package credential

import "time"

// DisallowLevel classifies how strongly a scope is disallowed, carried over
// from the original implementation's three-tier severity (SPEC_FULL.md §12):
// routine cooldowns recover on their own, Dead scopes require operator action.
type DisallowLevel int

const (
	DisallowCooldown DisallowLevel = iota
	DisallowTransient
	DisallowDead
)

// Scope is either every model for a credential, or one specific model.
type Scope struct {
	AllModels bool
	Model     string
}

func AllModelsScope() Scope          { return Scope{AllModels: true} }
func ModelScope(model string) Scope { return Scope{Model: model} }

type disallowKey struct {
	CredentialID int64
	Scope        Scope
}

// Entry records one active (or expired) disallow mark.
type Entry struct {
	Level     DisallowLevel
	Until     time.Time // zero means indefinite (only cleared by Dead removal)
	Reason    UnavailableReason
	UpdatedAt time.Time
}

// IsActive reports whether the entry still excludes its scope from selection at now.
func (e Entry) IsActive(now time.Time) bool {
	return e.Until.IsZero() || e.Until.After(now)
}

// levelFor maps a runtime failure reason to its disallow severity: routine
// rate limiting recovers on its own, upstream ambiguity needs a longer look,
// and nothing assigned here escalates to Dead on its own — that is reserved
// for credentials an operator (or startup validation) has ruled invalid.
func levelFor(reason UnavailableReason) DisallowLevel {
	switch reason {
	case ReasonRateLimit, ReasonTimeout, ReasonModelDisallow:
		return DisallowCooldown
	case ReasonUpstream5xx, ReasonAuthInvalid:
		return DisallowTransient
	default:
		return DisallowCooldown
	}
}
