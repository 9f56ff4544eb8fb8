package retry

// Policy bounds automatic repair for a single failure category.
type Policy struct {
	// MaxAttempts is the number of automatic resubmissions allowed per
	// logical request. Zero disables repair for the category.
	MaxAttempts int

	// Exclude reports whether the endpoint at path must never be repaired.
	// Nil excludes nothing.
	Exclude func(path string) bool
}

// Begin cuts a fresh per-request budget from the policy.
func (p Policy) Begin() *Budget {
	return &Budget{
		remaining: p.MaxAttempts,
		exclude:   p.Exclude,
	}
}

// Budget is the per-request repair state. It replaces an ad hoc retried-once
// flag on the request: created new for every request, consumed by Allow,
// discarded after resolution.
type Budget struct {
	remaining int
	exclude   func(path string) bool
}

// Allow reports whether one more automatic repair may run for the request
// targeting path, and consumes one unit when it may. Excluded paths never
// consume budget.
func (b *Budget) Allow(path string) bool {
	if b == nil || b.remaining <= 0 {
		return false
	}
	if b.exclude != nil && b.exclude(path) {
		return false
	}
	b.remaining--
	return true
}

// Spent reports whether the budget has been consumed.
func (b *Budget) Spent() bool {
	return b == nil || b.remaining <= 0
}
