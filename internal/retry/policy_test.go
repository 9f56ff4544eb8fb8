package retry

import "testing"

func TestBudgetAllowsAtMostMaxAttempts(t *testing.T) {
	b := Policy{MaxAttempts: 1}.Begin()

	if !b.Allow("/auth/me") {
		t.Fatal("first repair should be allowed")
	}
	if b.Allow("/auth/me") {
		t.Fatal("second repair must be denied")
	}
	if !b.Spent() {
		t.Fatal("budget should report spent")
	}
}

func TestZeroPolicyDeniesEverything(t *testing.T) {
	b := Policy{}.Begin()
	if b.Allow("/auth/me") {
		t.Fatal("zero policy must deny repair")
	}
}

func TestNilBudgetIsInert(t *testing.T) {
	var b *Budget
	if b.Allow("/auth/me") {
		t.Fatal("nil budget must deny repair")
	}
	if !b.Spent() {
		t.Fatal("nil budget reports spent")
	}
}

func TestExcludedPathsNeverConsumeBudget(t *testing.T) {
	p := Policy{
		MaxAttempts: 1,
		Exclude: func(path string) bool {
			return path == "/auth/refresh" || path == "/auth/login"
		},
	}

	b := p.Begin()
	if b.Allow("/auth/refresh") {
		t.Fatal("excluded path must be denied")
	}
	if b.Allow("/auth/login") {
		t.Fatal("excluded path must be denied")
	}
	// Denials above must not have consumed the unit.
	if !b.Allow("/auth/me") {
		t.Fatal("non-excluded path should still have budget")
	}
}

func TestBudgetsAreIndependentPerRequest(t *testing.T) {
	p := Policy{MaxAttempts: 1}

	first := p.Begin()
	second := p.Begin()
	if !first.Allow("/a") {
		t.Fatal("first request's budget should allow")
	}
	if !second.Allow("/b") {
		t.Fatal("spending one request's budget must not affect another")
	}
}
