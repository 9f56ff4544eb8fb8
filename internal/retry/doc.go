// Package retry defines the repair budgets used by the request pipeline.
//
// A [Policy] describes how many automatic resubmissions one failure category
// is allowed per logical request and which endpoints are excluded from repair
// altogether. Each outbound request cuts a fresh [Budget] from the policy at
// dispatch time and discards it after resolution, so budgets can never leak
// across requests or compound.
package retry
