// Package flows implements the login state machine: raw credentials through
// single-factor or two-factor completion.
//
// The machine moves Anonymous → AwaitingFirstFactor → Authenticated, or via
// AwaitingSecondFactor when the server demands a second factor. An incorrect
// second-factor code keeps the machine in AwaitingSecondFactor; only success,
// abandonment, or logout leaves it. The pending challenge is held here, not
// in the auth state store, and is discarded client-side on abandonment while
// the server-side challenge expires on its own schedule.
package flows
