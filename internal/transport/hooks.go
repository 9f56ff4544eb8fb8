package transport

import "net/http"

// Hook observes every dispatch attempt. Hooks run in registration order:
// BeforeDispatch on the fully built request, AfterDispatch with the response
// status once the attempt resolves. Repaired resubmissions run the hooks
// again, since they are new attempts.
type Hook interface {
	BeforeDispatch(req *http.Request)
	AfterDispatch(req *http.Request, status int)
}

// HookFunc adapts a before-only function to the Hook interface.
type HookFunc func(req *http.Request)

func (f HookFunc) BeforeDispatch(req *http.Request) { f(req) }

func (HookFunc) AfterDispatch(*http.Request, int) {}
