package models

// OutcomeKind tags the dispatch result variant.
type OutcomeKind string

const (
	OutcomeRouted         OutcomeKind = "routed"
	OutcomeNotImplemented OutcomeKind = "not_implemented"
	OutcomeDenied         OutcomeKind = "denied"
	OutcomeMetaHandled    OutcomeKind = "meta_handled"
)

// DispatchOutcome is the tagged union produced by the routing step and
// consumed immediately by the response normalizer. Constructed once per
// turn, never persisted.
//
//   - routed:           HandlerName set; Result holds the handler's raw
//     output, or HandlerErr/FailureKind the single caught failure.
//   - not_implemented:  the intent is authorized but has no registered
//     handler - a first-class outcome, not an error.
//   - denied:           Access holds the policy verdict.
//   - meta_handled:     help/health_check/smalltalk/unknown resolved by the
//     orchestrator before policy evaluation.
type DispatchOutcome struct {
	Kind        OutcomeKind
	Intent      Intent
	HandlerName string
	Access      *AccessDecision
	Result      interface{}
	HandlerErr  error
	FailureKind string
}

// Routed builds a successful routed outcome carrying the handler's raw
// output.
func Routed(intent Intent, handlerName string, result interface{}) *DispatchOutcome {
	return &DispatchOutcome{
		Kind:        OutcomeRouted,
		Intent:      intent,
		HandlerName: handlerName,
		Result:      result,
	}
}

// RoutedFailure builds a routed outcome whose handler failed. failureKind is
// the coarse machine kind surfaced in the agent_failed trail token; the raw
// error is kept for internal logging only.
func RoutedFailure(intent Intent, handlerName string, err error, failureKind string) *DispatchOutcome {
	return &DispatchOutcome{
		Kind:        OutcomeRouted,
		Intent:      intent,
		HandlerName: handlerName,
		HandlerErr:  err,
		FailureKind: failureKind,
	}
}

// NotImplemented builds the registry-gap outcome.
func NotImplemented(intent Intent) *DispatchOutcome {
	return &DispatchOutcome{Kind: OutcomeNotImplemented, Intent: intent}
}

// Denied builds the policy-rejection outcome.
func Denied(intent Intent, access AccessDecision) *DispatchOutcome {
	return &DispatchOutcome{Kind: OutcomeDenied, Intent: intent, Access: &access}
}

// MetaHandled builds the short-circuit outcome for meta intents.
func MetaHandled(intent Intent) *DispatchOutcome {
	return &DispatchOutcome{Kind: OutcomeMetaHandled, Intent: intent}
}

// Failed reports whether a routed handler invocation failed.
func (o *DispatchOutcome) Failed() bool {
	return o.Kind == OutcomeRouted && o.HandlerErr != nil
}
