package models

import "time"

// Proof status tags. Consumers (logs, dashboards) depend on these literals.
const (
	StatusOK               = "ok"
	StatusFailed           = "failed"
	StatusValidationFailed = "validation_failed"
)

// Stable proof keys.
const (
	ProofTraceID      = "trace_id"
	ProofTimestamp    = "timestamp"
	ProofStatus       = "status"
	ProofComponent    = "component"
	ProofDecisionPath = "decision_path"
)

// Proofs carries trace metadata on every response. Modeled as a map because
// capability handlers may attach arbitrary diagnostic keys of their own; the
// normalizer stamps the required keys and appends - never overwrites - the
// decision trail.
type Proofs map[string]interface{}

// NewProofs builds a proofs object with the required keys stamped.
func NewProofs(traceID, status, component string) Proofs {
	return Proofs{
		ProofTraceID:   traceID,
		ProofTimestamp: time.Now().UTC().Format(time.RFC3339),
		ProofStatus:    status,
		ProofComponent: component,
	}
}

// Stamp fills the required keys. Status and trace id always win over
// handler-supplied values so a handler cannot spoof the pipeline verdict;
// a component already recorded by the handler is kept.
func (p Proofs) Stamp(traceID, status, component string) Proofs {
	p[ProofTraceID] = traceID
	p[ProofTimestamp] = time.Now().UTC().Format(time.RFC3339)
	p[ProofStatus] = status
	if _, ok := p[ProofComponent]; !ok {
		p[ProofComponent] = component
	}
	return p
}

// AppendTrail appends milestones to the decision path, preserving any trail
// the handler already recorded.
func (p Proofs) AppendTrail(milestones ...string) Proofs {
	existing, _ := p[ProofDecisionPath].([]string)
	if raw, ok := p[ProofDecisionPath].([]interface{}); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				existing = append(existing, s)
			}
		}
	}
	p[ProofDecisionPath] = append(existing, milestones...)
	return p
}

// TraceID returns the stamped trace identifier.
func (p Proofs) TraceID() string {
	s, _ := p[ProofTraceID].(string)
	return s
}

// Status returns the stamped status tag.
func (p Proofs) Status() string {
	s, _ := p[ProofStatus].(string)
	return s
}

// DecisionPath returns the ordered trail of pipeline milestones.
func (p Proofs) DecisionPath() []string {
	switch v := p[ProofDecisionPath].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// NormalizedResponse is the single outbound shape. Always well-formed, even
// for denials, unknown intents and handler failures - the pipeline never
// raises past its own boundary.
type NormalizedResponse struct {
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Proofs  Proofs                 `json:"proofs"`
}
