// internal/orchestrator/respond/normalizer.go
package respond

import (
	"fmt"

	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/policy"
	"smartport-assistant/pkg/registry"
)

// CatalogProvider exposes the capability catalog so health responses can
// report feature coverage. *registry.Registry satisfies it.
type CatalogProvider interface {
	Catalog() registry.CapabilityCatalog
}

// Normalizer converts every dispatch outcome, whatever shape the capability
// handler produced, into the single outbound contract {message, data, proofs}.
// The pipeline never returns anything else to the transport layer.
type Normalizer struct {
	logger  logger.Logger
	catalog CatalogProvider
}

// NewNormalizer creates a Normalizer. catalog may be nil; health responses
// then omit feature counts.
func NewNormalizer(log logger.Logger, catalog CatalogProvider) *Normalizer {
	return &Normalizer{
		logger: log.WithFields(map[string]interface{}{
			"component": "response_normalizer",
		}),
		catalog: catalog,
	}
}

// Normalize builds the outbound response for one completed turn. It stamps
// proofs.trace_id, proofs.status and proofs.component on every path and
// appends the decision trail without discarding trail entries a handler
// already recorded.
func (n *Normalizer) Normalize(outcome *models.DispatchOutcome, entities models.EntityBag, role models.Role, traceID string, trail []string) *models.NormalizedResponse {
	var (
		resp   *models.NormalizedResponse
		status = models.StatusOK
	)

	switch outcome.Kind {
	case models.OutcomeMetaHandled:
		resp = n.meta(outcome.Intent, role)
	case models.OutcomeDenied:
		resp, status = n.denied(outcome, role)
	case models.OutcomeNotImplemented:
		resp = n.notImplemented(outcome.Intent, entities)
	case models.OutcomeRouted:
		if outcome.Failed() {
			resp, status = n.failure(outcome)
		} else {
			resp, status = n.standardizeRaw(outcome.Result)
		}
	default:
		n.logger.Error("unknown dispatch outcome kind", map[string]interface{}{
			"kind":   string(outcome.Kind),
			"intent": outcome.Intent.String(),
		})
		resp = &models.NormalizedResponse{
			Message: "I encountered an unexpected error. Please try again or contact support.",
		}
		status = models.StatusFailed
	}

	if resp.Data == nil {
		resp.Data = map[string]interface{}{}
	}
	if resp.Proofs == nil {
		resp.Proofs = models.Proofs{}
	}
	resp.Proofs.Stamp(traceID, status, "orchestrator")
	resp.Proofs.AppendTrail(trail...)

	n.logger.Debug("response normalized", map[string]interface{}{
		"trace_id": traceID,
		"intent":   outcome.Intent.String(),
		"kind":     string(outcome.Kind),
		"status":   status,
	})
	return resp
}

// denied renders an access denial. 401 keeps the message generic; 403 names
// the caller's role and, via data.allowed_intents, what remains available.
func (n *Normalizer) denied(outcome *models.DispatchOutcome, role models.Role) (*models.NormalizedResponse, string) {
	dec := outcome.Access
	if dec == nil {
		return &models.NormalizedResponse{
			Message: "I encountered an unexpected error. Please try again or contact support.",
		}, models.StatusFailed
	}

	if dec.HTTPStatus == 401 {
		data := map[string]interface{}{
			"error":       "Unauthorized",
			"status_code": 401,
		}
		for k, v := range dec.Metadata {
			if _, exists := data[k]; !exists {
				data[k] = v
			}
		}
		return &models.NormalizedResponse{
			Message: "Authentication required for this feature. Please sign in and try again.",
			Data:    data,
		}, models.StatusFailed
	}

	message := fmt.Sprintf("Sorry, the '%s' feature is not available for your role (%s).", outcome.Intent, role)
	if reason, _ := dec.Metadata["reason"].(string); reason == "ownership_check_failed" {
		message = "Sorry, you can only access your own carrier's data."
	}

	data := map[string]interface{}{
		"error":            "Forbidden",
		"status_code":      403,
		"requested_intent": outcome.Intent.String(),
		"user_role":        role.String(),
		"allowed_intents":  policy.AllowedIntents(role),
	}
	if dec.RequiredRole != "" {
		data["required_role"] = dec.RequiredRole.String()
	}
	for k, v := range dec.Metadata {
		if k == "intent" || k == "user_role" {
			continue
		}
		if _, exists := data[k]; !exists {
			data[k] = v
		}
	}
	return &models.NormalizedResponse{Message: message, Data: data}, models.StatusFailed
}

// notImplemented renders the planned-feature outcome. This is a successful
// response, not an error: the intent was understood and authorized, the
// capability just is not wired yet.
func (n *Normalizer) notImplemented(intent models.Intent, entities models.EntityBag) *models.NormalizedResponse {
	if entities == nil {
		entities = models.EntityBag{}
	}
	return &models.NormalizedResponse{
		Message: fmt.Sprintf("The '%s' feature is planned but not yet implemented. It will be available soon!", intent),
		Data: map[string]interface{}{
			"planned_intent": intent.String(),
			"entities":       entities,
			"suggestion":     "Please check back later or contact support.",
		},
	}
}

// failure renders a handler failure. Validation failures carry the handler's
// own guidance back to the user; everything else collapses to a generic retry
// message plus the coarse failure kind. Raw error text never leaves the
// pipeline here.
func (n *Normalizer) failure(outcome *models.DispatchOutcome) (*models.NormalizedResponse, string) {
	if std, ok := errors.AsStandardError(outcome.HandlerErr); ok && std.Code == errors.ErrCodeValidationError {
		message := std.Details
		if message == "" {
			message = std.Message
		}
		data := map[string]interface{}{"error": "ValidationError"}
		for k, v := range std.Metadata {
			if _, exists := data[k]; !exists {
				data[k] = v
			}
		}
		return &models.NormalizedResponse{Message: message, Data: data}, models.StatusValidationFailed
	}

	return &models.NormalizedResponse{
		Message: "I encountered an error processing your request. Please try again.",
		Data: map[string]interface{}{
			"error_kind": outcome.FailureKind,
		},
	}, models.StatusFailed
}
