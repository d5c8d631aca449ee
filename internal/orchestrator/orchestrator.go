// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/common/metrics"
	"smartport-assistant/internal/common/observability"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/dispatch"
	"smartport-assistant/internal/orchestrator/entities"
	"smartport-assistant/internal/orchestrator/intent"
	"smartport-assistant/internal/orchestrator/policy"
	"smartport-assistant/internal/orchestrator/respond"
	"smartport-assistant/pkg/registry"
)

// TurnRequest is one inbound conversation turn as handed over by the
// transport layer. Role is the raw claimed role string; AuthPresent reports
// whether credentials were actually verified, which is a separate question.
type TurnRequest struct {
	Message     string
	History     []models.Turn
	Role        string
	UserID      string
	CarrierID   string
	AuthPresent bool

	// TraceID is generated when empty.
	TraceID string

	// Now anchors relative-date entity resolution. Zero means wall clock.
	Now time.Time

	Extra map[string]interface{}
}

// TurnResult is everything one turn produced: the outbound response plus the
// intermediate facts the transport layer persists or echoes back.
type TurnResult struct {
	TraceID  string
	Response *models.NormalizedResponse
	Decision models.IntentDecision
	Entities models.EntityBag
	Outcome  *models.DispatchOutcome

	// StoredIntent is the intent the conversation store should record for
	// this turn. Empty for denied and unimplemented turns so a later
	// follow-up cannot resurrect a topic the user never actually reached.
	StoredIntent models.Intent
}

// Orchestrator runs the full pipeline for one turn: classify, extract,
// gate, dispatch, normalize. It holds no per-turn state and is safe for
// concurrent use once constructed.
type Orchestrator struct {
	classifier *intent.Classifier
	extractor  *entities.Extractor
	gatekeeper *policy.Gatekeeper
	router     *dispatch.Router
	normalizer *respond.Normalizer
	obs        *observability.Observability
	logger     logger.Logger
}

// New assembles a pipeline over the given capability registry. obs may be
// nil; stage spans and turn metrics are then skipped.
func New(reg *registry.Registry, config *Config, log logger.Logger, obs *observability.Observability) *Orchestrator {
	if config == nil {
		config = LoadConfig()
	}
	return &Orchestrator{
		classifier: intent.NewClassifier(&intent.Config{FollowUpMaxWords: config.FollowUpMaxWords}, log),
		extractor:  entities.NewExtractor(log),
		gatekeeper: policy.NewGatekeeper(log),
		router:     dispatch.NewRouter(&dispatch.Config{HandlerTimeout: config.HandlerTimeout}, reg, log),
		normalizer: respond.NewNormalizer(log, reg),
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// HandleTurn processes one turn end to end and always returns a well-formed
// result: denials, registry gaps and handler failures all come back as
// normal responses. The handler invocation inside the router is the only
// step that can fail; the recover here is the outermost safety net and
// should never fire.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (result *TurnResult) {
	start := time.Now()
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	role := models.NormalizeRole(req.Role)
	log := o.logger.WithFields(map[string]interface{}{
		"trace_id": traceID,
		"user_id":  req.UserID,
		"role":     role.String(),
	})

	defer func() {
		if r := recover(); r != nil {
			log.Error("turn processing panicked", map[string]interface{}{"panic": fmt.Sprintf("%v", r)})
			resp := &models.NormalizedResponse{
				Message: "I encountered an unexpected error. Please try again or contact support.",
				Data:    map[string]interface{}{},
				Proofs:  models.Proofs{},
			}
			resp.Proofs.Stamp(traceID, models.StatusFailed, "orchestrator")
			result = &TurnResult{
				TraceID:  traceID,
				Response: resp,
				Entities: models.EntityBag{},
				Outcome:  models.MetaHandled(models.IntentUnknown),
			}
			metrics.TurnsProcessed.WithLabelValues(models.IntentUnknown.String(), "panic").Inc()
		}
	}()

	// Stage 1: classification. History travels with the text so the
	// follow-up resolver can carry the previous topic.
	cctx, span := o.startSpan(ctx, "pipeline.classify")
	decision := o.classifier.Classify(models.Utterance{Text: req.Message, History: req.History})
	span.End()
	metrics.IntentDetections.WithLabelValues(decision.Intent.String()).Inc()
	trail := []string{"intent:" + decision.Intent.String()}

	// Stage 2: entity extraction, unconditionally. Even a help or unknown
	// turn may carry a date or reference the next turn needs.
	_, span = o.startSpan(cctx, "pipeline.extract")
	var bag models.EntityBag
	if req.Now.IsZero() {
		bag = o.extractor.Extract(req.Message)
	} else {
		bag = o.extractor.ExtractAt(req.Message, req.Now)
	}
	span.End()
	trail = append(trail, fmt.Sprintf("entities:%d", bag.Count()))

	// Stages 3-4: policy gate, then dispatch. Meta intents short-circuit
	// before policy ever runs.
	var outcome *models.DispatchOutcome
	if decision.Intent.IsMeta() {
		outcome = models.MetaHandled(decision.Intent)
	} else {
		_, span = o.startSpan(cctx, "pipeline.evaluate_access")
		access := o.gatekeeper.Evaluate(decision.Intent, policy.Caller{
			UserID:        req.UserID,
			Role:          role,
			Authenticated: req.AuthPresent,
			CarrierID:     req.CarrierID,
		}, bag)
		span.End()

		if !access.Allowed {
			trail = append(trail, "rbac_denied")
			metrics.AccessDenials.WithLabelValues(decision.Intent.String(), strconv.Itoa(access.HTTPStatus)).Inc()
			outcome = models.Denied(decision.Intent, access)
		} else {
			trail = append(trail, "rbac_granted")
			dctx, span := o.startSpan(cctx, "pipeline.dispatch")
			outcome = o.router.Dispatch(dctx, &registry.Invocation{
				TraceID:             traceID,
				Message:             req.Message,
				Intent:              decision.Intent,
				Entities:            bag,
				History:             req.History,
				UserID:              req.UserID,
				Role:                role,
				CarrierID:           req.CarrierID,
				NeedsOwnershipCheck: access.NeedsOwnershipCheck,
				ReferenceTime:       req.Now,
				Extra:               req.Extra,
			})
			span.End()

			switch {
			case outcome.Kind == models.OutcomeNotImplemented:
				trail = append(trail, "agent_not_implemented")
			case outcome.Failed():
				trail = append(trail, "agent:"+outcome.HandlerName, "agent_failed:"+outcome.FailureKind)
			default:
				trail = append(trail, "agent:"+outcome.HandlerName, "agent_executed")
			}
		}
	}

	// Stage 5: normalization to the single outbound contract.
	_, span = o.startSpan(cctx, "pipeline.normalize")
	resp := o.normalizer.Normalize(outcome, bag, role, traceID, trail)
	span.End()

	metrics.TurnsProcessed.WithLabelValues(decision.Intent.String(), string(outcome.Kind)).Inc()
	if o.obs != nil {
		o.obs.RecordTurnProcessed(ctx, decision.Intent.String(), string(outcome.Kind))
		o.obs.RecordTurnDuration(ctx, time.Since(start), string(outcome.Kind))
	}
	log.Info("turn processed", map[string]interface{}{
		"intent":     decision.Intent.String(),
		"confidence": decision.Confidence,
		"entities":   bag.Count(),
		"outcome":    string(outcome.Kind),
		"status":     resp.Proofs.Status(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	return &TurnResult{
		TraceID:      traceID,
		Response:     resp,
		Decision:     decision,
		Entities:     bag,
		Outcome:      outcome,
		StoredIntent: storedIntent(decision.Intent, outcome),
	}
}

// storedIntent decides what the conversation store records for this turn.
// Denied and unimplemented turns record nothing: the user never reached the
// topic, so it must not feed later follow-up resolution.
func storedIntent(detected models.Intent, outcome *models.DispatchOutcome) models.Intent {
	switch outcome.Kind {
	case models.OutcomeDenied, models.OutcomeNotImplemented:
		return ""
	}
	return detected
}

// startSpan opens a pipeline stage span. Without observability wiring it
// hands back a no-op span so call sites stay unconditional.
func (o *Orchestrator) startSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	if o.obs == nil {
		return ctx, oteltrace.SpanFromContext(ctx)
	}
	return o.obs.StartSpan(ctx, name)
}
