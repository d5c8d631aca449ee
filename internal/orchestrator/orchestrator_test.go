// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	stderrors "errors"
	"testing"

	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

type stubCapability struct {
	executeFunc func(ctx context.Context, inv *registry.Invocation) (interface{}, error)
	lastInv     *registry.Invocation
}

func (s *stubCapability) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	s.lastInv = inv
	return s.executeFunc(ctx, inv)
}

func newTestOrchestrator(t *testing.T, reg *registry.Registry) *Orchestrator {
	return New(reg, LoadConfig(), &testLogger{t: t}, nil)
}

// ==========================
// Pipeline Tests
// ==========================

func TestHandleTurn_EndToEndBookingStatus(t *testing.T) {
	booking := &stubCapability{
		executeFunc: func(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
			return map[string]interface{}{
				"message": "Booking REF123 is confirmed.",
				"data": map[string]interface{}{
					"booking_ref": "REF123",
					"status":      "confirmed",
				},
			}, nil
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(models.IntentBookingStatus, registry.Binding{Name: "BookingAgent", Capability: booking}))

	o := newTestOrchestrator(t, reg)
	res := o.HandleTurn(context.Background(), TurnRequest{
		Message:     "What's the status of REF123?",
		Role:        "CARRIER",
		UserID:      "u-7",
		CarrierID:   "42",
		AuthPresent: true,
	})

	require.NotNil(t, res.Response)
	assert.Equal(t, models.IntentBookingStatus, res.Decision.Intent)
	assert.Equal(t, "REF123", res.Entities.GetString(models.EntityBookingRef))
	assert.Equal(t, models.OutcomeRouted, res.Outcome.Kind)
	assert.Equal(t, "Booking REF123 is confirmed.", res.Response.Message)
	assert.Equal(t, models.IntentBookingStatus, res.StoredIntent)

	// The capability sees the full execution context, including the
	// ownership flag the policy attached.
	require.NotNil(t, booking.lastInv)
	assert.True(t, booking.lastInv.NeedsOwnershipCheck)
	assert.Equal(t, "42", booking.lastInv.CarrierID)
	assert.Equal(t, "u-7", booking.lastInv.UserID)
	assert.Equal(t, models.RoleCarrier, booking.lastInv.Role)
	assert.Equal(t, res.TraceID, booking.lastInv.TraceID)

	assert.Equal(t, res.TraceID, res.Response.Proofs.TraceID())
	assert.Equal(t,
		[]string{"intent:booking_status", "entities:1", "rbac_granted", "agent:BookingAgent", "agent_executed"},
		res.Response.Proofs.DecisionPath(),
	)
}

func TestHandleTurn_UnauthenticatedBeforeRoleCheck(t *testing.T) {
	o := newTestOrchestrator(t, registry.New())

	// Claimed ADMIN does not matter without verified credentials.
	res := o.HandleTurn(context.Background(), TurnRequest{
		Message:     "Show me unusual patterns",
		Role:        "ADMIN",
		UserID:      "u-1",
		AuthPresent: false,
	})

	assert.Equal(t, models.IntentAnomalyDetection, res.Decision.Intent)
	assert.Equal(t, models.OutcomeDenied, res.Outcome.Kind)
	assert.Equal(t, 401, res.Outcome.Access.HTTPStatus)
	assert.Equal(t, 401, res.Response.Data["status_code"])
	assert.Equal(t, models.StatusFailed, res.Response.Proofs.Status())
	assert.Equal(t, models.Intent(""), res.StoredIntent)
	assert.Equal(t,
		[]string{"intent:anomaly_detection", "entities:0", "rbac_denied"},
		res.Response.Proofs.DecisionPath(),
	)
}

func TestHandleTurn_ForbiddenRole(t *testing.T) {
	o := newTestOrchestrator(t, registry.New())

	res := o.HandleTurn(context.Background(), TurnRequest{
		Message:     "Show me unusual patterns",
		Role:        "CARRIER",
		UserID:      "u-2",
		AuthPresent: true,
	})

	assert.Equal(t, models.OutcomeDenied, res.Outcome.Kind)
	assert.Equal(t, 403, res.Outcome.Access.HTTPStatus)
	assert.Equal(t, "Sorry, the 'anomaly_detection' feature is not available for your role (CARRIER).", res.Response.Message)
	assert.Equal(t, "OPERATOR", res.Response.Data["required_role"])
	assert.Contains(t, res.Response.Data["allowed_intents"], "booking_status")
	assert.Equal(t, models.Intent(""), res.StoredIntent)
}

func TestHandleTurn_NotImplementedPassageHistory(t *testing.T) {
	o := newTestOrchestrator(t, registry.New())

	res := o.HandleTurn(context.Background(), TurnRequest{
		Message:     "Show yesterday's truck entries",
		Role:        "ADMIN",
		UserID:      "u-3",
		AuthPresent: true,
	})

	assert.Equal(t, models.IntentPassageHistory, res.Decision.Intent)
	assert.Equal(t, models.OutcomeNotImplemented, res.Outcome.Kind)
	assert.Equal(t, "passage_history", res.Response.Data["planned_intent"])
	// A registry gap is a successful turn, not a failure.
	assert.Equal(t, models.StatusOK, res.Response.Proofs.Status())
	assert.Equal(t, models.Intent(""), res.StoredIntent)
	assert.Equal(t,
		[]string{"intent:passage_history", "entities:1", "rbac_granted", "agent_not_implemented"},
		res.Response.Proofs.DecisionPath(),
	)
}

func TestHandleTurn_MetaShortCircuitsBeforePolicy(t *testing.T) {
	o := newTestOrchestrator(t, registry.New())

	res := o.HandleTurn(context.Background(), TurnRequest{
		Message: "help",
		Role:    "ANON",
	})

	assert.Equal(t, models.IntentHelp, res.Decision.Intent)
	assert.Equal(t, models.OutcomeMetaHandled, res.Outcome.Kind)
	assert.Contains(t, res.Response.Message, "Smart Port AI assistant")
	assert.Equal(t, models.IntentHelp, res.StoredIntent)
	// No rbac tokens: policy never ran.
	assert.Equal(t, []string{"intent:help", "entities:0"}, res.Response.Proofs.DecisionPath())
}

func TestHandleTurn_FollowUpCarriesTopic(t *testing.T) {
	score := &stubCapability{
		executeFunc: func(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
			return map[string]interface{}{
				"ok":     true,
				"result": map[string]interface{}{"score": 87.3, "tier": "A"},
			}, nil
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(models.IntentCarrierScore, registry.Binding{Name: "CarrierScoreAgent", Capability: score}))

	o := newTestOrchestrator(t, reg)
	res := o.HandleTurn(context.Background(), TurnRequest{
		Message: "and yesterday?",
		History: []models.Turn{
			{Role: models.TurnRoleUser, Content: "What's the score for carrier 42?", Intent: models.IntentCarrierScore},
			{Role: models.TurnRoleAssistant, Content: "Score: 87.3/100 (Tier A)"},
		},
		Role:        "CARRIER",
		UserID:      "u-4",
		CarrierID:   "42",
		AuthPresent: true,
	})

	assert.Equal(t, models.IntentCarrierScore, res.Decision.Intent)
	assert.InDelta(t, 0.70, res.Decision.Confidence, 1e-9)
	assert.True(t, res.Decision.IsFollowUp())
	assert.True(t, res.Entities.GetBool(models.EntityDateYesterday))
	assert.Equal(t, "Score: 87.3/100 (Tier A)", res.Response.Message)
	assert.Equal(t,
		[]string{"intent:carrier_score", "entities:1", "rbac_granted", "agent:CarrierScoreAgent", "agent_executed"},
		res.Response.Proofs.DecisionPath(),
	)
}

func TestHandleTurn_HandlerFailureIsSanitized(t *testing.T) {
	slot := &stubCapability{
		executeFunc: func(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
			return nil, errors.NewDataQueryFailedError("slots", stderrors.New("pq: connection refused to 10.0.3.7:5432"))
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(models.IntentSlotAvailability, registry.Binding{Name: "SlotAgent", Capability: slot}))

	o := newTestOrchestrator(t, reg)
	res := o.HandleTurn(context.Background(), TurnRequest{
		Message:     "Is there availability tomorrow at Terminal A?",
		Role:        "OPERATOR",
		UserID:      "u-5",
		AuthPresent: true,
	})

	assert.Equal(t, models.OutcomeRouted, res.Outcome.Kind)
	assert.True(t, res.Outcome.Failed())
	assert.Equal(t, "I encountered an error processing your request. Please try again.", res.Response.Message)
	assert.Equal(t, "query", res.Response.Data["error_kind"])
	assert.NotContains(t, res.Response.Message, "10.0.3.7")
	assert.Equal(t, models.StatusFailed, res.Response.Proofs.Status())
	// Failed turns still record the topic: the user did reach it.
	assert.Equal(t, models.IntentSlotAvailability, res.StoredIntent)
	assert.Equal(t,
		[]string{"intent:slot_availability", "entities:2", "rbac_granted", "agent:SlotAgent", "agent_failed:query"},
		res.Response.Proofs.DecisionPath(),
	)
}

func TestHandleTurn_EmptyMessage(t *testing.T) {
	o := newTestOrchestrator(t, registry.New())

	res := o.HandleTurn(context.Background(), TurnRequest{
		Message:     "   ",
		Role:        "ADMIN",
		AuthPresent: true,
	})

	assert.Equal(t, models.IntentUnknown, res.Decision.Intent)
	assert.Equal(t, 1.0, res.Decision.Confidence)
	assert.Equal(t, models.OutcomeMetaHandled, res.Outcome.Kind)
	assert.Contains(t, res.Response.Message, "I'm not sure I understood your request.")
}

func TestHandleTurn_TraceIDHandling(t *testing.T) {
	o := newTestOrchestrator(t, registry.New())

	t.Run("generates when absent", func(t *testing.T) {
		res := o.HandleTurn(context.Background(), TurnRequest{Message: "help", Role: "ANON"})
		assert.NotEmpty(t, res.TraceID)
		assert.Equal(t, res.TraceID, res.Response.Proofs.TraceID())
	})

	t.Run("keeps supplied id", func(t *testing.T) {
		res := o.HandleTurn(context.Background(), TurnRequest{
			Message: "help",
			Role:    "ANON",
			TraceID: "trace-supplied",
		})
		assert.Equal(t, "trace-supplied", res.TraceID)
		assert.Equal(t, "trace-supplied", res.Response.Proofs.TraceID())
	})
}

func TestHandleTurn_NormalizesClaimedRole(t *testing.T) {
	o := newTestOrchestrator(t, registry.New())

	res := o.HandleTurn(context.Background(), TurnRequest{
		Message:     "help",
		Role:        "carrier",
		AuthPresent: true,
	})

	assert.Equal(t, "CARRIER", res.Response.Data["user_role"])
	features, ok := res.Response.Data["available_features"].([]string)
	require.True(t, ok)
	assert.Contains(t, features, "booking_status")
	assert.NotContains(t, features, "anomaly_detection")
}
