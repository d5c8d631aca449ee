// internal/server/chat.go
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/metrics"
	"smartport-assistant/internal/common/validation"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator"
)

// maxChatBodyBytes caps the request body. The schema caps the message at
// 4000 characters; the allowance on top covers inline history in context.
const maxChatBodyBytes = 1 << 20

type chatRequest struct {
	Message        string                 `json:"message"`
	UserID         int64                  `json:"user_id"`
	UserRole       string                 `json:"user_role"`
	ConversationID string                 `json:"conversation_id"`
	Context        map[string]interface{} `json:"context"`
}

type chatResponse struct {
	ConversationID string                 `json:"conversation_id"`
	Message        string                 `json:"message"`
	Intent         string                 `json:"intent"`
	Entities       models.EntityBag       `json:"entities"`
	Agent          string                 `json:"agent,omitempty"`
	Data           map[string]interface{} `json:"data"`
	Proofs         models.Proofs          `json:"proofs"`
}

// identity is the caller as the pipeline will see it.
type identity struct {
	Role        string
	UserID      string
	CarrierID   string
	AuthPresent bool
}

// handleChat runs one conversation turn: validate the body, resolve the
// caller, assemble history, hand over to the pipeline, persist the exchange
// and mirror the normalized response out.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	metrics.TurnsActive.WithLabelValues("http").Inc()
	defer metrics.TurnsActive.WithLabelValues("http").Dec()

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]interface{}{"error": "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Failed to read request body"})
		return
	}

	var document map[string]interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Invalid JSON body"})
		return
	}

	if result := validation.ValidateChatRequest(document); !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "ValidationError",
			"details": result.GetErrorMessages(),
		})
		return
	}

	var body chatRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Invalid JSON body"})
		return
	}

	caller, err := s.resolveIdentity(r, &body)
	if err != nil {
		s.logger.Error("identity resolution failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "Authentication service unavailable"})
		return
	}

	conversationID := body.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	turns := inlineHistory(body.Context)
	if len(turns) == 0 && body.ConversationID != "" && s.store != nil {
		stored, err := s.store.Recent(r.Context(), conversationID, s.cfg.Pipeline.HistoryLimit)
		if err != nil {
			s.logger.Warn("history load failed", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
		} else {
			turns = stored
		}
	}

	result := s.orch.HandleTurn(r.Context(), orchestrator.TurnRequest{
		Message:     body.Message,
		History:     turns,
		Role:        caller.Role,
		UserID:      caller.UserID,
		CarrierID:   caller.CarrierID,
		AuthPresent: caller.AuthPresent,
		TraceID:     r.Header.Get("X-Request-ID"),
		Extra:       body.Context,
	})

	s.recordTurns(r.Context(), conversationID, body.Message, result)

	w.Header().Set("X-Request-ID", result.TraceID)
	writeJSON(w, chatStatus(result.Response), chatResponse{
		ConversationID: conversationID,
		Message:        result.Response.Message,
		Intent:         result.Decision.Intent.String(),
		Entities:       result.Entities,
		Agent:          result.Outcome.HandlerName,
		Data:           result.Response.Data,
		Proofs:         result.Response.Proofs,
	})
}

// resolveIdentity derives the caller from the request. With a verifier
// configured the bearer token is the only trusted identity source: a missing
// or rejected token degrades to an anonymous caller, and only an unreachable
// introspection endpoint is a hard error. Without a verifier the body claims
// are trusted as-is (dev mode), where supplying a user_id stands in for a
// completed sign-in.
func (s *Server) resolveIdentity(r *http.Request, body *chatRequest) (identity, error) {
	if s.verifier != nil && s.verifier.Enabled() {
		token := bearerToken(r)
		if token == "" {
			return identity{Role: models.RoleAnon.String()}, nil
		}
		principal, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			if stdErr, ok := errors.AsStandardError(err); ok && stdErr.Code == errors.ErrCodeUnauthenticated {
				s.logger.Warn("bearer token rejected", map[string]interface{}{"error": stdErr.Message})
				return identity{Role: models.RoleAnon.String()}, nil
			}
			return identity{}, err
		}
		caller := identity{
			Role:        principal.Role.String(),
			CarrierID:   principal.CarrierID,
			AuthPresent: true,
		}
		if principal.UserID > 0 {
			caller.UserID = strconv.FormatInt(principal.UserID, 10)
		}
		return caller, nil
	}

	caller := identity{Role: body.UserRole}
	if body.UserID > 0 {
		caller.UserID = strconv.FormatInt(body.UserID, 10)
		caller.AuthPresent = true
	}
	if cid, ok := body.Context["carrier_id"].(string); ok {
		caller.CarrierID = cid
	}
	return caller, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// inlineHistory reads prior turns the client carried in context.history.
// Inline history wins over the store so stateless clients can replay their
// own transcript.
func inlineHistory(extra map[string]interface{}) []models.Turn {
	raw, ok := extra["history"].([]interface{})
	if !ok {
		return nil
	}
	turns := make([]models.Turn, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var turn models.Turn
		if v, ok := entry["role"].(string); ok {
			turn.Role = v
		}
		if v, ok := entry["content"].(string); ok {
			turn.Content = v
		}
		if v, ok := entry["intent"].(string); ok {
			turn.Intent = models.Intent(v)
		}
		if turn.Role == "" && turn.Content == "" {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}

// recordTurns appends the user and assistant turns of a completed exchange.
// Persistence failures are logged and swallowed: the turn already happened
// and the caller deserves the answer.
func (s *Server) recordTurns(ctx context.Context, conversationID, message string, result *orchestrator.TurnResult) {
	if s.store == nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	turns := []models.Turn{
		{Role: models.TurnRoleUser, Content: message, Intent: result.StoredIntent, Timestamp: now},
		{Role: models.TurnRoleAssistant, Content: result.Response.Message, Timestamp: now},
	}
	for _, turn := range turns {
		if err := s.store.Append(ctx, conversationID, turn); err != nil {
			s.logger.Warn("history append failed", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
			return
		}
	}
}

// chatStatus mirrors a denial's status_code out to HTTP; everything else is
// a 200 because the pipeline answered.
func chatStatus(resp *models.NormalizedResponse) int {
	switch v := resp.Data["status_code"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return http.StatusOK
}
