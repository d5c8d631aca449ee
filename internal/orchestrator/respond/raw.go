// internal/orchestrator/respond/raw.go
package respond

import (
	"fmt"

	"smartport-assistant/internal/models"
)

// Accepted raw handler output shapes, in the order standardizeRaw checks
// them:
//
//  1. already normalized: map with both "message" and "data"
//  2. model style: map with "ok" plus "result" or "error"
//  3. message only: map with "message", remaining keys become data
//  4. plain map: message derived from known fields, whole map becomes data
//  5. bare string: becomes the message
//
// Anything else is stringified so the turn still completes.
func (n *Normalizer) standardizeRaw(raw interface{}) (*models.NormalizedResponse, string) {
	switch v := raw.(type) {
	case nil:
		return &models.NormalizedResponse{Message: "Operation completed"}, models.StatusOK

	case *models.NormalizedResponse:
		if v == nil {
			return &models.NormalizedResponse{Message: "Operation completed"}, models.StatusOK
		}
		return v, statusFromProofs(v.Proofs)

	case map[string]interface{}:
		return n.standardizeMap(v)

	case models.EntityBag:
		return n.standardizeMap(map[string]interface{}(v))

	case string:
		return &models.NormalizedResponse{Message: v}, models.StatusOK

	default:
		n.logger.Warn("unexpected handler result type", map[string]interface{}{
			"type": fmt.Sprintf("%T", raw),
		})
		return &models.NormalizedResponse{Message: fmt.Sprintf("%v", raw)}, models.StatusOK
	}
}

func (n *Normalizer) standardizeMap(m map[string]interface{}) (*models.NormalizedResponse, string) {
	_, hasMessage := m["message"]
	_, hasData := m["data"]

	// Already normalized: keep the handler's message and data, carry its
	// proofs forward for stamping.
	if hasMessage && hasData {
		resp := &models.NormalizedResponse{
			Message: stringOf(m["message"]),
			Data:    mapOf(m["data"]),
			Proofs:  proofsOf(m["proofs"]),
		}
		return resp, statusFromProofs(resp.Proofs)
	}

	// Model style: {ok, result|error, proofs}.
	if okVal, isModel := m["ok"].(bool); isModel {
		proofs := proofsOf(m["proofs"])
		if okVal {
			result := mapOf(m["result"])
			message := extractMessage(result)
			if message == "" {
				message = "Operation completed successfully"
			}
			return &models.NormalizedResponse{Message: message, Data: result, Proofs: proofs}, models.StatusOK
		}

		errInfo := mapOf(m["error"])
		message := stringOf(errInfo["message"])
		if message == "" {
			message = "An error occurred"
		}
		errType := stringOf(errInfo["type"])
		if errType == "" {
			errType = "ModelError"
		}
		data := map[string]interface{}{"error": errType}
		for k, v := range errInfo {
			if k == "message" || k == "type" {
				continue
			}
			data[k] = v
		}
		return &models.NormalizedResponse{Message: message, Data: data, Proofs: proofs}, models.StatusFailed
	}

	// Message without data: remaining keys become the data payload.
	if hasMessage {
		data := make(map[string]interface{}, len(m))
		for k, v := range m {
			if k == "message" || k == "proofs" {
				continue
			}
			data[k] = v
		}
		resp := &models.NormalizedResponse{
			Message: stringOf(m["message"]),
			Data:    data,
			Proofs:  proofsOf(m["proofs"]),
		}
		return resp, statusFromProofs(resp.Proofs)
	}

	// Plain map: derive a message from known fields, keep the map as data.
	message := extractMessage(m)
	if message == "" {
		message = "Operation completed"
	}
	return &models.NormalizedResponse{Message: message, Data: m}, models.StatusOK
}

// extractMessage derives a human-readable message from known result fields.
// Checked in order: direct text fields, then score/tier, then recommended
// slot count, then risk score. Returns "" when nothing matches.
func extractMessage(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}

	for _, key := range []string{"message", "summary", "description", "explanation"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}

	if score, ok := floatOf(m["score"]); ok {
		if tier, hasTier := m["tier"]; hasTier {
			return fmt.Sprintf("Score: %.1f/100 (Tier %v)", score, tier)
		}
	}

	if count, ok := lenOf(m["recommended"]); ok {
		plural := "s"
		if count == 1 {
			plural = ""
		}
		return fmt.Sprintf("Found %d recommended slot%s", count, plural)
	}

	if risk, ok := floatOf(m["risk_score"]); ok {
		return fmt.Sprintf("Risk score: %.2f", risk)
	}

	return ""
}

func stringOf(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func mapOf(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case models.EntityBag:
		return map[string]interface{}(m)
	case models.Proofs:
		return map[string]interface{}(m)
	}
	return map[string]interface{}{}
}

func proofsOf(v interface{}) models.Proofs {
	switch p := v.(type) {
	case models.Proofs:
		return p
	case map[string]interface{}:
		return models.Proofs(p)
	}
	return nil
}

func floatOf(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func lenOf(v interface{}) (int, bool) {
	switch list := v.(type) {
	case []interface{}:
		return len(list), true
	case []map[string]interface{}:
		return len(list), true
	case []string:
		return len(list), true
	}
	return 0, false
}

// statusFromProofs keeps a status a handler already recorded in its proofs,
// so an already-normalized validation response survives restamping with the
// same tag. Anything unrecognized maps to ok.
func statusFromProofs(p models.Proofs) string {
	switch p.Status() {
	case models.StatusFailed:
		return models.StatusFailed
	case models.StatusValidationFailed:
		return models.StatusValidationFailed
	}
	return models.StatusOK
}
