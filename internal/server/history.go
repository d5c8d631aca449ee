// internal/server/history.go
package server

import (
	"net/http"

	"smartport-assistant/internal/models"
)

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "History store is not configured"})
		return
	}
	id := r.PathValue("id")

	turns, err := s.store.Recent(r.Context(), id, s.cfg.Pipeline.HistoryLimit)
	if err != nil {
		s.logger.Error("history read failed", map[string]interface{}{"conversation_id": id, "error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "Failed to load conversation history"})
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": id,
		"turns":           turns,
		"count":           len(turns),
	})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "History store is not configured"})
		return
	}
	id := r.PathValue("id")

	if err := s.store.Clear(r.Context(), id); err != nil {
		s.logger.Error("history clear failed", map[string]interface{}{"conversation_id": id, "error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "Failed to clear conversation history"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": id,
		"cleared":         true,
	})
}
