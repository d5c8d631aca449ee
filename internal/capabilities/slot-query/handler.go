// internal/capabilities/slot-query/handler.go
package slotquery

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/common/metrics"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/entities"
	"smartport-assistant/pkg/registry"
)

const (
	CapabilityName = "SlotAgent"

	slotColumns = "slot_id, terminal, gate, start_time, end_time, capacity, remaining"

	availabilityKeyFmt = "slots:avail:%s:%s:%s"

	// Written by the carrier score capability; read here to pick a
	// recommendation strategy without calling the scoring backend.
	carrierScoreKeyFmt = "carrier:score:%s"
)

// Morning anchor used when the message names a date but no time.
const defaultRequestedTime = "09:00:00"

var recommendationKeywords = []string{
	"recommend", "suggest", "alternative", "better", "best",
	"other options", "what else", "alternatives",
}

// Handler serves both slot intents. Availability questions get a capacity
// summary; recommendation questions, or availability under 30%, run the
// deterministic ranker instead.
type Handler struct {
	config *Config
	db     *database.PostgresClient
	cache  *database.RedisClient
	logger logger.Logger
}

func NewHandler(config *Config, db *database.PostgresClient, cache *database.RedisClient, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"capability": CapabilityName}),
	}
}

func (h *Handler) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	terminal := strings.ToUpper(strings.TrimSpace(inv.Entities.GetString(models.EntityTerminal)))
	if terminal == "" {
		return nil, errors.NewValidationError("Please specify which terminal you're interested in.").
			WithMetadata("missing_field", models.EntityTerminal).
			WithMetadata("example", "terminal A").
			WithMetadata("suggestion", "Try asking: 'Show slots for terminal A' or 'Availability at terminal B tomorrow'")
	}

	now := inv.ReferenceTime
	if now.IsZero() {
		now = time.Now().UTC()
	}
	date := entities.ResolveDate(inv.Entities, now)
	if date == "" {
		date = now.Format("2006-01-02")
	}
	gate := strings.ToUpper(inv.Entities.GetString(models.EntityGate))

	ctx, cancel := context.WithTimeout(ctx, h.config.QueryTimeout)
	defer cancel()

	slots, err := h.fetchSlots(ctx, terminal, date, gate)
	if err != nil {
		return nil, err
	}

	if inv.Intent == models.IntentSlotRecommendation || wantsRecommendations(inv.Message) || h.lowAvailability(slots) {
		return h.recommendationResponse(ctx, inv, slots, terminal, date, gate), nil
	}
	return availabilityResponse(slots, terminal, date), nil
}

// fetchSlots reads through the cache. Cache failures degrade to a direct
// query, never to an error.
func (h *Handler) fetchSlots(ctx context.Context, terminal, date, gate string) ([]Slot, error) {
	key := availabilityKey(terminal, date, gate)
	if h.cache != nil {
		var cached []Slot
		err := h.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			metrics.CacheOutcomes.WithLabelValues(CapabilityName, "hit").Inc()
			return cached, nil
		case stderrors.Is(err, redis.Nil):
			metrics.CacheOutcomes.WithLabelValues(CapabilityName, "miss").Inc()
		default:
			metrics.CacheOutcomes.WithLabelValues(CapabilityName, "error").Inc()
			h.logger.Warn("slot cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	slots, err := h.querySlots(ctx, terminal, date, gate)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, key, slots, h.config.CacheTTL); err != nil {
			h.logger.Warn("slot cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return slots, nil
}

func (h *Handler) querySlots(ctx context.Context, terminal, date, gate string) ([]Slot, error) {
	query := "SELECT " + slotColumns + " FROM slots WHERE terminal = $1 AND slot_date = $2"
	args := []interface{}{terminal, date}
	if gate != "" {
		query += " AND gate = $3"
		args = append(args, gate)
	}
	query += " ORDER BY start_time"

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDataQueryFailedError("slot_availability", err)
	}
	defer rows.Close()

	slots := make([]Slot, 0, 16)
	for rows.Next() {
		var (
			slot      Slot
			slotGate  sql.NullString
			startTime time.Time
			endTime   time.Time
		)
		if err := rows.Scan(&slot.SlotID, &slot.Terminal, &slotGate, &startTime, &endTime, &slot.Capacity, &slot.Remaining); err != nil {
			return nil, errors.NewDataQueryFailedError("slot_availability", err)
		}
		slot.Gate = slotGate.String
		slot.Start = startTime.Format(slotTimeLayout)
		slot.End = endTime.Format(slotTimeLayout)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDataQueryFailedError("slot_availability", err)
	}
	return slots, nil
}

func (h *Handler) lowAvailability(slots []Slot) bool {
	if len(slots) == 0 {
		return false
	}
	remaining, capacity := 0, 0
	for _, s := range slots {
		remaining += s.Remaining
		capacity += s.Capacity
	}
	if capacity == 0 {
		return false
	}
	return float64(remaining)/float64(capacity) < h.config.LowAvailability
}

func (h *Handler) recommendationResponse(ctx context.Context, inv *registry.Invocation, slots []Slot, terminal, date, gate string) interface{} {
	carrierScore := h.cachedCarrierScore(ctx, inv)

	requested := RequestedSlot{
		Start:    date + " " + defaultRequestedTime,
		Terminal: terminal,
		Gate:     gate,
	}
	rec := RecommendSlots(requested, slots, carrierScore, h.config.MaxRecommendations)

	if len(rec.Recommended) == 0 {
		return map[string]interface{}{
			"message": fmt.Sprintf("Unfortunately, there are no available slots at terminal %s on %s.", terminal, date),
			"data": map[string]interface{}{
				"terminal":    terminal,
				"date":        date,
				"gate":        gate,
				"total_slots": len(slots),
				"recommended": []interface{}{},
				"strategy":    rec.Strategy,
				"reasons":     rec.Reasons,
			},
			"proofs": models.Proofs{
				models.ProofComponent: CapabilityName,
				"sources":             []string{"postgres:slots"},
				"algorithm":           "deterministic_slot_ranking",
			},
		}
	}

	recommended := make([]map[string]interface{}, 0, len(rec.Recommended))
	for _, r := range rec.Recommended {
		recommended = append(recommended, r.asPayload())
	}

	payload := map[string]interface{}{
		"terminal":    terminal,
		"date":        date,
		"gate":        gate,
		"total_slots": len(slots),
		"recommended": recommended,
		"strategy":    rec.Strategy,
		"reasons":     rec.Reasons,
	}
	if carrierScore != nil {
		payload["carrier_score"] = *carrierScore
	}
	return payload
}

// cachedCarrierScore reads the score the carrier score capability last
// cached. A cold cache simply means the standard strategy.
func (h *Handler) cachedCarrierScore(ctx context.Context, inv *registry.Invocation) *float64 {
	if h.cache == nil {
		return nil
	}
	carrierID := inv.CarrierID
	if carrierID == "" {
		carrierID = inv.Entities.GetString(models.EntityCarrierID)
	}
	if carrierID == "" {
		return nil
	}

	var cached struct {
		Score float64 `json:"score"`
	}
	if err := h.cache.GetJSON(ctx, fmt.Sprintf(carrierScoreKeyFmt, carrierID), &cached); err != nil {
		h.logger.Debug("no cached carrier score for recommendations", map[string]interface{}{
			"carrierId": carrierID,
		})
		return nil
	}
	return &cached.Score
}

func availabilityResponse(slots []Slot, terminal, date string) interface{} {
	totalRemaining, totalCapacity := 0, 0
	for _, s := range slots {
		totalRemaining += s.Remaining
		totalCapacity += s.Capacity
	}

	var message string
	switch {
	case len(slots) == 0:
		message = fmt.Sprintf("No slots found for terminal %s on %s.", terminal, date)
	case totalRemaining == 0:
		message = fmt.Sprintf("All slots at terminal %s are fully booked on %s.", terminal, date)
	default:
		message = fmt.Sprintf("Terminal %s on %s has %d/%d total capacity available across %d time slots.",
			terminal, date, totalRemaining, totalCapacity, len(slots))
	}

	return map[string]interface{}{
		"message": message,
		"data": map[string]interface{}{
			"terminal":        terminal,
			"date":            date,
			"total_slots":     len(slots),
			"total_remaining": totalRemaining,
			"total_capacity":  totalCapacity,
			"slots":           slots,
		},
		"proofs": models.Proofs{
			models.ProofComponent: CapabilityName,
			"sources":             []string{"postgres:slots"},
		},
	}
}

func wantsRecommendations(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range recommendationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func availabilityKey(terminal, date, gate string) string {
	if gate == "" {
		gate = "any"
	}
	return fmt.Sprintf(availabilityKeyFmt, terminal, date, gate)
}
