// internal/capabilities/carrier-score/handler.go
package carrierscore

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/errors"
	httpclient "smartport-assistant/internal/common/http"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/common/metrics"
	"smartport-assistant/internal/models"
	"smartport-assistant/pkg/registry"
)

// CapabilityName identifies this capability in the decision trail
const CapabilityName = "CarrierScoreAgent"

const (
	statsPathFmt = "/carriers/%s/stats"

	// Shared with the slot capability, which reads the cached score to
	// decide whether to recommend earlier slots as a reliability buffer.
	cacheKeyFmt = "carrier:score:%s"
)

// Handler scores carriers from backend booking statistics
type Handler struct {
	config  *Config
	backend *httpclient.Client
	cache   *database.RedisClient
	logger  logger.Logger
}

// NewHandler creates a carrier score handler
func NewHandler(config *Config, backend *httpclient.Client, cache *database.RedisClient, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		backend: backend,
		cache:   cache,
		logger: log.WithFields(map[string]interface{}{
			"capability": CapabilityName,
		}),
	}
}

// Execute resolves the carrier, fetches its booking statistics and returns
// the deterministic reliability score.
func (h *Handler) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	carrierID := inv.Entities.GetString(models.EntityCarrierID)
	if carrierID == "" {
		carrierID = inv.CarrierID
	}
	if carrierID == "" {
		return nil, errors.NewValidationError("I couldn't identify which carrier you're asking about. Please specify a carrier ID.").
			WithMetadata("missing_field", models.EntityCarrierID).
			WithMetadata("example", "carrier 123").
			WithMetadata("suggestion", "Try asking: 'What's the score for carrier 123?' or 'Rate company ID 456'")
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.RequestTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf(cacheKeyFmt, carrierID)
	if cached, ok := h.cachedScore(ctx, cacheKey); ok {
		metrics.CacheOutcomes.WithLabelValues(CapabilityName, "hit").Inc()
		return h.scoreEnvelope(carrierID, cached), nil
	}
	metrics.CacheOutcomes.WithLabelValues(CapabilityName, "miss").Inc()

	var stats CarrierStats
	err := h.backend.GetJSON(ctx, fmt.Sprintf(statsPathFmt, carrierID), &stats)
	switch {
	case err == nil:
	case stderrors.Is(err, httpclient.ErrNotFound):
		h.logger.Info("carrier not found in scoring backend", map[string]interface{}{
			"carrier_id": carrierID,
		})
		return h.notFoundEnvelope(carrierID), nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return nil, errors.NewBackendTimeoutError("scoring")
	default:
		return nil, errors.NewBackendUnavailableError("scoring", err)
	}

	result := ScoreCarrier(stats)
	h.storeScore(ctx, cacheKey, result)

	h.logger.Info("carrier scored", map[string]interface{}{
		"carrier_id": carrierID,
		"score":      result.Score,
		"tier":       result.Tier,
	})
	return h.scoreEnvelope(carrierID, result), nil
}

func (h *Handler) cachedScore(ctx context.Context, key string) (ScoreResult, bool) {
	if h.cache == nil {
		return ScoreResult{}, false
	}
	var cached ScoreResult
	if err := h.cache.GetJSON(ctx, key, &cached); err != nil {
		if !stderrors.Is(err, redis.Nil) {
			h.logger.Warn("carrier score cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return ScoreResult{}, false
	}
	return cached, true
}

func (h *Handler) storeScore(ctx context.Context, key string, result ScoreResult) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetJSON(ctx, key, result, h.config.CacheTTL); err != nil {
		h.logger.Warn("carrier score cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// scoreEnvelope wraps the result in the ok/result shape the response
// normalizer turns into a "Score: X/100 (Tier Y)" message.
func (h *Handler) scoreEnvelope(carrierID string, result ScoreResult) map[string]interface{} {
	return map[string]interface{}{
		"ok": true,
		"result": map[string]interface{}{
			"carrier_id": carrierID,
			"score":      result.Score,
			"tier":       result.Tier,
			"confidence": result.Confidence,
			"stats":      result.StatsSummary,
			"components": result.Components,
			"reasons":    result.Reasons,
		},
		"proofs": models.Proofs{
			models.ProofComponent: CapabilityName,
			"sources":             []string{"scoring-service"},
			"algorithm":           "deterministic_weighted_scoring",
		},
	}
}

func (h *Handler) notFoundEnvelope(carrierID string) map[string]interface{} {
	return map[string]interface{}{
		"ok": false,
		"error": map[string]interface{}{
			"type":        "NotFound",
			"message":     fmt.Sprintf("Carrier %s not found in the system.", carrierID),
			"status_code": 404,
		},
		"proofs": models.Proofs{
			models.ProofComponent: CapabilityName,
		},
	}
}
