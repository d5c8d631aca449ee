// internal/capabilities/anomaly-detect/handler.go
package anomalydetect

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/notify"
	"smartport-assistant/pkg/registry"
)

// CapabilityName identifies this capability in the decision trail
const CapabilityName = "AnomalyAgent"

const anomalyIndex = "port-anomalies"

// Alert fan-out cap per turn. Repeated queries over the same window must not
// flood the ops channels.
const maxAlertsPerTurn = 3

// AlertSink delivers critical findings to the ops team. *notify.Notifier
// satisfies it; a nil sink disables fan-out.
type AlertSink interface {
	AlertAnomaly(ctx context.Context, alert *notify.AnomalyAlert) (*notify.AlertOutcome, error)
}

// Handler surfaces recent anomalies from the port-anomalies index
type Handler struct {
	config *Config
	es     *database.ElasticsearchClient
	alerts AlertSink
	logger logger.Logger
}

// NewHandler creates an anomaly detection handler
func NewHandler(config *Config, es *database.ElasticsearchClient, alerts AlertSink, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		es:     es,
		alerts: alerts,
		logger: log.WithFields(map[string]interface{}{
			"capability": CapabilityName,
		}),
	}
}

// Execute lists anomalies detected in the lookback window, optionally
// filtered by terminal and carrier, and forwards critical findings to the
// alert sink.
func (h *Handler) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	terminal := strings.ToUpper(strings.TrimSpace(inv.Entities.GetString(models.EntityTerminal)))
	carrierID := strings.TrimSpace(inv.Entities.GetString(models.EntityCarrierID))

	now := inv.ReferenceTime
	if now.IsZero() {
		now = time.Now().UTC()
	}
	since := now.AddDate(0, 0, -h.config.LookbackDays).Format(time.RFC3339)

	ctx, cancel := context.WithTimeout(ctx, h.config.QueryTimeout)
	defer cancel()

	envelope, err := h.es.Search(ctx, anomalyIndex, anomalyQuery(terminal, carrierID, since, h.config.MaxResults))
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewBackendTimeoutError("elasticsearch")
		}
		return nil, errors.NewDataQueryFailedError("anomaly_detection", err)
	}

	hits := database.HitsFrom(envelope)
	anomalies := make([]Anomaly, 0, len(hits))
	for _, hit := range hits {
		anomalies = append(anomalies, anomalyFromSource(hit))
	}

	location := "all terminals"
	if terminal != "" {
		location = "terminal " + terminal
	}

	h.logger.Info("anomaly window queried", map[string]interface{}{
		"terminal": terminal,
		"days":     h.config.LookbackDays,
		"count":    len(anomalies),
	})

	h.publishCriticalAlerts(ctx, anomalies)

	return map[string]interface{}{
		"description": anomalyDigest(anomalies, location, h.config.LookbackDays),
		"anomalies":   anomalies,
		"total_count": len(anomalies),
		"terminal":    terminal,
		"days":        h.config.LookbackDays,
	}, nil
}

// anomalyDigest renders the chat message: count headline, a per-type
// breakdown in first-seen order, then the three most recent events.
func anomalyDigest(anomalies []Anomaly, location string, days int) string {
	if len(anomalies) == 0 {
		return fmt.Sprintf("No anomalies detected for %s in the last %d days. Everything looks normal!", location, days)
	}

	counts := map[string]int{}
	order := []string{}
	for _, anomaly := range anomalies {
		anomalyType := anomaly.Type
		if anomalyType == "" {
			anomalyType = "unknown"
		}
		if _, seen := counts[anomalyType]; !seen {
			order = append(order, anomalyType)
		}
		counts[anomalyType]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d anomaly(ies) for %s in the last %d days:", len(anomalies), location, days)

	b.WriteString("\n\nBreakdown by type:")
	for _, anomalyType := range order {
		fmt.Fprintf(&b, "\n• %s: %d", anomalyType, counts[anomalyType])
	}

	b.WriteString("\n\nMost recent:")
	for i, anomaly := range anomalies {
		if i == 3 {
			break
		}
		description := anomaly.Description
		if description == "" {
			description = "Anomaly detected"
		}
		fmt.Fprintf(&b, "\n• [%s] %s", anomaly.Timestamp, description)
	}
	return b.String()
}

func (h *Handler) publishCriticalAlerts(ctx context.Context, anomalies []Anomaly) {
	if h.alerts == nil {
		return
	}

	published := 0
	for _, anomaly := range anomalies {
		if !strings.EqualFold(anomaly.Severity, notify.SeverityCritical) {
			continue
		}
		if published == maxAlertsPerTurn {
			break
		}

		description := anomaly.Description
		if description == "" {
			description = "Anomaly detected"
		}
		outcome, err := h.alerts.AlertAnomaly(ctx, &notify.AnomalyAlert{
			AnomalyID:   anomaly.AnomalyID,
			Severity:    notify.SeverityCritical,
			Description: description,
			Terminal:    anomaly.Terminal,
			Gate:        anomaly.Gate,
			DetectedAt:  anomaly.Timestamp,
		})
		if err != nil {
			h.logger.Warn("anomaly alert publish failed", map[string]interface{}{
				"anomaly_id": anomaly.AnomalyID,
				"error":      err.Error(),
			})
			continue
		}

		h.logger.Info("anomaly alert published", map[string]interface{}{
			"anomaly_id": anomaly.AnomalyID,
			"alert_id":   outcome.AlertID,
			"status":     outcome.Status,
		})
		published++
	}
}

func anomalyQuery(terminal, carrierID, since string, size int) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"range": map[string]interface{}{
			"timestamp": map[string]interface{}{"gte": since},
		}},
	}
	if terminal != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"terminal": terminal}})
	}
	if carrierID != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"carrier_id": carrierID}})
	}

	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
}
