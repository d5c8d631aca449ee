// internal/capabilities/traffic-forecast/handler.go
package trafficforecast

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
	"smartport-assistant/internal/orchestrator/entities"
	"smartport-assistant/pkg/registry"
)

// CapabilityName identifies this capability in the decision trail
const CapabilityName = "TrafficAgent"

const trafficIndex = "port-traffic"

// Handler forecasts terminal traffic from the port-traffic index
type Handler struct {
	config *Config
	es     *database.ElasticsearchClient
	logger logger.Logger
}

// NewHandler creates a traffic forecast handler
func NewHandler(config *Config, es *database.ElasticsearchClient, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		es:     es,
		logger: log.WithFields(map[string]interface{}{
			"capability": CapabilityName,
		}),
	}
}

// Execute aggregates hourly traffic observations for the requested terminal
// and window into a forecast. Terminal and date are both optional: without a
// terminal the forecast covers the whole port, without a date it covers the
// current day.
func (h *Handler) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	terminal := strings.ToUpper(strings.TrimSpace(inv.Entities.GetString(models.EntityTerminal)))
	gate := strings.ToUpper(strings.TrimSpace(inv.Entities.GetString(models.EntityGate)))

	now := inv.ReferenceTime
	if now.IsZero() {
		now = time.Now().UTC()
	}
	date := entities.ResolveDate(inv.Entities, now)
	queryDate := date
	if queryDate == "" {
		queryDate = now.Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.QueryTimeout)
	defer cancel()

	envelope, err := h.es.Search(ctx, trafficIndex, trafficQuery(terminal, queryDate, gate, h.config.MaxPoints))
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewBackendTimeoutError("elasticsearch")
		}
		return nil, errors.NewDataQueryFailedError("traffic_forecast", err)
	}

	hits := database.HitsFrom(envelope)
	points := make([]TrafficPoint, 0, len(hits))
	for _, hit := range hits {
		points = append(points, pointFromSource(hit))
	}

	location := "the port"
	if terminal != "" {
		location = "terminal " + terminal
	}
	timeRef := "soon"
	if date != "" {
		timeRef = "on " + date
	}

	if len(points) == 0 {
		h.logger.Info("no traffic observations for window", map[string]interface{}{
			"terminal": terminal,
			"date":     queryDate,
		})
		return map[string]interface{}{
			"summary":      fmt.Sprintf("No traffic data recorded for %s %s.", location, timeRef),
			"terminal":     terminal,
			"date":         queryDate,
			"observations": 0,
		}, nil
	}

	forecast := BuildForecast(points)
	h.logger.Info("traffic forecast computed", map[string]interface{}{
		"terminal":     terminal,
		"date":         queryDate,
		"observations": forecast.Observations,
		"level":        forecast.CongestionLevel,
	})

	return map[string]interface{}{
		"summary":          forecastSummary(forecast, location, timeRef),
		"terminal":         terminal,
		"date":             queryDate,
		"peak_hour":        forecast.PeakHour,
		"peak_intensity":   forecast.PeakIntensity,
		"avg_intensity":    forecast.AvgIntensity,
		"congestion_level": forecast.CongestionLevel,
		"recommendations":  forecast.Recommendations,
		"observations":     forecast.Observations,
		"horizon_hours":    h.config.HorizonHours,
	}, nil
}

// forecastSummary renders the chat message: headline, peak, congestion level,
// then at most three recommendations.
func forecastSummary(forecast Forecast, location, timeRef string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Traffic forecast for %s %s:", location, timeRef)
	if forecast.PeakHour != "" {
		fmt.Fprintf(&b, "\n• Peak traffic expected around %s", forecast.PeakHour)
	}
	fmt.Fprintf(&b, "\n• Congestion level: %s", forecast.CongestionLevel)

	if len(forecast.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:")
		for i, rec := range forecast.Recommendations {
			if i == 3 {
				break
			}
			b.WriteString("\n• " + rec)
		}
	}
	return b.String()
}

func trafficQuery(terminal, date, gate string, size int) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"date": date}},
	}
	if terminal != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"terminal": terminal}})
	}
	if gate != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"gate": gate}})
	}

	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
			},
		},
		"sort": []map[string]interface{}{
			{"hour": map[string]interface{}{"order": "asc"}},
		},
	}
}
