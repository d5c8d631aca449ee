// internal/capabilities/analytics-report/handler.go
package analyticsreport

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/common/metrics"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/entities"
	"smartport-assistant/pkg/registry"
)

const (
	CapabilityName = "AnalyticsAgent"

	trafficIndex = "port-traffic"
	anomalyIndex = "port-anomalies"

	stressKeyFmt = "stress:%s:%s:%s"

	maxAlertsShown = 5
)

// Source labels recorded in data_quality.
const (
	sourceSlots     = "postgres:slots"
	sourceTraffic   = "elasticsearch:port-traffic"
	sourceAnomalies = "elasticsearch:port-anomalies"
	sourceBookings  = "postgres:bookings"
)

// Neutral fallbacks used when a source cannot be reached. They keep the
// index computable without skewing it toward either extreme.
const (
	fallbackUtilization = 0.5
	fallbackCapacity    = 100
	fallbackRemaining   = 50
	fallbackIntensity   = 0.5
)

// severityWeight turns categorical anomaly severities into the 0-1 scale
// the anomaly pressure driver expects.
var severityWeight = map[string]float64{
	SeverityCritical: 1.0,
	SeverityHigh:     0.75,
	SeverityMedium:   0.5,
	SeverityLow:      0.25,
}

var errSourceDisabled = stderrors.New("source not configured")

var titleCaser = cases.Title(language.English)

// levelBadge prefixes the stress summary line.
var levelBadge = map[string]string{
	LevelLow:      "✓",
	LevelMedium:   "⚠",
	LevelHigh:     "⚠️",
	LevelCritical: "🚨",
}

// Handler serves both analytics intents. Stress questions get the composite
// index with its drivers; alert questions run the proactive rules over the
// same inputs. Source failures degrade to neutral defaults rather than
// failing the request, and the report says so in data_quality.
type Handler struct {
	config *Config
	db     *database.PostgresClient
	es     *database.ElasticsearchClient
	cache  *database.RedisClient
	logger logger.Logger
}

func NewHandler(config *Config, db *database.PostgresClient, es *database.ElasticsearchClient, cache *database.RedisClient, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		es:     es,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"capability": CapabilityName}),
	}
}

func (h *Handler) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	terminal := strings.ToUpper(strings.TrimSpace(inv.Entities.GetString(models.EntityTerminal)))
	if terminal == "" {
		return nil, missingTerminalError(inv.Intent)
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

	snapshot := h.loadSnapshot(ctx, terminal, gate, date, now)

	if inv.Intent == models.IntentAnalyticsAlerts {
		return h.alertsResponse(snapshot, terminal, date, now), nil
	}
	return stressResponse(snapshot.Report, terminal), nil
}

// loadSnapshot reads a recent stress computation through the cache, or
// gathers fresh inputs and computes one. Cache failures degrade to a fresh
// computation, never to an error.
func (h *Handler) loadSnapshot(ctx context.Context, terminal, gate, date string, now time.Time) stressSnapshot {
	key := stressKey(terminal, date, gate)
	if h.cache != nil {
		var cached stressSnapshot
		err := h.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			metrics.CacheOutcomes.WithLabelValues(CapabilityName, "hit").Inc()
			return cached
		case stderrors.Is(err, redis.Nil):
			metrics.CacheOutcomes.WithLabelValues(CapabilityName, "miss").Inc()
		default:
			metrics.CacheOutcomes.WithLabelValues(CapabilityName, "error").Inc()
			h.logger.Warn("stress cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	inputs := h.gatherInputs(ctx, terminal, date, now)
	report := ComputeStress(inputs, terminal, gate, date, h.config.HorizonHours, now)
	snapshot := stressSnapshot{Report: report, Inputs: inputs}

	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, key, snapshot, h.config.StressCacheTTL); err != nil {
			h.logger.Warn("stress cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return snapshot
}

// gatherInputs queries every source independently. A failed source is logged,
// recorded in Missing and replaced by its neutral default, so one flaky
// backend never takes the whole report down.
func (h *Handler) gatherInputs(ctx context.Context, terminal, date string, now time.Time) StressInputs {
	inputs := StressInputs{
		TotalCapacity:    fallbackCapacity,
		TotalRemaining:   fallbackRemaining,
		Utilization:      fallbackUtilization,
		TrafficIntensity: fallbackIntensity,
		Sources:          []string{},
		Missing:          []string{},
	}

	if capacity, remaining, err := h.queryCapacity(ctx, terminal, date); err != nil {
		h.logger.Warn("capacity source unavailable", map[string]interface{}{"terminal": terminal, "error": err.Error()})
		inputs.Missing = append(inputs.Missing, sourceSlots)
	} else {
		inputs.TotalCapacity = capacity
		inputs.TotalRemaining = remaining
		inputs.Utilization = 0
		if capacity > 0 {
			inputs.Utilization = 1 - float64(remaining)/float64(capacity)
		}
		inputs.Sources = append(inputs.Sources, sourceSlots)
	}

	if intensity, peak, err := h.queryTraffic(ctx, terminal, date); err != nil {
		h.logger.Warn("traffic source unavailable", map[string]interface{}{"terminal": terminal, "error": err.Error()})
		inputs.Missing = append(inputs.Missing, sourceTraffic)
	} else {
		inputs.TrafficIntensity = intensity
		inputs.PeakHour = peak
		inputs.Sources = append(inputs.Sources, sourceTraffic)
	}

	if count, severityAvg, err := h.queryAnomalies(ctx, terminal, now); err != nil {
		h.logger.Warn("anomaly source unavailable", map[string]interface{}{"terminal": terminal, "error": err.Error()})
		inputs.Missing = append(inputs.Missing, sourceAnomalies)
	} else {
		inputs.AnomalyCount = count
		inputs.AnomalySeverity = severityAvg
		inputs.Sources = append(inputs.Sources, sourceAnomalies)
	}

	if pending, err := h.queryPending(ctx, terminal, date); err != nil {
		h.logger.Warn("bookings source unavailable", map[string]interface{}{"terminal": terminal, "error": err.Error()})
		inputs.Missing = append(inputs.Missing, sourceBookings)
	} else {
		inputs.PendingBookings = pending
		inputs.Sources = append(inputs.Sources, sourceBookings)
	}

	return inputs
}

// queryCapacity aggregates slot capacity for the terminal and date.
func (h *Handler) queryCapacity(ctx context.Context, terminal, date string) (int, int, error) {
	if h.db == nil {
		return 0, 0, errSourceDisabled
	}
	var capacity, remaining int
	err := h.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(capacity), 0), COALESCE(SUM(remaining), 0) FROM slots WHERE terminal = $1 AND slot_date = $2",
		terminal, date).Scan(&capacity, &remaining)
	if err != nil {
		return 0, 0, err
	}
	return capacity, remaining, nil
}

// queryTraffic returns the peak forecast intensity for the date and the hour
// it falls on. An empty forecast is a valid answer, not a missing source.
func (h *Handler) queryTraffic(ctx context.Context, terminal, date string) (float64, string, error) {
	if h.es == nil {
		return 0, "", errSourceDisabled
	}
	envelope, err := h.es.Search(ctx, trafficIndex, trafficPeakQuery(terminal, date, h.config.MaxTrafficHits))
	if err != nil {
		return 0, "", err
	}

	peakIntensity := 0.0
	peakHour := -1
	for _, source := range database.HitsFrom(envelope) {
		intensity, ok := source["intensity"].(float64)
		if !ok {
			continue
		}
		if intensity > peakIntensity || peakHour < 0 {
			peakIntensity = intensity
			peakHour = 0
			if v, ok := source["hour"].(float64); ok {
				peakHour = int(v)
			}
		}
	}
	if peakHour < 0 {
		return 0, "unknown", nil
	}
	return peakIntensity, fmt.Sprintf("%02d:00", peakHour), nil
}

// queryAnomalies counts recent anomaly events and averages their severity
// on the 0-1 scale.
func (h *Handler) queryAnomalies(ctx context.Context, terminal string, now time.Time) (int, float64, error) {
	if h.es == nil {
		return 0, 0, errSourceDisabled
	}
	since := now.Add(-time.Duration(h.config.HorizonHours) * time.Hour).UTC().Format(time.RFC3339)
	envelope, err := h.es.Search(ctx, anomalyIndex, anomalyWindowQuery(terminal, since, h.config.MaxAnomalyHits))
	if err != nil {
		return 0, 0, err
	}

	hits := database.HitsFrom(envelope)
	if len(hits) == 0 {
		return 0, 0, nil
	}
	total := 0.0
	for _, source := range hits {
		severity, _ := source["severity"].(string)
		weight, ok := severityWeight[strings.ToLower(severity)]
		if !ok {
			weight = 0.5
		}
		total += weight
	}
	return len(hits), total / float64(len(hits)), nil
}

// queryPending counts bookings still awaiting confirmation for the date.
func (h *Handler) queryPending(ctx context.Context, terminal, date string) (int, error) {
	if h.db == nil {
		return 0, errSourceDisabled
	}
	var pending int
	err := h.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM bookings WHERE terminal = $1 AND status = 'pending' AND slot_time >= $2 AND slot_time < $3",
		terminal, date, nextDay(date)).Scan(&pending)
	if err != nil {
		return 0, err
	}
	return pending, nil
}

func stressResponse(report StressReport, terminal string) map[string]interface{} {
	return map[string]interface{}{
		"summary":         stressSummary(terminal, report),
		"stress_index":    report.Index,
		"level":           report.Level,
		"drivers":         report.Drivers,
		"reasons":         report.Reasons,
		"recommendations": report.Recommendations,
		"metadata":        report.Metadata,
		"data_quality":    report.DataQuality,
		"computed_at":     report.ComputedAt,
	}
}

func (h *Handler) alertsResponse(snapshot stressSnapshot, terminal, date string, now time.Time) interface{} {
	alerts := GenerateAlerts(snapshot.Report, snapshot.Inputs, terminal, h.config.HorizonHours, now, h.config.MinimumSeverity)
	if len(alerts) == 0 {
		return fmt.Sprintf("✓ No active alerts for terminal %s. Operations normal.", terminal)
	}

	return map[string]interface{}{
		"message":      alertsMessage(terminal, alerts),
		"terminal":     terminal,
		"date":         date,
		"alerts_count": len(alerts),
		"alerts":       alerts,
		"summary":      summarizeAlerts(alerts),
	}
}

// stressSummary renders the conversational stress report.
func stressSummary(terminal string, report StressReport) string {
	badge, ok := levelBadge[report.Level]
	if !ok {
		badge = "•"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Terminal %s Stress Index: %.1f/100 (%s)\n\n", badge, terminal, report.Index, strings.ToUpper(report.Level))

	sb.WriteString("**Key Drivers:**\n")
	for _, key := range driverOrder {
		value, ok := report.Drivers[key]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "• %s: %.0f/100\n", driverLabel(key), value)
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintf(&sb, "\n**Recommendation:** %s", report.Recommendations[0])
	}
	return sb.String()
}

// driverLabel renders "capacity_pressure" as "Capacity Pressure".
func driverLabel(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// alertsMessage lists the first alerts by severity tag and title.
func alertsMessage(terminal string, alerts []Alert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "⚠ %d alert(s) for terminal %s:\n\n", len(alerts), terminal)

	shown := alerts
	if len(shown) > maxAlertsShown {
		shown = shown[:maxAlertsShown]
	}
	for i, alert := range shown {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, strings.ToUpper(alert.Severity), alert.Title)
	}
	if len(alerts) > maxAlertsShown {
		fmt.Fprintf(&sb, "\n... and %d more alert(s)", len(alerts)-maxAlertsShown)
	}
	return sb.String()
}

func summarizeAlerts(alerts []Alert) map[string]interface{} {
	byType := map[string]int{}
	bySeverity := map[string]int{
		SeverityLow:      0,
		SeverityMedium:   0,
		SeverityHigh:     0,
		SeverityCritical: 0,
	}
	for _, alert := range alerts {
		byType[alert.Type]++
		bySeverity[alert.Severity]++
	}
	return map[string]interface{}{
		"by_type":     byType,
		"by_severity": bySeverity,
	}
}

func missingTerminalError(intent models.Intent) error {
	if intent == models.IntentAnalyticsAlerts {
		return errors.NewValidationError("Please specify a terminal for alerts.").
			WithMetadata("missing_field", models.EntityTerminal).
			WithMetadata("example", "terminal=A").
			WithMetadata("suggestion", "Try: 'Show alerts for terminal A' or 'What warnings exist for terminal B today?'")
	}
	return errors.NewValidationError("Please specify a terminal to analyze.").
		WithMetadata("missing_field", models.EntityTerminal).
		WithMetadata("example", "terminal=A").
		WithMetadata("suggestion", "Try: 'What is the stress level at terminal A?' or 'Compute stress index for terminal B today'")
}

func stressKey(terminal, date, gate string) string {
	if gate == "" {
		gate = "any"
	}
	return fmt.Sprintf(stressKeyFmt, terminal, date, gate)
}

func nextDay(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, 1).Format("2006-01-02")
}

func trafficPeakQuery(terminal, date string, size int) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"date": date}},
		map[string]interface{}{"term": map[string]interface{}{"terminal": terminal}},
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

func anomalyWindowQuery(terminal, since string, size int) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"range": map[string]interface{}{
			"timestamp": map[string]interface{}{"gte": since},
		}},
		map[string]interface{}{"term": map[string]interface{}{"terminal": terminal}},
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
