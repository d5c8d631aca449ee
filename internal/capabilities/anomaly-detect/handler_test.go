// internal/capabilities/anomaly-detect/handler_test.go
package anomalydetect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/notify"
	"smartport-assistant/pkg/registry"
)

var testReference = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// ==========================================================================
// Test Helpers
// ==========================================================================

func createTestConfig() *Config {
	return &Config{
		QueryTimeout: 2 * time.Second,
		LookbackDays: 7,
		MaxResults:   50,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createInvocation(bag models.EntityBag) *registry.Invocation {
	return &registry.Invocation{
		TraceID:       "trace-anomaly-test",
		Message:       "any anomalies lately",
		Intent:        models.IntentAnomalyDetection,
		Entities:      bag,
		Role:          models.RoleAdmin,
		UserID:        "user-1",
		ReferenceTime: testReference,
	}
}

func esTestClient(t *testing.T, respond http.HandlerFunc) *database.ElasticsearchClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		respond(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &database.ElasticsearchClient{Client: client}
}

func searchEnvelope(t *testing.T, sources ...map[string]interface{}) []byte {
	t.Helper()
	hits := make([]map[string]interface{}, 0, len(sources))
	for _, source := range sources {
		hits = append(hits, map[string]interface{}{"_source": source})
	}
	raw, err := json.Marshal(map[string]interface{}{
		"hits": map[string]interface{}{"hits": hits},
	})
	require.NoError(t, err)
	return raw
}

func anomalySource(id, anomalyType, severity, description, timestamp string) map[string]interface{} {
	return map[string]interface{}{
		"anomaly_id":  id,
		"type":        anomalyType,
		"severity":    severity,
		"description": description,
		"terminal":    "A",
		"gate":        "G1",
		"timestamp":   timestamp,
	}
}

func filterClauses(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	query, ok := body["query"].(map[string]interface{})
	require.True(t, ok)
	boolQuery, ok := query["bool"].(map[string]interface{})
	require.True(t, ok)
	clauses, ok := boolQuery["filter"].([]interface{})
	require.True(t, ok)
	return clauses
}

func termFilters(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	terms := map[string]interface{}{}
	for _, clause := range filterClauses(t, body) {
		clauseMap, ok := clause.(map[string]interface{})
		require.True(t, ok)
		if term, ok := clauseMap["term"].(map[string]interface{}); ok {
			for field, value := range term {
				terms[field] = value
			}
		}
	}
	return terms
}

func timestampGte(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	for _, clause := range filterClauses(t, body) {
		clauseMap, ok := clause.(map[string]interface{})
		require.True(t, ok)
		rangeClause, ok := clauseMap["range"].(map[string]interface{})
		if !ok {
			continue
		}
		timestamp, ok := rangeClause["timestamp"].(map[string]interface{})
		require.True(t, ok)
		gte, ok := timestamp["gte"].(string)
		require.True(t, ok)
		return gte
	}
	t.Fatal("no timestamp range filter in query")
	return ""
}

func asResult(t *testing.T, raw interface{}) map[string]interface{} {
	t.Helper()
	result, ok := raw.(map[string]interface{})
	require.True(t, ok, "expected map result, got %T", raw)
	return result
}

// fakeSink records published alerts in place of SES/SNS delivery.
type fakeSink struct {
	alerts []*notify.AnomalyAlert
	err    error
}

func (f *fakeSink) AlertAnomaly(_ context.Context, alert *notify.AnomalyAlert) (*notify.AlertOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.alerts = append(f.alerts, alert)
	return &notify.AlertOutcome{
		AlertID: fmt.Sprintf("alert-%d", len(f.alerts)),
		Status:  notify.StatusSent,
		SentAt:  testReference.Format(time.RFC3339),
	}, nil
}

// ==========================================================================
// Digest Tests
// ==========================================================================

func TestHandler_Execute_AnomalyDigest(t *testing.T) {
	var capturedBody map[string]interface{}

	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&capturedBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(searchEnvelope(t,
			anomalySource("AN-4", "no_show", "medium", "Carrier missed slot window", "2026-03-09T16:00:00Z"),
			anomalySource("AN-3", "gate_jam", "high", "Queue backed up at gate G1", "2026-03-09T11:30:00Z"),
			anomalySource("AN-2", "no_show", "low", "Carrier missed slot window", "2026-03-08T08:15:00Z"),
			anomalySource("AN-1", "sensor_fault", "low", "", "2026-03-07T22:40:00Z"),
		))
	})
	handler := NewHandler(createTestConfig(), es, nil, createTestLogger(t))

	raw, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{
		models.EntityTerminal: "a",
	}))

	require.NoError(t, err)
	filters := termFilters(t, capturedBody)
	assert.Equal(t, "A", filters["terminal"])
	assert.Equal(t, "2026-03-03T09:00:00Z", timestampGte(t, capturedBody), "lookback window anchored on the reference time")

	result := asResult(t, raw)
	assert.Equal(t, "Found 4 anomaly(ies) for terminal A in the last 7 days:"+
		"\n\nBreakdown by type:"+
		"\n• no_show: 2"+
		"\n• gate_jam: 1"+
		"\n• sensor_fault: 1"+
		"\n\nMost recent:"+
		"\n• [2026-03-09T16:00:00Z] Carrier missed slot window"+
		"\n• [2026-03-09T11:30:00Z] Queue backed up at gate G1"+
		"\n• [2026-03-08T08:15:00Z] Carrier missed slot window", result["description"])
	assert.Equal(t, 4, result["total_count"])
	assert.Equal(t, 7, result["days"])

	anomalies, ok := result["anomalies"].([]Anomaly)
	require.True(t, ok)
	assert.Len(t, anomalies, 4)
	assert.Equal(t, "AN-4", anomalies[0].AnomalyID)
}

func TestHandler_Execute_NoAnomalies(t *testing.T) {
	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(searchEnvelope(t))
	})
	handler := NewHandler(createTestConfig(), es, nil, createTestLogger(t))

	raw, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{}))

	require.NoError(t, err)
	result := asResult(t, raw)
	assert.Equal(t, "No anomalies detected for all terminals in the last 7 days. Everything looks normal!", result["description"])
	assert.Equal(t, 0, result["total_count"])
}

func TestHandler_Execute_CarrierFilter(t *testing.T) {
	var capturedBody map[string]interface{}

	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&capturedBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(searchEnvelope(t))
	})
	handler := NewHandler(createTestConfig(), es, nil, createTestLogger(t))

	_, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{
		models.EntityCarrierID: "CAR-12",
	}))

	require.NoError(t, err)
	filters := termFilters(t, capturedBody)
	assert.Equal(t, "CAR-12", filters["carrier_id"])
	assert.NotContains(t, filters, "terminal")
}

// ==========================================================================
// Alert Fan-out Tests
// ==========================================================================

func TestHandler_Execute_PublishesCriticalAlerts(t *testing.T) {
	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(searchEnvelope(t,
			anomalySource("AN-9", "gate_jam", "critical", "Gate blocked by stalled truck", "2026-03-09T16:00:00Z"),
			anomalySource("AN-8", "no_show", "medium", "Carrier missed slot window", "2026-03-09T11:30:00Z"),
			anomalySource("AN-7", "sensor_fault", "CRITICAL", "Lane sensor offline", "2026-03-09T10:00:00Z"),
		))
	})
	sink := &fakeSink{}
	handler := NewHandler(createTestConfig(), es, sink, createTestLogger(t))

	_, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{}))

	require.NoError(t, err)
	require.Len(t, sink.alerts, 2, "only critical severities fan out")
	assert.Equal(t, "AN-9", sink.alerts[0].AnomalyID)
	assert.Equal(t, notify.SeverityCritical, sink.alerts[0].Severity)
	assert.Equal(t, "Gate blocked by stalled truck", sink.alerts[0].Description)
	assert.Equal(t, "A", sink.alerts[0].Terminal)
	assert.Equal(t, "AN-7", sink.alerts[1].AnomalyID)
}

func TestHandler_Execute_AlertCapPerTurn(t *testing.T) {
	sources := make([]map[string]interface{}, 0, 5)
	for i := 0; i < 5; i++ {
		sources = append(sources, anomalySource(
			fmt.Sprintf("AN-%d", i), "gate_jam", "critical", "Blocked", "2026-03-09T16:00:00Z"))
	}
	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(searchEnvelope(t, sources...))
	})
	sink := &fakeSink{}
	handler := NewHandler(createTestConfig(), es, sink, createTestLogger(t))

	_, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{}))

	require.NoError(t, err)
	assert.Len(t, sink.alerts, maxAlertsPerTurn)
}

func TestHandler_Execute_SinkFailureIsNonFatal(t *testing.T) {
	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(searchEnvelope(t,
			anomalySource("AN-9", "gate_jam", "critical", "Gate blocked", "2026-03-09T16:00:00Z"),
		))
	})
	sink := &fakeSink{err: fmt.Errorf("sns unreachable")}
	handler := NewHandler(createTestConfig(), es, sink, createTestLogger(t))

	raw, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{}))

	require.NoError(t, err, "alert delivery problems must not fail the turn")
	result := asResult(t, raw)
	assert.Equal(t, 1, result["total_count"])
}

// ==========================================================================
// Error Handling Tests
// ==========================================================================

func TestHandler_Execute_QueryError(t *testing.T) {
	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	handler := NewHandler(createTestConfig(), es, nil, createTestLogger(t))

	raw, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{}))

	assert.Nil(t, raw)
	require.Error(t, err)
	assert.Equal(t, "query", errors.FailureKind(err))
}

func TestHandler_Execute_Timeout(t *testing.T) {
	es := esTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	config := createTestConfig()
	config.QueryTimeout = 20 * time.Millisecond
	handler := NewHandler(config, es, nil, createTestLogger(t))

	raw, err := handler.Execute(context.Background(), createInvocation(models.EntityBag{}))

	assert.Nil(t, raw)
	require.Error(t, err)
	assert.Equal(t, "timeout", errors.FailureKind(err))
}
