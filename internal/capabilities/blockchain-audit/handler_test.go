// internal/capabilities/blockchain-audit/handler_test.go
package blockchainaudit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"smartport-assistant/internal/common/errors"
	httpclient "smartport-assistant/internal/common/http"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/pkg/registry"
)

// ==========================================================================
// Test Helpers
// ==========================================================================

func createTestConfig() *Config {
	return &Config{
		RequestTimeout: 2 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createBenchmarkLogger() logger.Logger {
	zapLogger, _ := zap.NewProduction()
	return logger.NewZapAdapter(zapLogger)
}

func createInvocation(refs interface{}) *registry.Invocation {
	entities := models.EntityBag{}
	if refs != nil {
		entities[models.EntityBookingRef] = refs
	}
	return &registry.Invocation{
		TraceID:  "trace-audit-test",
		Message:  "verify blockchain for this booking",
		Intent:   models.IntentBlockchainAudit,
		Entities: entities,
		Role:     models.RoleAdmin,
		UserID:   "user-1",
	}
}

func verifiedRecord() AuditRecord {
	return AuditRecord{
		Verified:        true,
		Hash:            "0x9c22ff5f21f0b81b113e63f7db6da94fedef11b2119b4088b89664fb9a3cb658",
		TxHash:          "0x4a1eb1cf42d20037",
		BlockNumber:     18231,
		Timestamp:       "2026-03-01T10:15:00Z",
		ChainID:         "port-audit-1",
		ContractAddress: "0xAF3b9d1C",
	}
}

// verifyServer serves a canned verification response for one reference and
// 404 for everything else, counting requests so validation tests can assert
// the backend stayed idle.
func verifyServer(t *testing.T, ref string, response interface{}) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/audit/verify" || r.URL.Query().Get("booking_ref") != ref {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Errorf("encode verification: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func createTestHandler(t *testing.T, baseURL string) *Handler {
	t.Helper()
	backend := httpclient.NewBackendClient(baseURL, "test-key", 2*time.Second)
	return NewHandler(createTestConfig(), backend, createTestLogger(t))
}

func asPayload(t *testing.T, raw interface{}) map[string]interface{} {
	t.Helper()
	payload, ok := raw.(map[string]interface{})
	require.True(t, ok, "expected map payload, got %T", raw)
	return payload
}

// ==========================================================================
// Verification Tests
// ==========================================================================

func TestHandler_Execute_Verified(t *testing.T) {
	srv, calls := verifyServer(t, "REF123", verifiedRecord())
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation("REF123"))

	require.NoError(t, err)
	payload := asPayload(t, raw)

	expected := "✓ Blockchain verification successful for REF123" +
		"\n• Hash: 0x9c22ff5f21f0b8..." +
		"\n• Timestamp: 2026-03-01T10:15:00Z"
	assert.Equal(t, expected, payload["explanation"])

	assert.Equal(t, "REF123", payload["reference"])
	assert.Equal(t, true, payload["verified"])
	assert.Equal(t, verifiedRecord().Hash, payload["hash"], "full hash stays in the payload")
	assert.Equal(t, "2026-03-01T10:15:00Z", payload["timestamp"])
	assert.NotContains(t, payload, "reason")

	chain, ok := payload["chain"].(map[string]interface{})
	require.True(t, ok, "expected chain metadata")
	assert.Equal(t, "port-audit-1", chain["chain_id"])
	assert.Equal(t, "0xAF3b9d1C", chain["contract"])
	assert.Equal(t, "0x4a1eb1cf42d20037", chain["tx_hash"])
	assert.Equal(t, int64(18231), chain["block"])

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestHandler_Execute_VerificationFailed(t *testing.T) {
	record := AuditRecord{
		Verified: false,
		Reason:   "Hash mismatch detected",
	}
	srv, _ := verifyServer(t, "REF55", record)
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation("REF55"))

	require.NoError(t, err, "a failed verification is an answer, not a failure")
	payload := asPayload(t, raw)

	assert.Equal(t,
		"⚠️ Blockchain verification failed for REF55\n• Reason: Hash mismatch detected",
		payload["explanation"])
	assert.Equal(t, false, payload["verified"])
	assert.Equal(t, "Hash mismatch detected", payload["reason"])
	assert.NotContains(t, payload, "chain")
}

func TestHandler_Execute_FailedWithoutReason(t *testing.T) {
	srv, _ := verifyServer(t, "REF55", AuditRecord{Verified: false})
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation("REF55"))

	require.NoError(t, err)
	payload := asPayload(t, raw)
	assert.Equal(t,
		"⚠️ Blockchain verification failed for REF55\n• Reason: Unknown",
		payload["explanation"])
	assert.Equal(t, "Unknown", payload["reason"])
}

func TestHandler_Execute_DataWrappedResponse(t *testing.T) {
	record := verifiedRecord()
	srv, _ := verifyServer(t, "REF123", map[string]interface{}{"data": record})
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation("REF123"))

	require.NoError(t, err)
	payload := asPayload(t, raw)
	assert.Equal(t, true, payload["verified"])
	assert.Equal(t, record.Hash, payload["hash"])
}

func TestHandler_Execute_FallsBackToTxHash(t *testing.T) {
	record := AuditRecord{
		Verified: true,
		TxHash:   "0x4a1eb1cf42d20037aa",
	}
	srv, _ := verifyServer(t, "REF77", record)
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation("REF77"))

	require.NoError(t, err)
	payload := asPayload(t, raw)
	assert.Equal(t,
		"✓ Blockchain verification successful for REF77\n• Hash: 0x4a1eb1cf42d200...",
		payload["explanation"])
	assert.Equal(t, "0x4a1eb1cf42d20037aa", payload["hash"])
}

func TestHandler_Execute_FirstReferenceWins(t *testing.T) {
	srv, calls := verifyServer(t, "REF1", verifiedRecord())
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation([]string{"REF1", "REF2"}))

	require.NoError(t, err)
	payload := asPayload(t, raw)
	assert.Equal(t, "REF1", payload["reference"])
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

// ==========================================================================
// Validation Tests
// ==========================================================================

func TestHandler_Execute_MissingReference(t *testing.T) {
	srv, calls := verifyServer(t, "REF123", verifiedRecord())
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation(nil))

	assert.Nil(t, raw)
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationError, stdErr.Code)
	assert.Equal(t, "Please provide a booking reference or transaction ID to verify.", stdErr.Details)
	assert.Equal(t, models.EntityBookingRef, stdErr.Metadata["missing_field"])
	assert.Contains(t, stdErr.Metadata["suggestion"], "Verify blockchain for REF123")

	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

// ==========================================================================
// Error Handling Tests
// ==========================================================================

func TestHandler_Execute_UnrecordedReference(t *testing.T) {
	srv, _ := verifyServer(t, "REF123", verifiedRecord())
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation("REF404"))

	require.NoError(t, err, "an unrecorded reference is a handled outcome")
	payload := asPayload(t, raw)
	assert.Equal(t, false, payload["verified"])
	assert.Equal(t, unrecordedReason, payload["reason"])
	assert.Equal(t,
		"⚠️ Blockchain verification failed for REF404\n• Reason: "+unrecordedReason,
		payload["explanation"])
}

func TestHandler_Execute_BackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	handler := createTestHandler(t, srv.URL)

	raw, err := handler.Execute(context.Background(), createInvocation("REF123"))

	assert.Nil(t, raw)
	require.Error(t, err)
	assert.Equal(t, "unavailable", errors.FailureKind(err))
}

func TestHandler_Execute_BackendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	config := createTestConfig()
	config.RequestTimeout = 20 * time.Millisecond
	backend := httpclient.NewBackendClient(srv.URL, "test-key", 2*time.Second)
	handler := NewHandler(config, backend, createTestLogger(t))

	raw, err := handler.Execute(context.Background(), createInvocation("REF123"))

	assert.Nil(t, raw)
	require.Error(t, err)
	assert.Equal(t, "timeout", errors.FailureKind(err))
}

// ==========================================================================
// Benchmarks
// ==========================================================================

func BenchmarkHandler_Execute_Verify(b *testing.B) {
	record := verifiedRecord()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(record)
	}))
	defer srv.Close()

	backend := httpclient.NewBackendClient(srv.URL, "bench-key", 2*time.Second)
	handler := NewHandler(createTestConfig(), backend, createBenchmarkLogger())
	inv := createInvocation("REF123")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := handler.Execute(context.Background(), inv)
		if err != nil {
			b.Fatal(err)
		}
	}
}
