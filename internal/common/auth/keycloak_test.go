package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartport-assistant/internal/common/config"
	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/models"
)

func newTestVerifier(t *testing.T, handler http.HandlerFunc) (*Verifier, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.AuthConfig{}
	cfg.Keycloak.URL = server.URL
	cfg.Keycloak.Realm = "smartport"
	cfg.Keycloak.ClientID = "assistant"
	cfg.Keycloak.ClientSecret = "secret"

	return NewVerifier(cfg), server
}

func TestVerifier_Verify_ActiveToken(t *testing.T) {
	verifier, _ := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "assistant", r.Form.Get("client_id"))
		assert.Equal(t, "some-token", r.Form.Get("token"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"active":     true,
			"username":   "transmed-dispatcher",
			"user_id":    42,
			"carrier_id": "CARRIER-042",
			"realm_access": map[string]interface{}{
				"roles": []string{"offline_access", "carrier"},
			},
		})
	})

	principal, err := verifier.Verify(context.Background(), "some-token")
	require.NoError(t, err)
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, models.RoleCarrier, principal.Role)
	assert.Equal(t, "CARRIER-042", principal.CarrierID)
}

func TestVerifier_Verify_PicksStrongestRole(t *testing.T) {
	verifier, _ := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"active": true,
			"realm_access": map[string]interface{}{
				"roles": []string{"carrier", "admin", "operator"},
			},
		})
	})

	principal, err := verifier.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, principal.Role)
}

func TestVerifier_Verify_InactiveToken(t *testing.T) {
	verifier, _ := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"active": false})
	})

	_, err := verifier.Verify(context.Background(), "stale-token")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthenticated, errors.CodeOf(err))
}

func TestVerifier_Verify_KeycloakDown(t *testing.T) {
	verifier, _ := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := verifier.Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBackendUnavailable, errors.CodeOf(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestVerifier_Enabled(t *testing.T) {
	assert.False(t, NewVerifier(config.AuthConfig{}).Enabled())

	cfg := config.AuthConfig{}
	cfg.Keycloak.URL = "http://keycloak.local"
	assert.True(t, NewVerifier(cfg).Enabled())
}

func TestStrongestRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  models.Role
	}{
		{"no realm roles", nil, models.RoleAnon},
		{"only service roles", []string{"offline_access", "uma_authorization"}, models.RoleAnon},
		{"carrier", []string{"carrier"}, models.RoleCarrier},
		{"operator beats carrier", []string{"carrier", "operator"}, models.RoleOperator},
		{"admin beats everything", []string{"operator", "admin"}, models.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strongestRole(tt.roles))
		})
	}
}
