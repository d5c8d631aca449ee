// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smartport-assistant/internal/common/config"
	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/models"
)

// Principal is the verified identity attached to a conversation turn.
type Principal struct {
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username,omitempty"`
	Role      models.Role `json:"role"`
	CarrierID string      `json:"carrier_id,omitempty"`
}

// Verifier validates bearer tokens against Keycloak's introspection endpoint.
// A verified token overrides whatever role the request body claims.
type Verifier struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active      bool   `json:"active"`
	Scope       string `json:"scope,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Exp         int64  `json:"exp,omitempty"` // Expiration timestamp (seconds since epoch)
	Iat         int64  `json:"iat,omitempty"` // Issued at timestamp (seconds since epoch)
	Sub         string `json:"sub,omitempty"` // Subject (user ID)
	UserID      int64  `json:"user_id,omitempty"`
	CarrierID   string `json:"carrier_id,omitempty"`
	RealmAccess struct {
		Roles []string `json:"roles,omitempty"`
	} `json:"realm_access,omitempty"`
}

// NewVerifier creates a Verifier from the Keycloak configuration section.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		baseURL:      strings.TrimSuffix(cfg.Keycloak.URL, "/"),
		realm:        cfg.Keycloak.Realm,
		clientID:     cfg.Keycloak.ClientID,
		clientSecret: cfg.Keycloak.ClientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether a Keycloak endpoint is configured. When it is not,
// role claims from the request body are taken as-is.
func (v *Verifier) Enabled() bool {
	return v.baseURL != ""
}

// Verify introspects an access token and maps it onto a Principal.
func (v *Verifier) Verify(ctx context.Context, token string) (*Principal, error) {
	info, err := v.introspect(ctx, token)
	if err != nil {
		return nil, err
	}

	if !info.Active {
		return nil, errors.NewUnauthenticatedError("token is expired, revoked or malformed")
	}

	return &Principal{
		UserID:    info.UserID,
		Username:  info.Username,
		Role:      strongestRole(info.RealmAccess.Roles),
		CarrierID: info.CarrierID,
	}, nil
}

// introspect calls Keycloak's token introspection endpoint.
func (v *Verifier) introspect(ctx context.Context, token string) (*TokenInfo, error) {
	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", v.baseURL, v.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", v.clientID)
	data.Set("client_secret", v.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("failed to create introspection request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewBackendUnavailableError("keycloak", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if isTransientHTTPError(resp.StatusCode) {
			return nil, errors.NewBackendUnavailableError("keycloak", fmt.Errorf("introspection status %d", resp.StatusCode))
		}
		return nil, errors.NewUnauthenticatedError(fmt.Sprintf("introspection rejected with status %d", resp.StatusCode))
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("failed to decode introspection response: %w", err))
	}

	return &info, nil
}

// strongestRole picks the highest-privilege realm role present on the token.
func strongestRole(roles []string) models.Role {
	found := map[models.Role]bool{}
	for _, raw := range roles {
		found[models.NormalizeRole(raw)] = true
	}

	for _, candidate := range []models.Role{models.RoleAdmin, models.RoleOperator, models.RoleCarrier} {
		if found[candidate] {
			return candidate
		}
	}
	return models.RoleAnon
}

// isTransientHTTPError returns true if the HTTP status code indicates a potentially transient error.
func isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError, // 500
		http.StatusBadGateway,         // 502
		http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout:     // 504
		return true
	default:
		return false
	}
}
