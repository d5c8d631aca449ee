package models

import "net/http"

// AccessDecision is the policy verdict for one (intent, role) evaluation.
// A denial always carries a non-empty Reason and a status in {401, 403}.
// Allowed with NeedsOwnershipCheck=true means field-level ownership could
// not be verified from local context alone and the capability handler must
// scope or re-check it.
type AccessDecision struct {
	Allowed             bool                   `json:"allowed"`
	HTTPStatus          int                    `json:"http_status"`
	Reason              string                 `json:"reason"`
	RequiredRole        Role                   `json:"required_role,omitempty"`
	NeedsOwnershipCheck bool                   `json:"needs_downstream_ownership_check"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// Granted builds an allow decision.
func Granted(needsOwnershipCheck bool) AccessDecision {
	return AccessDecision{
		Allowed:             true,
		HTTPStatus:          http.StatusOK,
		NeedsOwnershipCheck: needsOwnershipCheck,
	}
}

// DeniedUnauthenticated builds a 401 denial.
func DeniedUnauthenticated(reason string) AccessDecision {
	return AccessDecision{
		Allowed:    false,
		HTTPStatus: http.StatusUnauthorized,
		Reason:     reason,
	}
}

// DeniedForbidden builds a 403 denial. requiredRole may be empty when no
// role tier grants the intent (ownership denials).
func DeniedForbidden(reason string, requiredRole Role) AccessDecision {
	return AccessDecision{
		Allowed:      false,
		HTTPStatus:   http.StatusForbidden,
		Reason:       reason,
		RequiredRole: requiredRole,
	}
}
