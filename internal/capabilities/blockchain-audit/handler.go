// internal/capabilities/blockchain-audit/handler.go
package blockchainaudit

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"

	"smartport-assistant/internal/common/errors"
	httpclient "smartport-assistant/internal/common/http"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/pkg/registry"
)

// CapabilityName identifies this capability in the decision trail
const CapabilityName = "BlockchainAgent"

const verifyPath = "/audit/verify"

const unrecordedReason = "No audit trail recorded for this reference"

// Handler verifies booking audit trails against the blockchain gateway
type Handler struct {
	config  *Config
	backend *httpclient.Client
	logger  logger.Logger
}

// NewHandler creates a blockchain audit handler
func NewHandler(config *Config, backend *httpclient.Client, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		backend: backend,
		logger: log.WithFields(map[string]interface{}{
			"capability": CapabilityName,
		}),
	}
}

// Execute verifies the audit trail for the referenced booking and explains
// the outcome, including on-chain anchoring metadata when the gateway
// returns it.
func (h *Handler) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	refs := inv.Entities.GetStrings(models.EntityBookingRef)
	if len(refs) == 0 {
		return nil, errors.NewValidationError(
			"Please provide a booking reference or transaction ID to verify.").
			WithMetadata("missing_field", models.EntityBookingRef).
			WithMetadata("example", "booking_ref=REF123").
			WithMetadata("suggestion", "Try: 'Verify blockchain for REF123' or 'Check audit trail for transaction TX456'")
	}
	ref := refs[0]

	ctx, cancel := context.WithTimeout(ctx, h.config.RequestTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("booking_ref", ref)

	var envelope verifyEnvelope
	err := h.backend.GetJSON(ctx, verifyPath+"?"+params.Encode(), &envelope)
	switch {
	case err == nil:
	case stderrors.Is(err, httpclient.ErrNotFound):
		h.logger.Info("no audit trail recorded", map[string]interface{}{
			"reference": ref,
		})
		return h.auditPayload(ref, AuditRecord{Reason: unrecordedReason}), nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return nil, errors.NewBackendTimeoutError("blockchain")
	default:
		return nil, errors.NewBackendUnavailableError("blockchain", err)
	}

	record := envelope.record()
	h.logger.Info("audit trail verified", map[string]interface{}{
		"reference": ref,
		"verified":  record.Verified,
	})
	return h.auditPayload(ref, record), nil
}

func (h *Handler) auditPayload(ref string, record AuditRecord) map[string]interface{} {
	payload := map[string]interface{}{
		"explanation": auditExplanation(ref, record),
		"reference":   ref,
		"verified":    record.Verified,
	}
	if hash := record.anchorHash(); hash != "" {
		payload["hash"] = hash
	}
	if record.Timestamp != "" {
		payload["timestamp"] = record.Timestamp
	}
	if !record.Verified {
		payload["reason"] = reasonOrUnknown(record.Reason)
	}
	if chain := chainInfo(record); len(chain) > 0 {
		payload["chain"] = chain
	}
	return payload
}

// auditExplanation renders the verification outcome. Hashes are shown
// truncated; the full value stays in the data payload.
func auditExplanation(ref string, record AuditRecord) string {
	if record.Verified {
		msg := fmt.Sprintf("✓ Blockchain verification successful for %s", ref)
		if hash := record.anchorHash(); hash != "" {
			msg += fmt.Sprintf("\n• Hash: %s...", shortHash(hash))
		}
		if record.Timestamp != "" {
			msg += fmt.Sprintf("\n• Timestamp: %s", record.Timestamp)
		}
		return msg
	}
	return fmt.Sprintf("⚠️ Blockchain verification failed for %s\n• Reason: %s",
		ref, reasonOrUnknown(record.Reason))
}

// chainInfo collects the on-chain anchoring metadata the gateway returned.
func chainInfo(record AuditRecord) map[string]interface{} {
	chain := map[string]interface{}{}
	if record.ChainID != "" {
		chain["chain_id"] = record.ChainID
	}
	if record.ContractAddress != "" {
		chain["contract"] = record.ContractAddress
	}
	if record.TxHash != "" {
		chain["tx_hash"] = record.TxHash
	}
	if record.BlockNumber > 0 {
		chain["block"] = record.BlockNumber
	}
	return chain
}

func reasonOrUnknown(reason string) string {
	if reason == "" {
		return "Unknown"
	}
	return reason
}

// shortHash keeps the first 16 characters of a hex hash for display.
func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
