// internal/capabilities/booking-status/handler.go
package bookingstatus

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/pkg/registry"
)

const (
	CapabilityName = "BookingAgent"

	bookingColumns = "booking_ref, status, terminal, gate, slot_time, last_update"
)

// Handler answers booking status questions from the bookings table. One
// reference yields a detail card, several yield a compact list. Lookups for
// carrier users are scoped to their own carrier_id.
type Handler struct {
	config *Config
	db     *database.PostgresClient
	logger logger.Logger
}

func NewHandler(config *Config, db *database.PostgresClient, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"capability": CapabilityName}),
	}
}

func (h *Handler) Execute(ctx context.Context, inv *registry.Invocation) (interface{}, error) {
	refs := inv.Entities.GetStrings(models.EntityBookingRef)
	if len(refs) == 0 {
		return nil, errors.NewValidationError(
			"I couldn't find a booking reference in your message. Please provide a booking reference.").
			WithMetadata("missing_field", models.EntityBookingRef).
			WithMetadata("example", "REF12345").
			WithMetadata("suggestion", "Try asking: 'What's the status of REF12345?' or 'Check booking REF789'")
	}
	if len(refs) > h.config.MaxRefs {
		refs = refs[:h.config.MaxRefs]
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.QueryTimeout)
	defer cancel()

	if len(refs) == 1 {
		return h.lookupOne(ctx, inv, refs[0])
	}
	return h.lookupMany(ctx, inv, refs)
}

func (h *Handler) lookupOne(ctx context.Context, inv *registry.Invocation, ref string) (interface{}, error) {
	query := "SELECT " + bookingColumns + " FROM bookings WHERE booking_ref = $1"
	args := []interface{}{ref}
	if scoped, carrierID := ownershipScope(inv); scoped {
		query += " AND carrier_id = $2"
		args = append(args, carrierID)
	}

	var row BookingRow
	err := h.db.QueryRow(ctx, query, args...).Scan(
		&row.Ref, &row.Status, &row.Terminal, &row.Gate, &row.SlotTime, &row.LastUpdate)
	if stderrors.Is(err, sql.ErrNoRows) {
		h.logger.Info("booking not found", map[string]interface{}{"bookingRef": ref})
		return notFoundResponse(fmt.Sprintf(
			"Booking %s not found. Please check the booking reference.", ref)), nil
	}
	if err != nil {
		return nil, errors.NewDataQueryFailedError("booking_status", err)
	}

	message := fmt.Sprintf(
		"Booking %s is currently %s.\nTerminal: %s\nGate: %s\nSlot Time: %s\nLast Update: %s",
		row.Ref, row.Status, row.TerminalOrNA(), row.GateOrNA(), row.SlotTimeOrNA(), row.LastUpdateOrNA())

	return map[string]interface{}{
		"message": message,
		"data":    bookingData(&row),
		"proofs": models.Proofs{
			models.ProofComponent: CapabilityName,
			"sources":             []string{"postgres:bookings"},
		},
	}, nil
}

func (h *Handler) lookupMany(ctx context.Context, inv *registry.Invocation, refs []string) (interface{}, error) {
	placeholders := make([]string, len(refs))
	args := make([]interface{}, len(refs))
	for i, ref := range refs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = ref
	}
	query := "SELECT " + bookingColumns + " FROM bookings WHERE booking_ref IN (" +
		strings.Join(placeholders, ", ") + ")"
	if scoped, carrierID := ownershipScope(inv); scoped {
		query += fmt.Sprintf(" AND carrier_id = $%d", len(refs)+1)
		args = append(args, carrierID)
	}
	query += " ORDER BY booking_ref"

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDataQueryFailedError("booking_status", err)
	}
	defer rows.Close()

	var found []BookingRow
	for rows.Next() {
		var row BookingRow
		if err := rows.Scan(&row.Ref, &row.Status, &row.Terminal, &row.Gate, &row.SlotTime, &row.LastUpdate); err != nil {
			return nil, errors.NewDataQueryFailedError("booking_status", err)
		}
		found = append(found, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDataQueryFailedError("booking_status", err)
	}

	if len(found) == 0 {
		h.logger.Info("bookings not found", map[string]interface{}{"bookingRefs": refs})
		return notFoundResponse(fmt.Sprintf(
			"One or more bookings not found: %s. Please check the booking references.",
			strings.Join(refs, ", "))), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d booking(s):\n", len(found))
	foundRefs := make([]string, 0, len(found))
	bookings := make([]map[string]interface{}, 0, len(found))
	for i := range found {
		row := &found[i]
		fmt.Fprintf(&sb, "• %s: %s (Terminal %s, Gate %s, %s)\n",
			row.Ref, row.Status, row.TerminalOrNA(), row.GateOrNA(), row.SlotTimeOrNA())
		foundRefs = append(foundRefs, row.Ref)
		bookings = append(bookings, bookingData(row))
	}

	return map[string]interface{}{
		"message": strings.TrimRight(sb.String(), "\n"),
		"data": map[string]interface{}{
			"booking_refs": foundRefs,
			"bookings":     bookings,
			"count":        len(found),
		},
		"proofs": models.Proofs{
			models.ProofComponent: CapabilityName,
			"sources":             []string{"postgres:bookings"},
		},
	}, nil
}

// ownershipScope reports whether queries must be narrowed to the caller's
// carrier. A carrier without a known id gets nothing rather than everything.
func ownershipScope(inv *registry.Invocation) (bool, string) {
	if !inv.NeedsOwnershipCheck {
		return false, ""
	}
	return true, inv.CarrierID
}

func bookingData(row *BookingRow) map[string]interface{} {
	return map[string]interface{}{
		"booking_ref": row.Ref,
		"status":      row.Status,
		"terminal":    row.TerminalOrNA(),
		"gate":        row.GateOrNA(),
		"slot_time":   row.SlotTimeOrNA(),
		"last_update": row.LastUpdateOrNA(),
	}
}

func notFoundResponse(message string) map[string]interface{} {
	return map[string]interface{}{
		"message": message,
		"data": map[string]interface{}{
			"error":       "execution_failed",
			"error_type":  "NotFound",
			"status_code": 404,
		},
		"proofs": models.Proofs{
			models.ProofComponent: CapabilityName,
			models.ProofStatus:    models.StatusFailed,
		},
	}
}
