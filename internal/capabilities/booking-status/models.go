// internal/capabilities/booking-status/models.go
package bookingstatus

import (
	"database/sql"
	"time"
)

// BookingRow mirrors one row of the bookings table.
type BookingRow struct {
	Ref        string
	Status     string
	Terminal   sql.NullString
	Gate       sql.NullString
	SlotTime   sql.NullTime
	LastUpdate sql.NullTime
}

func (r *BookingRow) TerminalOrNA() string {
	if r.Terminal.Valid && r.Terminal.String != "" {
		return r.Terminal.String
	}
	return "N/A"
}

func (r *BookingRow) GateOrNA() string {
	if r.Gate.Valid && r.Gate.String != "" {
		return r.Gate.String
	}
	return "N/A"
}

func (r *BookingRow) SlotTimeOrNA() string {
	if r.SlotTime.Valid {
		return r.SlotTime.Time.Format(time.RFC3339)
	}
	return "N/A"
}

func (r *BookingRow) LastUpdateOrNA() string {
	if r.LastUpdate.Valid {
		return r.LastUpdate.Time.Format(time.RFC3339)
	}
	return "N/A"
}
