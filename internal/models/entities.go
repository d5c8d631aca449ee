package models

// EntityBag maps entity names to extracted values. Values are scalars
// (string, bool) or []string for multi-valued fields. A key is present only
// when a pattern positively matched - absence means "not provided", never
// "explicitly null".
type EntityBag map[string]interface{}

// Entity field names produced by the extractor. booking_ref holds a string
// for a single reference and []string when the message carries several.
const (
	EntityBookingRef    = "booking_ref"
	EntityCarrierID     = "carrier_id"
	EntityTerminal      = "terminal"
	EntityGate          = "gate"
	EntityDate          = "date"
	EntityDateToday     = "date_today"
	EntityDateTomorrow  = "date_tomorrow"
	EntityDateYesterday = "date_yesterday"
	EntityRequestedTime = "requested_time"
	EntityPlate         = "plate"
)

// Has reports whether the field was extracted.
func (b EntityBag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Count returns the number of extracted fields.
func (b EntityBag) Count() int {
	return len(b)
}

// GetString returns the field as a string, or "" when absent or not a string.
func (b EntityBag) GetString(key string) string {
	if v, ok := b[key].(string); ok {
		return v
	}
	return ""
}

// GetStrings returns the field as a string slice. A scalar string value is
// returned as a one-element slice.
func (b EntityBag) GetStrings(key string) []string {
	switch v := b[key].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	}
	return nil
}

// GetBool returns the field as a bool, false when absent.
func (b EntityBag) GetBool(key string) bool {
	v, _ := b[key].(bool)
	return v
}

// Clone returns a shallow copy so callers can annotate without mutating the
// extractor's output.
func (b EntityBag) Clone() EntityBag {
	out := make(EntityBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
