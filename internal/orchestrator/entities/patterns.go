// internal/orchestrator/entities/patterns.go
package entities

import "regexp"

// Patterns run against folded text (diacritics stripped, case preserved),
// so the French alternatives are written unaccented. Everything except the
// license-plate pattern is case-insensitive.

// Booking references: REF123, REF-456, BK7890, "booking 12345". The
// normalized form keeps REF/BK/BOOK prefixes and maps everything else to
// REF<digits>.
var bookingRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(ref)[-\s]?(\d{3,})\b`),
	regexp.MustCompile(`(?i)\b(bk|book|booking|reservation)[-\s]?(\d{4,})\b`),
	regexp.MustCompile(`(?i)\b(booking|reference|reservation)\s+(\d{5,})\b`),
}

// Carrier IDs: "carrier 123", "transporteur id 456", "ID 77", and the
// context-dependent "for 123" / "noter 456" forms.
var carrierIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(carrier|transporteur|chauffeur|driver|company|societe|entreprise)\s+(?:id\s+)?(\d+)\b`),
	regexp.MustCompile(`(?i)\b(id)\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\b(for|rate|score|pour|noter)\s+(\d{2,})\b`),
}

// Terminals: "terminal A", "terminale B", "au terminal C".
var terminalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(terminal)\s+([A-Z])\b`),
	regexp.MustCompile(`(?i)\b(terminale?|au\s+terminal)\s+([A-Z])\b`),
}

// Gates: "gate 3", "porte 12", "G5". All normalize to G<digits>.
var gatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(gate)\s+([A-Z]?\d+)\b`),
	regexp.MustCompile(`(?i)\b(porte)\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\b(g)(\d+)\b`),
}

// Relative-day keywords become booleans, never resolved dates: the
// extractor has no clock.
var (
	dateTodayPattern     = regexp.MustCompile(`(?i)\b(today|now|current|aujourd'hui|maintenant)\b`)
	dateTomorrowPattern  = regexp.MustCompile(`(?i)\b(tomorrow|next day|demain|lendemain)\b`)
	dateYesterdayPattern = regexp.MustCompile(`(?i)\b(yesterday|last day|hier)\b`)
)

// Explicit dates: YYYY-MM-DD and DD/MM/YYYY shapes only. Anything
// ambiguous stays unextracted rather than guessed.
var dateExplicitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4}[-/]\d{2}[-/]\d{2})\b`),
	regexp.MustCompile(`\b(\d{2}[-/]\d{2}[-/]\d{4})\b`),
}

var (
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dmyDatePattern  = regexp.MustCompile(`^(\d{2})[-/](\d{2})[-/](\d{4})$`)
	clockPattern    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\b`)
	hourEnPattern   = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})\s*(am|pm|h)\b`)
	hourFrPattern   = regexp.MustCompile(`(?i)\ba\s+(\d{1,2})\s*h\b`)
	nonDigitPattern = regexp.MustCompile(`[^\d]`)
)

// License plates are matched case-sensitively: ABC123, AB-1234-CD. The
// shape overlaps booking references (REF123 fits it too), so candidates
// already captured as references are skipped.
var platePattern = regexp.MustCompile(`\b([A-Z]{1,3}[-\s]?\d{3,4}[-\s]?[A-Z]{0,3})\b`)

var plateSeparatorPattern = regexp.MustCompile(`[-\s]`)
