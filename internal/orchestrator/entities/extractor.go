// internal/orchestrator/entities/extractor.go
package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/textnorm"
)

const dateLayout = "2006-01-02"

// Extractor pulls structured entities out of free text. Extraction is
// conservative: a field is set only when a pattern positively matched,
// never inferred. It runs for every turn regardless of intent, since a
// follow-up to an unknown message may still carry a date or reference.
type Extractor struct {
	logger logger.Logger
}

func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{
		logger: log.WithFields(map[string]interface{}{"component": "entity_extractor"}),
	}
}

// Extract is the pure form: no clock dependency, so the same text always
// yields the same bag. Relative-day keywords stay booleans and a time of
// day combines only with an explicit date; otherwise it is returned bare.
func (e *Extractor) Extract(text string) models.EntityBag {
	return e.extract(text, nil)
}

// ExtractAt additionally resolves relative-day signals against the caller's
// reference clock when combining them with a time of day, producing an
// absolute "YYYY-MM-DD HH:MM:SS" requested_time.
func (e *Extractor) ExtractAt(text string, now time.Time) models.EntityBag {
	return e.extract(text, &now)
}

func (e *Extractor) extract(text string, now *time.Time) models.EntityBag {
	bag := models.EntityBag{}
	if strings.TrimSpace(text) == "" {
		return bag
	}

	folded := textnorm.Fold(text)

	refs := extractBookingRefs(folded)
	if len(refs) == 1 {
		bag[models.EntityBookingRef] = refs[0]
	} else if len(refs) > 1 {
		bag[models.EntityBookingRef] = refs
	}

	if id := extractCarrierID(folded); id != "" {
		bag[models.EntityCarrierID] = id
	}
	if term := extractTerminal(folded); term != "" {
		bag[models.EntityTerminal] = term
	}
	if gate := extractGate(folded); gate != "" {
		bag[models.EntityGate] = gate
	}

	explicitDate := extractExplicitDate(folded)
	if explicitDate != "" {
		bag[models.EntityDate] = explicitDate
	}
	rel := extractRelativeDays(folded)
	if rel.today {
		bag[models.EntityDateToday] = true
	}
	if rel.tomorrow {
		bag[models.EntityDateTomorrow] = true
	}
	if rel.yesterday {
		bag[models.EntityDateYesterday] = true
	}

	if t := extractRequestedTime(folded, explicitDate, rel, now); t != "" {
		bag[models.EntityRequestedTime] = t
	}

	if plate := extractPlate(folded, refs); plate != "" {
		bag[models.EntityPlate] = plate
	}

	e.logger.Debug("entities extracted", map[string]interface{}{
		"count": bag.Count(),
	})
	return bag
}

// ResolveDate returns the concrete YYYY-MM-DD date a bag refers to: an
// explicit date wins, then today, tomorrow, yesterday resolved against now.
// Empty when the bag carries no date signal at all.
func ResolveDate(bag models.EntityBag, now time.Time) string {
	if d := bag.GetString(models.EntityDate); d != "" {
		return d
	}
	switch {
	case bag.GetBool(models.EntityDateToday):
		return now.Format(dateLayout)
	case bag.GetBool(models.EntityDateTomorrow):
		return now.AddDate(0, 0, 1).Format(dateLayout)
	case bag.GetBool(models.EntityDateYesterday):
		return now.AddDate(0, 0, -1).Format(dateLayout)
	}
	return ""
}

// extractBookingRefs collects every reference across all patterns,
// deduplicated in first-seen order. A known prefix (REF/BK/BOOK) survives
// normalization; contextual forms like "booking 12345" become REF12345.
func extractBookingRefs(text string) []string {
	var refs []string
	seen := map[string]bool{}

	for _, re := range bookingRefPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			prefix := strings.ToUpper(m[1])
			digits := m[2]

			ref := "REF" + digits
			if prefix == "REF" || prefix == "BK" || prefix == "BOOK" {
				ref = prefix + digits
			}
			if !seen[ref] {
				refs = append(refs, ref)
				seen[ref] = true
			}
		}
	}
	return refs
}

// extractCarrierID returns the first plausible numeric ID: digits, one to
// ten characters long.
func extractCarrierID(text string) string {
	for _, re := range carrierIDPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if id := m[2]; len(id) <= 10 {
			return id
		}
	}
	return ""
}

func extractTerminal(text string) string {
	for _, re := range terminalPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		term := strings.ToUpper(m[2])
		if len(term) == 1 {
			return term
		}
	}
	return ""
}

// extractGate normalizes every phrasing ("gate 3", "porte 3", "G3") to a
// fixed G<digits> shape.
func extractGate(text string) string {
	for _, re := range gatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		digits := nonDigitPattern.ReplaceAllString(m[2], "")
		if digits != "" {
			return "G" + digits
		}
	}
	return ""
}

type relativeDays struct {
	today, tomorrow, yesterday bool
}

func extractRelativeDays(text string) relativeDays {
	return relativeDays{
		today:     dateTodayPattern.MatchString(text),
		tomorrow:  dateTomorrowPattern.MatchString(text),
		yesterday: dateYesterdayPattern.MatchString(text),
	}
}

// extractExplicitDate finds the first unambiguous written date and
// normalizes it to YYYY-MM-DD.
func extractExplicitDate(text string) string {
	for _, re := range dateExplicitPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if normalized := normalizeDate(m[1]); normalized != "" {
			return normalized
		}
	}
	return ""
}

func normalizeDate(raw string) string {
	if isoDatePattern.MatchString(raw) {
		return raw
	}
	if m := dmyDatePattern.FindStringSubmatch(raw); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
	}
	// YYYY/MM/DD tolerated: separator swap makes it ISO.
	swapped := strings.ReplaceAll(raw, "/", "-")
	if isoDatePattern.MatchString(swapped) {
		return swapped
	}
	return ""
}

// extractRequestedTime finds a time of day and combines it with the
// strongest available date signal: explicit date first, then a relative-day
// boolean when a reference clock was supplied, else the bare time.
func extractRequestedTime(text, explicitDate string, rel relativeDays, now *time.Time) string {
	if t, ok := matchClockTime(text); ok {
		return combineDateTime(t, explicitDate, rel, now)
	}
	if t, ok := matchHourTime(text); ok {
		return combineDateTime(t, explicitDate, rel, now)
	}
	return ""
}

// matchClockTime handles HH:MM and HH:MM:SS; seconds are discarded and the
// result re-rendered as HH:MM:00.
func matchClockTime(text string) (string, bool) {
	m := clockPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	hour, errH := strconv.Atoi(m[1])
	minute, errM := strconv.Atoi(m[2])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:00", hour, minute), true
}

// matchHourTime handles "at 9am", "at 5pm", "at 14h" and the French
// "à 14h" (folded to "a 14h").
func matchHourTime(text string) (string, bool) {
	if m := hourEnPattern.FindStringSubmatch(text); m != nil {
		if t, ok := renderHour(m[1], strings.ToLower(m[2])); ok {
			return t, true
		}
	}
	if m := hourFrPattern.FindStringSubmatch(text); m != nil {
		if t, ok := renderHour(m[1], ""); ok {
			return t, true
		}
	}
	return "", false
}

func renderHour(raw, modifier string) (string, bool) {
	hour, err := strconv.Atoi(raw)
	if err != nil {
		return "", false
	}
	if modifier == "pm" && hour < 12 {
		hour += 12
	} else if modifier == "am" && hour == 12 {
		hour = 0
	}
	if hour < 0 || hour > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:00:00", hour), true
}

func combineDateTime(timeStr, explicitDate string, rel relativeDays, now *time.Time) string {
	if explicitDate != "" {
		return explicitDate + " " + timeStr
	}
	if now == nil {
		return timeStr
	}
	switch {
	case rel.today:
		return now.Format(dateLayout) + " " + timeStr
	case rel.tomorrow:
		return now.AddDate(0, 0, 1).Format(dateLayout) + " " + timeStr
	case rel.yesterday:
		return now.AddDate(0, 0, -1).Format(dateLayout) + " " + timeStr
	}
	return timeStr
}

// extractPlate returns the first plate-shaped candidate that carries both
// letters and digits and is not one of the already-extracted booking
// references.
func extractPlate(text string, refs []string) string {
	refSet := map[string]bool{}
	for _, r := range refs {
		refSet[r] = true
	}

	for _, m := range platePattern.FindAllStringSubmatch(text, -1) {
		plate := strings.TrimSpace(m[1])
		clean := plateSeparatorPattern.ReplaceAllString(plate, "")
		if !strings.ContainsAny(clean, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			continue
		}
		if !strings.ContainsAny(clean, "0123456789") {
			continue
		}
		if refSet[strings.ToUpper(clean)] {
			continue
		}
		return plate
	}
	return ""
}
