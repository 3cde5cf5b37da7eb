package timezone

import (
	"strings"
	"time"
)

// ClockPlaceholder is shown wherever a datetime is missing or unreadable.
const ClockPlaceholder = "--:--"

// TRT is Turkey time (UTC+3, no DST since 2016).
var TRT = time.FixedZone("TRT", 3*60*60)

var zoneAliases = map[string]*time.Location{
	"TRT":             TRT,
	"UTC+3":           TRT,
	"EUROPE/ISTANBUL": TRT,
	"UTC":             time.UTC,
	"Z":               time.UTC,
}

// GetLocationByName resolves the display zone. Unknown names fall back to TRT
// so a bad setting never blanks every departure time.
func GetLocationByName(name string) *time.Location {
	if loc, ok := zoneAliases[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return loc
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return TRT
}

var offsetLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
}

var wallLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDateTime reads an ISO-like datetime. Values carrying an offset keep it;
// values without one are wall-clock times in loc. A bare date is midnight UTC.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = TRT
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	for _, layout := range wallLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}

	return time.Time{}, &time.ParseError{
		Value:   value,
		Message: ": unable to parse datetime",
	}
}

// FormatClock renders value as a 24-hour HH:MM string in loc.
func FormatClock(value string, loc *time.Location) string {
	if value == "" {
		return ClockPlaceholder
	}
	if loc == nil {
		loc = TRT
	}
	t, err := ParseDateTime(value, loc)
	if err != nil {
		return ClockPlaceholder
	}
	return t.In(loc).Format("15:04")
}
