/*
dates.go - Event-date normalization

PURPOSE:
  The provider's eventDate field is a grab bag: single ISO dates, ISO date
  ranges, datetimes with timezone suffixes, bare years, year ranges and
  year-months all appear in real responses. This file turns any of them into a
  structured start/end span plus a validity flag.

POLICY:
  - A single ISO date is both start and end of the span.
  - A well-formed "start/end" ISO range sets both endpoints.
  - Only those two shapes set Valid=true. Coarser verbatim forms (bare year,
    year range, year-month, datetime) still populate the span so the record
    stays usable, but keep Valid=false.
  - Anything unparseable yields the zero-valued sentinel span.
  - A record is NEVER dropped for a bad date. Date quality is orthogonal to
    geospatial and taxonomic validity; quarantining here would throw away
    perfectly good sightings.
*/
package occurrence

import (
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// NormalizeDate parses a raw eventDate string into an EventSpan.
func NormalizeDate(raw string) EventSpan {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return EventSpan{}
	}

	if strings.Contains(s, "/") {
		return normalizeRange(s)
	}
	return normalizeSingle(s)
}

func normalizeRange(s string) EventSpan {
	parts := strings.SplitN(s, "/", 2)
	start, startISO := parseDay(parts[0])
	end, endISO := parseDay(parts[1])
	if start != nil && end != nil {
		return EventSpan{
			StartYear: start.Year(), StartMonth: int(start.Month()), StartDay: start.Day(),
			EndYear: end.Year(), EndMonth: int(end.Month()), EndDay: end.Day(),
			// Valid only when both endpoints were exact ISO dates.
			Valid: startISO && endISO,
		}
	}

	// Year-only range, e.g. "1952/1955".
	if sy, ok := parseYear(parts[0]); ok {
		if ey, ok := parseYear(parts[1]); ok {
			return EventSpan{StartYear: sy, StartMonth: 1, StartDay: 1, EndYear: ey, EndMonth: 12, EndDay: 31}
		}
	}
	return EventSpan{}
}

func normalizeSingle(s string) EventSpan {
	if d, iso := parseDay(s); d != nil {
		return EventSpan{
			StartYear: d.Year(), StartMonth: int(d.Month()), StartDay: d.Day(),
			EndYear: d.Year(), EndMonth: int(d.Month()), EndDay: d.Day(),
			Valid: iso,
		}
	}

	// Bare year, e.g. "1985".
	if y, ok := parseYear(s); ok {
		return EventSpan{StartYear: y, StartMonth: 1, StartDay: 1, EndYear: y, EndMonth: 12, EndDay: 31}
	}

	// "2003-05" is a year-month; "1920-1950" is really a year range (the
	// second element is far too large to be a month).
	if parts := strings.Split(s, "-"); len(parts) == 2 {
		y, yok := parseYear(parts[0])
		n, err := strconv.Atoi(parts[1])
		if yok && err == nil {
			if n >= 1 && n <= 12 {
				return EventSpan{StartYear: y, StartMonth: n, StartDay: 1, EndYear: y, EndMonth: n, EndDay: daysIn(y, n)}
			}
			if n > 31 {
				return EventSpan{StartYear: y, StartMonth: 1, StartDay: 1, EndYear: n, EndMonth: 12, EndDay: 31}
			}
		}
	}
	return EventSpan{}
}

// parseDay parses a calendar day, tolerating a trailing time component
// ("1849-12-04T23:12:00Z", "1971-01-01 00:00:00+00"). The second return
// reports whether the input was an exact YYYY-MM-DD date.
func parseDay(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	day := s
	if i := strings.IndexAny(s, "T "); i >= 0 {
		day = s[:i]
	}
	if len(day) != len(isoDate) {
		return nil, false
	}
	t, err := time.Parse(isoDate, day)
	if err != nil {
		return nil, false
	}
	return &t, day == s
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

// daysIn returns the number of days in a month.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
