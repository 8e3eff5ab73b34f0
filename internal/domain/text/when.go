package text

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DefaultEventDuration is synthesized onto events that carry no end time.
const DefaultEventDuration = 2 * time.Hour

// ParseInstant parses an already-structured timestamp (RFC 3339, ISO 8601
// without zone, common date layouts). Naive values are interpreted in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = CollapseSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseIn(s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

var (
	// rangeSepRE splits "Sept 27, 6–9pm" / "10:00 to 5:00 pm" style ranges.
	// Bare hyphens only count as separators when surrounded by spaces, so
	// ISO dates survive.
	rangeSepRE = regexp.MustCompile(`\s*(?:–|—)\s*|\s+(?:to|through|until)\s+|\s+-\s+`)

	// timeRangeRE catches compact "6-9pm" ranges with no spaces.
	timeRangeRE = regexp.MustCompile(`(?i)^(.*?\b\d{1,2}(?::\d{2})?)\s*(?:am|pm)?-(\d{1,2}(?::\d{2})?\s*(?:am|pm))(.*)$`)

	bareTimeRE = regexp.MustCompile(`(?i)^\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?)?$`)

	clockOnlyRE = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?$`)

	ordinalRE = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)

	weekdayPrefixRE = regexp.MustCompile(`(?i)\b(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(?:day|sday|nesday|rsday|urday)?\.?,?\s+`)
)

// ParseWhen best-effort parses free-text date/time ranges like
// "Sept 27, 6–9pm", "September 27 7:30pm", or "10:00 to 5:00 pm".
// The second side of a range inherits the first side's date when it is a
// bare time of day. Naive results are placed in loc. End is zero when only
// a start could be derived.
func ParseWhen(s string, loc *time.Location) (start, end time.Time, ok bool) {
	s = CollapseSpace(s)
	if s == "" {
		return time.Time{}, time.Time{}, false
	}

	first, second := splitRange(s)

	start, ok = parseFuzzy(first, loc, time.Time{})
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if second != "" {
		if e, eok := parseFuzzy(second, loc, start); eok {
			end = e
		}
	}
	return start, end, true
}

// splitRange divides s into at most two sides around a range separator.
func splitRange(s string) (string, string) {
	if m := rangeSepRE.FindStringIndex(s); m != nil {
		return strings.TrimSpace(s[:m[0]]), strings.TrimSpace(s[m[1]:])
	}
	if m := timeRangeRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1] + m[3]), strings.TrimSpace(m[2])
	}
	return s, ""
}

// parseFuzzy parses one side of a range. When the side is a bare time of
// day and a context instant is available, the time is applied to the
// context's date.
func parseFuzzy(s string, loc *time.Location, context time.Time) (time.Time, bool) {
	s = normalizeDateText(s)
	if s == "" {
		return time.Time{}, false
	}

	if bareTimeRE.MatchString(s) {
		hour, minute, hok := clockFrom(s)
		if !hok {
			return time.Time{}, false
		}
		base := context
		if base.IsZero() {
			base = time.Now().In(loc)
		}
		return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, base.Location()), true
	}

	if t, err := dateparse.ParseIn(s, loc); err == nil {
		// dateparse treats a bare month-day as the parse year; that is the
		// same "default to now" posture the rest of the pipeline assumes.
		return t, true
	}

	// Last resort: recombine a month-day token with a clock token.
	if t, ok := composeDateAndClock(s, loc, context); ok {
		return t, true
	}
	return time.Time{}, false
}

// normalizeDateText smooths the spellings the fuzzy parser chokes on.
func normalizeDateText(s string) string {
	s = CollapseSpace(s)
	s = weekdayPrefixRE.ReplaceAllString(s, "")
	s = ordinalRE.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "Sept ", "Sep ")
	s = strings.ReplaceAll(s, "Sept. ", "Sep ")
	s = strings.ReplaceAll(s, "a.m.", "am")
	s = strings.ReplaceAll(s, "p.m.", "pm")
	s = strings.ReplaceAll(s, "A.M.", "AM")
	s = strings.ReplaceAll(s, "P.M.", "PM")
	return strings.TrimSpace(s)
}

var (
	monthDayRE = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:,?\s*(\d{4}))?`)
	clockRE    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// composeDateAndClock extracts a "<Month> <day>[, <year>]" token and an
// "h[:mm] am/pm" token independently and composes an instant from them.
func composeDateAndClock(s string, loc *time.Location, context time.Time) (time.Time, bool) {
	md := monthDayRE.FindStringSubmatch(s)
	if md == nil {
		return time.Time{}, false
	}
	month := monthsByPrefix[strings.ToLower(md[1])]
	day := atoi(md[2])
	year := 0
	if md[3] != "" {
		year = atoi(md[3])
	} else if !context.IsZero() {
		year = context.Year()
	} else {
		year = time.Now().In(loc).Year()
	}
	hour, minute := 0, 0
	if c := clockRE.FindStringSubmatch(s); c != nil {
		hour = atoi(c[1])
		if c[2] != "" {
			minute = atoi(c[2])
		}
		if strings.EqualFold(c[3], "pm") && hour < 12 {
			hour += 12
		}
		if strings.EqualFold(c[3], "am") && hour == 12 {
			hour = 0
		}
	}
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc), true
}

// clockFrom reads an "h[:mm][am|pm]" expression.
func clockFrom(s string) (hour, minute int, ok bool) {
	m := clockOnlyRE.FindStringSubmatch(CollapseSpace(s))
	if m == nil {
		return 0, 0, false
	}
	hour = atoi(m[1])
	if m[2] != "" {
		minute = atoi(m[2])
	}
	mer := strings.ToLower(strings.ReplaceAll(m[3], ".", ""))
	switch {
	case mer == "pm" && hour < 12:
		hour += 12
	case mer == "am" && hour == 12:
		hour = 0
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
