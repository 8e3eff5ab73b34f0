package source

import (
	"net/url"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/caymran/eventfeeds/internal/domain/model"
	"github.com/caymran/eventfeeds/internal/domain/text"
)

// Recurrence expansion bounds. Exports with unbounded rules otherwise
// produce occurrences forever.
const (
	expandPast    = 24 * time.Hour
	expandFuture  = 120 * 24 * time.Hour
	maxExpansions = 100
)

// parseCalendar extracts events from an iCalendar body. Real-world exports
// are frequently malformed, so this scans VEVENT blocks line by line rather
// than demanding a well-formed document; a broken block costs only itself.
func parseCalendar(body, baseURL, sourceName string, loc *time.Location) []model.RawEvent {
	var events []model.RawEvent
	for _, block := range veventBlocks(body) {
		events = append(events, eventsFromBlock(block, baseURL, sourceName, loc)...)
	}
	return events
}

// icsProp is one content line split into name, parameters, and value.
type icsProp struct {
	params map[string]string
	value  string
}

// veventBlocks unfolds continuation lines and groups properties per VEVENT.
func veventBlocks(body string) []map[string]icsProp {
	lines := unfoldLines(body)

	var blocks []map[string]icsProp
	var current map[string]icsProp
	for _, line := range lines {
		upper := strings.ToUpper(line)
		switch {
		case upper == "BEGIN:VEVENT":
			current = make(map[string]icsProp)
		case upper == "END:VEVENT":
			if current != nil {
				blocks = append(blocks, current)
			}
			current = nil
		case current != nil:
			name, prop, ok := parseContentLine(line)
			if ok {
				current[name] = prop
			}
		}
	}
	return blocks
}

func unfoldLines(body string) []string {
	raw := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	var lines []string
	for _, line := range raw {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += strings.TrimLeft(line, " \t")
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return lines
}

// parseContentLine splits "NAME;PARAM=V;PARAM2=V2:value".
func parseContentLine(line string) (string, icsProp, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", icsProp{}, false
	}
	head, value := line[:idx], line[idx+1:]

	parts := strings.Split(head, ";")
	name := strings.ToUpper(strings.TrimSpace(parts[0]))
	if name == "" {
		return "", icsProp{}, false
	}
	params := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return name, icsProp{params: params, value: value}, true
}

func icsUnescape(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(s)
}

func eventsFromBlock(block map[string]icsProp, baseURL, sourceName string, loc *time.Location) []model.RawEvent {
	raw := model.RawEvent{
		Title:       icsUnescape(block["SUMMARY"].value),
		Description: icsUnescape(block["DESCRIPTION"].value),
		Location:    icsUnescape(block["LOCATION"].value),
		Link:        resolveURL(baseURL, block["URL"].value),
		Source:      sourceName,
	}

	start, startOK := parseICSTime(block["DTSTART"], loc)
	end, endOK := parseICSTime(block["DTEND"], loc)
	if !startOK {
		// Keep the literal text; the normalizer gets a last chance at it.
		raw.StartText = block["DTSTART"].value
		if raw.Title == "" && raw.StartText == "" {
			return nil
		}
		return []model.RawEvent{raw}
	}
	raw.Start = start
	if endOK {
		raw.End = end
	}

	rule := strings.TrimSpace(block["RRULE"].value)
	if rule == "" {
		return []model.RawEvent{raw}
	}
	return expandRecurrence(raw, rule)
}

// expandRecurrence replicates raw for each rule occurrence inside the
// expansion window, preserving the original duration.
func expandRecurrence(raw model.RawEvent, rule string) []model.RawEvent {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return []model.RawEvent{raw}
	}
	opt.Dtstart = raw.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return []model.RawEvent{raw}
	}

	dur := time.Duration(0)
	if !raw.End.IsZero() {
		dur = raw.End.Sub(raw.Start)
	}
	now := time.Now()
	times := r.Between(now.Add(-expandPast), now.Add(expandFuture), true)
	if len(times) == 0 {
		return []model.RawEvent{raw}
	}
	if len(times) > maxExpansions {
		times = times[:maxExpansions]
	}

	events := make([]model.RawEvent, 0, len(times))
	for _, t := range times {
		occ := raw
		occ.Start = t.In(raw.Start.Location())
		if dur > 0 {
			occ.End = occ.Start.Add(dur)
		} else {
			occ.End = time.Time{}
		}
		events = append(events, occ)
	}
	return events
}

// parseICSTime interprets DTSTART/DTEND values: all-day dates, UTC stamps,
// TZID-qualified locals, and bare locals in the default zone.
func parseICSTime(prop icsProp, loc *time.Location) (time.Time, bool) {
	v := strings.TrimSpace(prop.value)
	if v == "" {
		return time.Time{}, false
	}

	if prop.params["VALUE"] == "DATE" || isBareDate(v) {
		if t, err := time.ParseInLocation("20060102", v, loc); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	if strings.HasSuffix(v, "Z") {
		if t, err := time.Parse("20060102T150405Z", v); err == nil {
			return t, true
		}
	}
	zone := loc
	if tzid := prop.params["TZID"]; tzid != "" {
		if z, err := time.LoadLocation(tzid); err == nil {
			zone = z
		}
	}
	if t, err := time.ParseInLocation("20060102T150405", v, zone); err == nil {
		return t, true
	}
	return text.ParseInstant(v, loc)
}

func isBareDate(v string) bool {
	if len(v) != 8 {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveURL joins ref against base, tolerating empty or absolute refs.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "data:") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
