// Package text holds the shared extraction heuristics used by adapters and
// the normalizer: markup flattening, boilerplate stripping, chrome
// detection, address/venue recovery, and free-text date parsing.
//
// Everything here is a pure function over strings; adapters inject these
// rather than inheriting them so individual sources can diverge.
package text

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	intraWS = regexp.MustCompile(`[ \t\f\v]+`)
	allWS   = regexp.MustCompile(`\s+`)
)

// HTMLToText flattens markup to plain text. Block boundaries become line
// breaks, intra-line whitespace collapses to single spaces, and blank lines
// are dropped. Plain input passes through with the same whitespace cleanup.
func HTMLToText(s string) string {
	if s == "" {
		return ""
	}
	var raw string
	if strings.ContainsRune(s, '<') {
		node, err := html.Parse(strings.NewReader(s))
		if err != nil {
			raw = stripTags(s)
		} else {
			var b strings.Builder
			collectText(node, &b)
			raw = b.String()
		}
	} else {
		raw = s
	}
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	var lines []string
	for _, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(intraWS.ReplaceAllString(ln, " "))
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			b.WriteByte('\n')
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte('\n')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

var tagRE = regexp.MustCompile(`<[^>]+>`)

func stripTags(s string) string {
	s = tagRE.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

// CollapseSpace reduces all whitespace runs to single spaces and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(allWS.ReplaceAllString(s, " "))
}

// boilerplateLines are chrome fragments that never belong in a description.
// Matched case-insensitively as substrings against whole output lines.
var boilerplateLines = []string{
	"skip to main content",
	"log in",
	"sign up",
	"sign in",
	"share this event",
	"report this event",
	"add to calendar",
	"get directions",
	"buy tickets",
	"find events",
	"create events",
	"browse events",
	"help center",
	"view map",
	"contact the organizer",
	"refund policy",
	"follow this organizer",
	"apple calendar",
	"google calendar",
}

// StripBoilerplate drops lines matching known chrome patterns, then removes
// repeated lines case-insensitively while preserving first-seen order.
func StripBoilerplate(s string) string {
	if s == "" {
		return ""
	}
	seen := make(map[string]struct{})
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(ln)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if isBoilerplateLine(lower) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

func isBoilerplateLine(lower string) bool {
	for _, pat := range boilerplateLines {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// chromeHallmarks are UI phrases that indicate a blob is site navigation
// rather than content.
var chromeHallmarks = []string{
	"log in",
	"sign up",
	"skip to",
	"main content",
	"find events",
	"create events",
	"help center",
	"share this event",
	"report this event",
	"browse events",
	"refund policy",
	"about this event",
	"follow this organizer",
}

// chromePairs each independently mark a blob as chrome when both members
// appear, regardless of length.
var chromePairs = [][2]string{
	{"log in", "sign up"},
	{"share this event", "report this event"},
	{"find events", "create events"},
}

const chromeLengthThreshold = 100

// LooksLikeChrome reports whether a blob reads like site navigation chrome:
// either it is long and contains two or more hallmark phrases, or it
// contains both members of a known phrase pair.
func LooksLikeChrome(s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, p := range chromePairs {
		if strings.Contains(lower, p[0]) && strings.Contains(lower, p[1]) {
			return true
		}
	}
	if len(s) <= chromeLengthThreshold {
		return false
	}
	hits := 0
	for _, h := range chromeHallmarks {
		if strings.Contains(lower, h) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// ExtractBetween returns the text strictly between the first occurrence of
// marker and the nearest following stop marker (or end of text), with
// duplicate comma/whitespace-separated tokens collapsed. Matching is
// case-insensitive. Returns "" when the marker is absent.
func ExtractBetween(s, marker string, stops []string) string {
	lower := strings.ToLower(s)
	i := strings.Index(lower, strings.ToLower(marker))
	if i < 0 {
		return ""
	}
	rest := s[i+len(marker):]
	restLower := lower[i+len(marker):]
	end := len(rest)
	for _, stop := range stops {
		if j := strings.Index(restLower, strings.ToLower(stop)); j >= 0 && j < end {
			end = j
		}
	}
	return dedupeTokens(rest[:end])
}

// dedupeTokens collapses consecutive duplicate comma- or space-separated
// tokens case-insensitively, preserving first-seen order.
func dedupeTokens(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	var parts []string
	seen := make(map[string]struct{})
	for _, f := range fields {
		f = CollapseSpace(f)
		if f == "" {
			continue
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		parts = append(parts, f)
	}
	return strings.Join(parts, ", ")
}

var timeOfDayRE = regexp.MustCompile(`(?i)^\d{1,2}(:\d{2})?\s*(a\.?m\.?|p\.?m\.?)?$`)

// IsTimeOfDay reports whether s is indistinguishable from a bare
// time-of-day expression ("7pm", "7:30 PM", "19:00"). Used to reject
// locations that adapters mis-populated with the event's own time string.
func IsTimeOfDay(s string) bool {
	s = CollapseSpace(s)
	if s == "" {
		return false
	}
	return timeOfDayRE.MatchString(s)
}

// TrimPunct strips leading/trailing punctuation and whitespace.
func TrimPunct(s string) string {
	return strings.Trim(s, " \t\r\n.,;:!|-–—·")
}
