package text

import (
	"regexp"
	"strings"
)

// stateCodes is the fixed two-letter region enumeration the address pattern
// accepts. DC included.
const stateCodes = "AL|AK|AZ|AR|CA|CO|CT|DE|DC|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY"

// addressRE matches "<number> <street>, <city>, <ST> <zip>".
var addressRE = regexp.MustCompile(
	`(\d{1,6}\s+[A-Za-z0-9][A-Za-z0-9'. -]*?),\s*([A-Za-z][A-Za-z'. -]*?),\s*(` + stateCodes + `)\s+(\d{5}(?:-\d{4})?)`)

// venueStopWords terminate the backward venue scan; they are connective
// words, not venue-name material.
var venueStopWords = map[string]struct{}{
	"at": {}, "the": {}, "in": {}, "on": {}, "to": {}, "us": {},
	"join": {}, "visit": {}, "for": {}, "by": {}, "from": {}, "and": {},
	"located": {}, "location": {}, "venue": {}, "address": {}, "where": {},
}

// venueScanWindow bounds how far before the address we look for a venue name.
const venueScanWindow = 64

// ExtractVenueAddress locates a US postal address inside a text blob and
// returns "Venue - Address" when a venue-name-shaped phrase immediately
// precedes it, or the bare address otherwise. Returns "" when no address
// pattern is present.
func ExtractVenueAddress(blob string) string {
	if blob == "" {
		return ""
	}
	flat := CollapseSpace(blob)
	m := addressRE.FindStringSubmatchIndex(flat)
	if m == nil {
		return ""
	}
	street := flat[m[2]:m[3]]
	city := flat[m[4]:m[5]]
	state := flat[m[6]:m[7]]
	zip := flat[m[8]:m[9]]
	address := strings.TrimSpace(street) + ", " + strings.TrimSpace(city) + ", " + state + " " + zip

	venue := venueBefore(flat[:m[0]])
	if venue == "" {
		return address
	}
	return venue + " - " + address
}

// venueBefore scans backward through the text preceding an address for a
// trailing alphanumeric phrase that is not made of stop words.
func venueBefore(prefix string) string {
	if len(prefix) > venueScanWindow {
		prefix = prefix[len(prefix)-venueScanWindow:]
	}
	prefix = strings.TrimRight(prefix, " \t,.;:-–|")
	words := strings.Fields(prefix)

	var kept []string
	for i := len(words) - 1; i >= 0; i-- {
		w := strings.Trim(words[i], ",.;:!()\"'")
		if w == "" {
			break
		}
		if _, stop := venueStopWords[strings.ToLower(w)]; stop {
			break
		}
		if !isWordToken(w) {
			break
		}
		kept = append([]string{w}, kept...)
	}
	phrase := strings.Join(kept, " ")
	if !containsLetter(phrase) {
		return ""
	}
	return phrase
}

func isWordToken(w string) bool {
	for _, r := range w {
		if !(r == '\'' || r == '&' || r == '-' ||
			(r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

func containsLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
