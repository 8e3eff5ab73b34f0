package source

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/caymran/eventfeeds/internal/domain/text"
)

// ldEvent is a schema.org Event pulled out of embedded JSON-LD.
type ldEvent struct {
	Title       string
	Description string
	Location    string
	URL         string
	Start       string
	End         string
}

// jsonLDEvents collects every schema.org Event (or Festival) from the
// document's ld+json scripts. Scripts that fail to decode are skipped;
// @graph containers and top-level arrays are both handled.
func jsonLDEvents(doc *goquery.Document) []ldEvent {
	var events []ldEvent
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		collectLD(data, &events)
	})
	return events
}

func collectLD(data any, out *[]ldEvent) {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			collectLD(item, out)
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			collectLD(graph, out)
		}
		if isEventType(v["@type"]) {
			*out = append(*out, ldEventFrom(v))
		}
	}
}

func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Festival" || strings.HasSuffix(v, "Event")
	case []any:
		for _, item := range v {
			if isEventType(item) {
				return true
			}
		}
	}
	return false
}

func ldEventFrom(m map[string]any) ldEvent {
	return ldEvent{
		Title:       ldString(m["name"]),
		Description: ldString(m["description"]),
		Location:    ldLocation(m["location"]),
		URL:         ldString(m["url"]),
		Start:       ldString(m["startDate"]),
		End:         ldString(m["endDate"]),
	}
}

func ldString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// ldLocation flattens a schema.org location into "Name - Address" form.
// Accepts a bare string, a Place with a string address, or a Place with a
// PostalAddress object.
func ldLocation(v any) string {
	switch loc := v.(type) {
	case string:
		return strings.TrimSpace(loc)
	case map[string]any:
		name := ldString(loc["name"])
		addr := ldAddress(loc["address"])
		switch {
		case name != "" && addr != "":
			return name + " - " + addr
		case addr != "":
			return addr
		default:
			return name
		}
	}
	return ""
}

func ldAddress(v any) string {
	switch addr := v.(type) {
	case string:
		return strings.TrimSpace(addr)
	case map[string]any:
		parts := []string{
			ldString(addr["streetAddress"]),
			ldString(addr["addressLocality"]),
			ldString(addr["addressRegion"]),
			ldString(addr["postalCode"]),
		}
		joined := ""
		for _, p := range parts {
			if p == "" {
				continue
			}
			if joined != "" {
				joined += ", "
			}
			joined += p
		}
		return text.CollapseSpace(joined)
	}
	return ""
}
