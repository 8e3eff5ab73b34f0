package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/caymran/eventfeeds/internal/config"
	"github.com/caymran/eventfeeds/internal/domain/model"
	"github.com/caymran/eventfeeds/internal/domain/text"
)

// timeHintRE detects a time of day anywhere inside free text. Listing items
// with no machine-readable timestamp and no time hint are navigation or ads,
// not events.
var timeHintRE = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm|a\.m\.|p\.m\.)\b|\b\d{1,2}:\d{2}\b`)

// htmlSource scrapes a listing page driven by configured CSS selectors,
// with optional site-specific parser hints for pages whose markup defies
// generic selectors.
type htmlSource struct {
	cfg    config.Source
	ua     string
	client Fetcher
	loc    *time.Location
}

func newHTMLSource(cfg config.Source, ua string, deps Deps) *htmlSource {
	return &htmlSource{cfg: cfg, ua: ua, client: deps.Client, loc: deps.Timezone}
}

func (s *htmlSource) Name() string { return s.cfg.Name }

func (s *htmlSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	res := s.client.Fetch(ctx, s.cfg.URL, map[string]string{"User-Agent": s.ua})
	if !res.OK() {
		return nil, fmt.Errorf("html %s: fetch %s: %s", s.cfg.Name, s.cfg.URL, res.Class)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("html %s: parse: %w", s.cfg.Name, err)
	}

	if s.cfg.Parser == "freepress" {
		return s.parseFreePress(doc), nil
	}
	return s.parseGeneric(doc), nil
}

func (s *htmlSource) selector(key, fallback string) string {
	if v := s.cfg.Selectors[key]; v != "" {
		return v
	}
	return fallback
}

func (s *htmlSource) parseGeneric(doc *goquery.Document) []model.RawEvent {
	itemSel := s.selector("item", ".event, article, li.event-item")

	var events []model.RawEvent
	doc.Find(itemSel).Each(func(_ int, item *goquery.Selection) {
		raw, ok := s.eventFromItem(item)
		if ok {
			events = append(events, raw)
		}
	})
	return events
}

func (s *htmlSource) eventFromItem(item *goquery.Selection) (model.RawEvent, bool) {
	title := firstText(item, s.selector("title", "h1, h2, h3, .title"))
	if title == "" {
		return model.RawEvent{}, false
	}

	dt, _ := item.Find("time[datetime]").First().Attr("datetime")
	dateText := firstText(item, s.selector("date", ".date, .event-date, time"))
	if clock := firstText(item, s.selector("time", ".time, .event-time")); clock != "" {
		dateText = strings.TrimSpace(dateText + " " + clock)
	}
	// Without a machine timestamp, demand a time of day somewhere in the
	// item before treating it as an event.
	if dt == "" && !timeHintRE.MatchString(item.Text()) {
		return model.RawEvent{}, false
	}

	raw := model.RawEvent{
		Title:       title,
		Description: firstText(item, s.selector("description", ".description, .summary, p")),
		Location:    firstText(item, s.selector("location", ".location, .venue, .address")),
		Link:        itemLink(item, s.cfg.URL),
		Source:      s.cfg.Name,
	}
	if dt != "" {
		raw.StartText = dt
	} else {
		raw.StartText = dateText
	}
	return raw, true
}

// parseFreePress walks the newspaper calendar's formats from most to least
// structured: JSON-LD, then microdata, then the listing cards themselves.
func (s *htmlSource) parseFreePress(doc *goquery.Document) []model.RawEvent {
	if events := s.fromJSONLD(doc); len(events) > 0 {
		return events
	}
	if events := s.fromMicrodata(doc); len(events) > 0 {
		return events
	}

	var events []model.RawEvent
	doc.Find(".event-card, article.event, .calendar-event, .tribe-events-calendar-list__event").Each(func(_ int, item *goquery.Selection) {
		title := firstText(item, "h1, h2, h3, .title, a")
		if title == "" {
			return
		}
		dt, _ := item.Find("time[datetime]").First().Attr("datetime")
		if dt == "" && !timeHintRE.MatchString(item.Text()) {
			return
		}
		raw := model.RawEvent{
			Title:       title,
			Description: firstText(item, ".description, .summary, p"),
			Location:    firstText(item, ".location, .venue, .address"),
			Link:        itemLink(item, s.cfg.URL),
			StartText:   dt,
			Source:      s.cfg.Name,
		}
		if raw.StartText == "" {
			raw.StartText = firstText(item, "time, .date, .event-date")
		}
		events = append(events, raw)
	})
	return events
}

func (s *htmlSource) fromJSONLD(doc *goquery.Document) []model.RawEvent {
	var events []model.RawEvent
	for _, ld := range jsonLDEvents(doc) {
		if ld.Title == "" {
			continue
		}
		events = append(events, model.RawEvent{
			Title:       ld.Title,
			Description: ld.Description,
			Location:    ld.Location,
			Link:        resolveURL(s.cfg.URL, ld.URL),
			StartText:   ld.Start,
			EndText:     ld.End,
			Source:      s.cfg.Name,
		})
	}
	return events
}

func (s *htmlSource) fromMicrodata(doc *goquery.Document) []model.RawEvent {
	var events []model.RawEvent
	doc.Find(`[itemtype*="schema.org/Event"]`).Each(func(_ int, item *goquery.Selection) {
		title := firstText(item, `[itemprop="name"]`)
		if title == "" {
			return
		}
		events = append(events, model.RawEvent{
			Title:       title,
			Description: firstText(item, `[itemprop="description"]`),
			Location:    firstText(item, `[itemprop="location"]`),
			Link:        itemLink(item, s.cfg.URL),
			StartText:   itempropValue(item, "startDate"),
			EndText:     itempropValue(item, "endDate"),
			Source:      s.cfg.Name,
		})
	})
	return events
}

// itempropValue prefers the machine-readable content/datetime attribute over
// the rendered text.
func itempropValue(item *goquery.Selection, prop string) string {
	el := item.Find(`[itemprop="` + prop + `"]`).First()
	if v, ok := el.Attr("content"); ok && v != "" {
		return v
	}
	if v, ok := el.Attr("datetime"); ok && v != "" {
		return v
	}
	return text.CollapseSpace(el.Text())
}

func firstText(item *goquery.Selection, sel string) string {
	return text.CollapseSpace(item.Find(sel).First().Text())
}

func itemLink(item *goquery.Selection, base string) string {
	href, ok := item.Find("a[href]").First().Attr("href")
	if !ok {
		return ""
	}
	return resolveURL(base, href)
}
