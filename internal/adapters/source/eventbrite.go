package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/caymran/eventfeeds/internal/config"
	"github.com/caymran/eventfeeds/internal/domain/model"
	"github.com/caymran/eventfeeds/internal/domain/text"
	"github.com/caymran/eventfeeds/pkg/logger"
)

const (
	defaultEventbritePages = 3
	maxEventbriteDetails   = 60
)

// eventbriteSource crawls public discovery listings for event detail links,
// then scrapes each detail page. When the plain crawl finds nothing
// (discovery pages are often script-rendered) it falls back to headless
// rendering if a renderer is configured.
type eventbriteSource struct {
	cfg      config.Source
	ua       string
	client   Fetcher
	renderer Renderer
	loc      *time.Location
	log      logger.Logger
}

func newEventbriteSource(cfg config.Source, ua string, deps Deps) *eventbriteSource {
	return &eventbriteSource{
		cfg:      cfg,
		ua:       ua,
		client:   deps.Client,
		renderer: deps.Renderer,
		loc:      deps.Timezone,
		log:      logger.Named("source.eventbrite"),
	}
}

func (s *eventbriteSource) Name() string { return s.cfg.Name }

func (s *eventbriteSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	pages := s.cfg.Pages
	if pages <= 0 {
		pages = defaultEventbritePages
	}

	links := s.discoverLinks(ctx, pages, false)
	if len(links) == 0 && s.headlessEnabled() {
		s.log.Info(ctx, "discovery crawl found no links, rendering headless",
			logger.String("source", s.cfg.Name))
		links = s.discoverLinks(ctx, pages, true)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("eventbrite %s: no event links discovered", s.cfg.Name)
	}
	if len(links) > maxEventbriteDetails {
		links = links[:maxEventbriteDetails]
	}

	var events []model.RawEvent
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		raw, ok := s.fetchDetail(ctx, link)
		if !ok {
			continue
		}
		events = append(events, raw)
	}
	return events, nil
}

func (s *eventbriteSource) headlessEnabled() bool {
	return s.cfg.Headless && s.renderer != nil
}

func (s *eventbriteSource) discoverLinks(ctx context.Context, pages int, headless bool) []string {
	seen := make(map[string]bool)
	var links []string
	for i := 1; i <= pages; i++ {
		pageURL := withPage(s.cfg.URL, i)

		var body string
		if headless {
			html, err := s.renderer.Render(ctx, pageURL)
			if err != nil {
				s.log.Warn(ctx, "headless render failed",
					logger.String("url", pageURL), logger.Error(err))
				continue
			}
			body = html
		} else {
			res := s.client.Fetch(ctx, pageURL, map[string]string{"User-Agent": s.ua})
			if !res.OK() {
				continue
			}
			body = res.Body
		}

		for _, link := range eventDetailLinks(body, pageURL) {
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
	}
	return links
}

// eventDetailLinks keeps /e/ event links and filters out organizer and
// collection pages that share the link shape.
func eventDetailLinks(body, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "/e/") {
			return
		}
		if strings.Contains(href, "/organizer/") ||
			strings.Contains(href, "/o/") ||
			strings.Contains(href, "/collections/") {
			return
		}
		link := resolveURL(base, href)
		if i := strings.IndexAny(link, "?#"); i >= 0 {
			link = link[:i]
		}
		links = append(links, link)
	})
	return links
}

func (s *eventbriteSource) fetchDetail(ctx context.Context, link string) (model.RawEvent, bool) {
	var body string
	res := s.client.Fetch(ctx, link, map[string]string{"User-Agent": s.ua})
	if res.OK() {
		body = res.Body
	} else if s.headlessEnabled() {
		html, err := s.renderer.Render(ctx, link)
		if err != nil {
			return model.RawEvent{}, false
		}
		body = html
	} else {
		return model.RawEvent{}, false
	}
	return parseEventbriteDetail(body, link, s.cfg.Name)
}

// parseEventbriteDetail walks the detail page's formats from most to least
// structured: JSON-LD, meta/time tags, then the labeled "Date and time"
// text block. Pages without a title and a start are skipped.
func parseEventbriteDetail(body, link, sourceName string) (model.RawEvent, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return model.RawEvent{}, false
	}

	raw := model.RawEvent{Link: link, Source: sourceName}
	if lds := jsonLDEvents(doc); len(lds) > 0 {
		ld := lds[0]
		raw.Title = ld.Title
		raw.Description = ld.Description
		raw.Location = ld.Location
		raw.StartText = ld.Start
		raw.EndText = ld.End
	}

	if raw.Title == "" {
		raw.Title = text.CollapseSpace(doc.Find(`h1, [data-testid="event-title"]`).First().Text())
	}
	if raw.StartText == "" {
		raw.StartText = metaContent(doc,
			`meta[property="event:start_time"]`, `meta[itemprop="startDate"]`)
	}
	if raw.EndText == "" {
		raw.EndText = metaContent(doc,
			`meta[property="event:end_time"]`, `meta[itemprop="endDate"]`)
	}
	if raw.StartText == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			raw.StartText = dt
		}
	}
	if raw.StartText == "" {
		raw.StartText = labeledBlockText(doc, "Date and time")
	}
	if raw.Location == "" {
		raw.Location = text.CollapseSpace(doc.Find(`[data-testid="location"], .location-info__address`).First().Text())
	}
	if raw.Location == "" {
		raw.Location = labeledBlockText(doc, "Location")
	}
	if raw.Description == "" {
		raw.Description = text.CollapseSpace(doc.Find(`[data-testid="description"], .event-description`).First().Text())
	}

	if raw.Title == "" || raw.StartText == "" {
		return model.RawEvent{}, false
	}
	return raw, true
}

// labeledBlockText finds a heading whose text equals label and returns the
// text of its parent block, label removed.
func labeledBlockText(doc *goquery.Document, label string) string {
	found := ""
	doc.Find("h2, h3, h4, div, span").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if !strings.EqualFold(text.CollapseSpace(el.Text()), label) {
			return true
		}
		block := text.CollapseSpace(el.Parent().Text())
		block = strings.TrimSpace(strings.TrimPrefix(block, el.Text()))
		if block != "" {
			found = block
			return false
		}
		return true
	})
	return found
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && v != "" {
			return v
		}
	}
	return ""
}

// withPage sets the page query parameter on a discovery URL.
func withPage(rawURL string, page int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
