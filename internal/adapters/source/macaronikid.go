package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
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
	defaultMacaroniPages = 8
	maxMacaroniDetails   = 80
	maxSitemapDepth      = 2
)

var (
	// Event detail paths carry a hex id segment.
	macaroniPathRE = regexp.MustCompile(`^/events/[0-9a-f]{8,}`)
	macaroniHrefRE = regexp.MustCompile(`href="(/events/[0-9a-f]{8,}[^"]*)"`)
	sitemapLocRE   = regexp.MustCompile(`<loc>\s*([^<]+?)\s*</loc>`)
	sitemapLineRE  = regexp.MustCompile(`(?im)^sitemap:\s*(\S+)`)
)

// macaroniKidSource crawls a town calendar site. Listing pages are mined
// for detail links three ways (anchors, JSON-LD, a raw href scan); when all
// three come up empty the site's sitemap is walked instead. Each detail
// page prefers its per-event calendar export over scraped HTML, since the
// export carries exact times.
type macaroniKidSource struct {
	cfg    config.Source
	ua     string
	client Fetcher
	loc    *time.Location
	log    logger.Logger
}

func newMacaroniKidSource(cfg config.Source, ua string, deps Deps) *macaroniKidSource {
	return &macaroniKidSource{
		cfg:    cfg,
		ua:     ua,
		client: deps.Client,
		loc:    deps.Timezone,
		log:    logger.Named("source.macaronikid"),
	}
}

func (s *macaroniKidSource) Name() string { return s.cfg.Name }

func (s *macaroniKidSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	links := s.discoverLinks(ctx)
	if len(links) == 0 {
		s.log.Info(ctx, "listing crawl found no links, walking sitemap",
			logger.String("source", s.cfg.Name))
		links = s.linksFromSitemaps(ctx)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("macaronikid %s: no event links discovered", s.cfg.Name)
	}
	if len(links) > maxMacaroniDetails {
		links = links[:maxMacaroniDetails]
	}

	var events []model.RawEvent
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		events = append(events, s.fetchDetail(ctx, link)...)
	}
	return events, nil
}

func (s *macaroniKidSource) listingURLs() []string {
	base := strings.TrimRight(s.cfg.URL, "/")
	pages := s.cfg.Pages
	if pages <= 0 {
		pages = defaultMacaroniPages
	}
	urls := []string{base + "/events", base + "/events/calendar"}
	for i := 1; i <= pages; i++ {
		urls = append(urls, base+"/events?page="+strconv.Itoa(i))
	}
	return urls
}

func (s *macaroniKidSource) discoverLinks(ctx context.Context) []string {
	seen := make(map[string]bool)
	var links []string
	add := func(link string) {
		if link != "" && !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}

	for _, listing := range s.listingURLs() {
		res := s.client.Fetch(ctx, listing, map[string]string{"User-Agent": s.ua})
		if !res.OK() {
			continue
		}
		for _, link := range mineEventLinks(res.Body, listing) {
			add(link)
		}
	}
	return links
}

// mineEventLinks extracts detail links from a listing page: anchor hrefs,
// JSON-LD event urls, and a raw scan of the markup for links that anchors
// and scripts both missed.
func mineEventLinks(body, base string) []string {
	seen := make(map[string]bool)
	var links []string
	add := func(ref string) {
		link := resolveURL(base, ref)
		u, err := url.Parse(link)
		if err != nil || !macaroniPathRE.MatchString(u.Path) {
			return
		}
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			add(href)
		})
		for _, ld := range jsonLDEvents(doc) {
			add(ld.URL)
		}
	}
	for _, m := range macaroniHrefRE.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return links
}

// linksFromSitemaps discovers detail links via the site's sitemaps, located
// through robots.txt Sitemap lines with /sitemap.xml as the fallback.
func (s *macaroniKidSource) linksFromSitemaps(ctx context.Context) []string {
	base := strings.TrimRight(s.cfg.URL, "/")

	var sitemaps []string
	if res := s.client.Fetch(ctx, base+"/robots.txt", map[string]string{"User-Agent": s.ua}); res.OK() {
		for _, m := range sitemapLineRE.FindAllStringSubmatch(res.Body, -1) {
			sitemaps = append(sitemaps, m[1])
		}
	}
	if len(sitemaps) == 0 {
		sitemaps = []string{base + "/sitemap.xml"}
	}

	seen := make(map[string]bool)
	var links []string
	for _, sm := range sitemaps {
		s.walkSitemap(ctx, sm, 0, seen, &links)
	}
	return links
}

func (s *macaroniKidSource) walkSitemap(ctx context.Context, sitemapURL string, depth int, seen map[string]bool, links *[]string) {
	if depth > maxSitemapDepth || seen[sitemapURL] {
		return
	}
	seen[sitemapURL] = true

	res := s.client.Fetch(ctx, sitemapURL, map[string]string{"User-Agent": s.ua})
	if !res.OK() {
		return
	}
	for _, m := range sitemapLocRE.FindAllStringSubmatch(res.Body, -1) {
		loc := m[1]
		u, err := url.Parse(loc)
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(strings.ToLower(u.Path), "sitemap"):
			s.walkSitemap(ctx, loc, depth+1, seen, links)
		case macaroniPathRE.MatchString(u.Path) && !seen[loc]:
			seen[loc] = true
			*links = append(*links, loc)
		}
	}
}

// fetchDetail scrapes one event detail page. The per-event calendar export
// wins when present; it may be a hosted .ics file or an embedded data URL.
func (s *macaroniKidSource) fetchDetail(ctx context.Context, link string) []model.RawEvent {
	res := s.client.Fetch(ctx, link, map[string]string{"User-Agent": s.ua})
	if !res.OK() {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return nil
	}

	if icsURL := findEventICS(doc, link); icsURL != "" {
		icsRes := s.client.Fetch(ctx, icsURL, map[string]string{"User-Agent": s.ua})
		if icsRes.OK() {
			events := parseCalendar(icsRes.Body, link, s.cfg.Name, s.loc)
			for i := range events {
				if events[i].Link == "" || strings.HasPrefix(events[i].Link, "data:") {
					events[i].Link = link
				}
			}
			if len(events) > 0 {
				return events
			}
		}
	}

	raw, ok := s.eventFromDetailHTML(doc, link)
	if !ok {
		return nil
	}
	return []model.RawEvent{raw}
}

// findEventICS locates the detail page's calendar export anchor.
func findEventICS(doc *goquery.Document, pageURL string) string {
	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		label := strings.ToLower(text.CollapseSpace(a.Text()))
		lower := strings.ToLower(href)
		if strings.HasSuffix(lower, ".ics") ||
			strings.HasPrefix(lower, "data:") ||
			strings.Contains(label, "apple calendar") ||
			strings.Contains(label, "ical") {
			found = resolveURL(pageURL, href)
			return false
		}
		return true
	})
	return found
}

func (s *macaroniKidSource) eventFromDetailHTML(doc *goquery.Document, link string) (model.RawEvent, bool) {
	raw := model.RawEvent{Link: link, Source: s.cfg.Name}
	if lds := jsonLDEvents(doc); len(lds) > 0 {
		ld := lds[0]
		raw.Title = ld.Title
		raw.Description = ld.Description
		raw.Location = ld.Location
		raw.StartText = ld.Start
		raw.EndText = ld.End
	}

	if raw.Title == "" {
		raw.Title = text.CollapseSpace(doc.Find(`h1, [data-element="event-title"]`).First().Text())
	}
	if raw.StartText == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			raw.StartText = dt
		}
	}
	if raw.StartText == "" {
		raw.StartText = metaContent(doc, `meta[itemprop="startDate"]`, `meta[property="event:start_time"]`)
	}
	if raw.StartText == "" {
		raw.StartText = text.CollapseSpace(doc.Find(`[data-element="event-date"], .event-date`).First().Text())
	}
	if raw.Location == "" {
		raw.Location = text.CollapseSpace(doc.Find(`[data-element="event-location"], .event-location, .venue`).First().Text())
	}
	if raw.Description == "" {
		raw.Description = text.CollapseSpace(doc.Find(`[data-element="event-description"], .event-description, .description`).First().Text())
	}

	if raw.Title == "" {
		return model.RawEvent{}, false
	}
	return raw, true
}
