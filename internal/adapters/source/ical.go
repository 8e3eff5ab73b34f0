package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/caymran/eventfeeds/internal/domain/model"
)

// icsSource reads a direct iCalendar export URL.
type icsSource struct {
	name   string
	url    string
	ua     string
	client Fetcher
	loc    *time.Location
}

func newICSSource(name, url, ua string, deps Deps) *icsSource {
	return &icsSource{name: name, url: url, ua: ua, client: deps.Client, loc: deps.Timezone}
}

func (s *icsSource) Name() string { return s.name }

func (s *icsSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	res := s.client.Fetch(ctx, s.url, map[string]string{"User-Agent": s.ua})
	if !res.OK() {
		return nil, fmt.Errorf("ics %s: fetch %s: %s", s.name, s.url, res.Class)
	}
	return parseCalendar(res.Body, s.url, s.name, s.loc), nil
}

// thrillshareSource handles school-platform event pages that advertise a
// calendar export link rather than serving the calendar directly. The page
// is fetched once to discover the export URL, then treated as an ics feed.
type thrillshareSource struct {
	name   string
	url    string
	ua     string
	client Fetcher
	loc    *time.Location
}

func newThrillshareSource(name, url, ua string, deps Deps) *thrillshareSource {
	return &thrillshareSource{name: name, url: url, ua: ua, client: deps.Client, loc: deps.Timezone}
}

func (s *thrillshareSource) Name() string { return s.name }

func (s *thrillshareSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	headers := map[string]string{"User-Agent": s.ua}
	res := s.client.Fetch(ctx, s.url, headers)
	if !res.OK() {
		return nil, fmt.Errorf("thrillshare %s: fetch %s: %s", s.name, s.url, res.Class)
	}

	exportURL := findCalendarExport(res.Body, s.url)
	if exportURL == "" {
		return nil, fmt.Errorf("thrillshare %s: no calendar export link on %s", s.name, s.url)
	}

	icsRes := s.client.Fetch(ctx, exportURL, headers)
	if !icsRes.OK() {
		return nil, fmt.Errorf("thrillshare %s: fetch export %s: %s", s.name, exportURL, icsRes.Class)
	}
	return parseCalendar(icsRes.Body, s.url, s.name, s.loc), nil
}

// findCalendarExport locates the ics export anchor on an events page.
func findCalendarExport(body, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		label := strings.ToLower(strings.TrimSpace(a.Text()))
		if strings.Contains(href, "generate_ical") ||
			strings.HasSuffix(strings.ToLower(href), ".ics") ||
			strings.Contains(label, "download calendar") {
			found = resolveURL(pageURL, href)
			return false
		}
		return true
	})
	return found
}
