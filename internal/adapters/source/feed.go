package source

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/caymran/eventfeeds/internal/domain/model"
)

// feedSource reads RSS and Atom feeds. Feeds rarely carry a structured
// event time, so the adapter records the best timestamp text it can find
// and leaves interpretation to the normalizer.
type feedSource struct {
	name   string
	url    string
	ua     string
	client Fetcher
	loc    *time.Location
}

func newFeedSource(name, url, ua string, deps Deps) *feedSource {
	return &feedSource{name: name, url: url, ua: ua, client: deps.Client, loc: deps.Timezone}
}

func (s *feedSource) Name() string { return s.name }

func (s *feedSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	res := s.client.Fetch(ctx, s.url, map[string]string{"User-Agent": s.ua})
	if !res.OK() {
		return nil, fmt.Errorf("feed %s: fetch %s: %s", s.name, s.url, res.Class)
	}

	feed, err := gofeed.NewParser().ParseString(res.Body)
	if err != nil {
		return nil, fmt.Errorf("feed %s: parse: %w", s.name, err)
	}

	events := make([]model.RawEvent, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		raw := model.RawEvent{
			Title:       item.Title,
			Description: itemDescription(item),
			Link:        item.Link,
			Source:      s.name,
		}
		applyFeedTime(&raw, item)
		events = append(events, raw)
	}
	return events, nil
}

func itemDescription(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}

// applyFeedTime picks the item timestamp in preference order: an explicit
// start_time extension, then published, updated, and created.
func applyFeedTime(raw *model.RawEvent, item *gofeed.Item) {
	if v := item.Custom["start_time"]; v != "" {
		raw.StartText = v
		return
	}
	switch {
	case item.PublishedParsed != nil:
		raw.Start = *item.PublishedParsed
	case item.Published != "":
		raw.StartText = item.Published
	case item.UpdatedParsed != nil:
		raw.Start = *item.UpdatedParsed
	case item.Updated != "":
		raw.StartText = item.Updated
	case item.Custom["created"] != "":
		raw.StartText = item.Custom["created"]
	}
}
