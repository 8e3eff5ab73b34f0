// Package source contains one adapter per source kind. Each adapter turns
// fetched documents into zero or more raw event records; a parse failure on
// one item never prevents the records already collected from being
// returned.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/caymran/eventfeeds/internal/adapters/fetch"
	"github.com/caymran/eventfeeds/internal/config"
	"github.com/caymran/eventfeeds/internal/domain/model"
)

// Source produces raw events from one configured input.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawEvent, error)
}

// Fetcher is the slice of the cache/retry client adapters need.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) fetch.Result
}

// Renderer executes a headless-render crawl of a single page. It is the
// expensive fallback path; implementations bound concurrent sessions.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Deps carries the shared collaborators injected into every adapter.
type Deps struct {
	Client    Fetcher
	Renderer  Renderer // may be nil; adapters then skip headless fallbacks
	Timezone  *time.Location
	UserAgent string
}

// NewFromConfig builds the adapter for one source entry.
func NewFromConfig(cfg config.Source, deps Deps) (Source, error) {
	ua := cfg.UserAgent
	if ua == "" {
		ua = deps.UserAgent
	}
	switch cfg.Kind {
	case "rss":
		return newFeedSource(cfg.Name, cfg.URL, ua, deps), nil
	case "ics":
		return newICSSource(cfg.Name, cfg.URL, ua, deps), nil
	case "thrillshare":
		return newThrillshareSource(cfg.Name, cfg.URL, ua, deps), nil
	case "html":
		return newHTMLSource(cfg, ua, deps), nil
	case "eventbrite":
		return newEventbriteSource(cfg, ua, deps), nil
	case "macaronikid":
		return newMacaroniKidSource(cfg, ua, deps), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", cfg.Kind)
	}
}
