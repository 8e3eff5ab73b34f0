// Package app wires the pipeline together: sources are fetched through a
// bounded worker pool, merged in configuration order, normalized,
// categorized, deduplicated, window-filtered, and written out as calendars.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caymran/eventfeeds/internal/adapters/cachestore"
	"github.com/caymran/eventfeeds/internal/adapters/fetch"
	"github.com/caymran/eventfeeds/internal/adapters/icalout"
	"github.com/caymran/eventfeeds/internal/adapters/source"
	"github.com/caymran/eventfeeds/internal/config"
	"github.com/caymran/eventfeeds/internal/domain/categorize"
	"github.com/caymran/eventfeeds/internal/domain/dedupe"
	"github.com/caymran/eventfeeds/internal/domain/model"
	"github.com/caymran/eventfeeds/internal/domain/normalize"
	"github.com/caymran/eventfeeds/pkg/logger"
	"github.com/caymran/eventfeeds/pkg/metrics"
)

// CalendarWriter is the output boundary; the pipeline never builds wire
// formats itself.
type CalendarWriter interface {
	Write(ctx context.Context, byCategory map[model.Category][]model.Event) error
}

// Service runs one ingestion pass over all configured sources.
type Service struct {
	cfg *config.Config
	log logger.Logger
	loc *time.Location

	store       *cachestore.Store
	fetcher     source.Fetcher
	renderer    source.Renderer
	sources     []source.Source
	normalizer  *normalize.Normalizer
	categorizer *categorize.Categorizer
	router      *dedupe.Router
	writer      CalendarWriter
	now         func() time.Time
}

// New builds a Service from configuration. Options may replace the fetcher,
// renderer, writer, or clock; tests rely on that.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app: load timezone %q: %w", cfg.Timezone, err)
	}

	s := &Service{
		cfg: cfg,
		log: logger.Named("app"),
		loc: loc,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		store, err := cachestore.Open(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.fetcher = fetch.New(
			fetch.WithStore(store),
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithPoliteness(
				time.Duration(cfg.PolitenessMinSec)*time.Second,
				time.Duration(cfg.PolitenessMaxSec)*time.Second,
			),
		)
	}
	if s.renderer == nil && anyHeadless(cfg.Sources) {
		s.renderer = source.NewChromeRenderer(cfg.HeadlessSessions, cfg.UserAgent)
	}
	if s.writer == nil {
		s.writer = icalout.New(cfg.OutputDir)
	}

	deps := source.Deps{
		Client:    s.fetcher,
		Renderer:  s.renderer,
		Timezone:  loc,
		UserAgent: cfg.UserAgent,
	}
	for _, sc := range cfg.Sources {
		adapter, err := source.NewFromConfig(sc, deps)
		if err != nil {
			return nil, fmt.Errorf("app: source %s: %w", sc.Name, err)
		}
		s.sources = append(s.sources, adapter)
	}

	routes, err := dedupe.CompileAll(ruleSpecs(cfg.RouteRules))
	if err != nil {
		return nil, fmt.Errorf("app: route rules: %w", err)
	}
	drops, err := dedupe.CompileAll(ruleSpecs(cfg.DropRules))
	if err != nil {
		return nil, fmt.Errorf("app: drop rules: %w", err)
	}

	s.normalizer = normalize.New(loc)
	s.categorizer = categorize.New(
		categorize.WithBuckets(cfg.CategoryKeywords),
		categorize.WithFamilyHosts(cfg.FamilyHosts),
		categorize.WithFamilySources(cfg.FamilySources),
	)
	s.router = dedupe.New(
		dedupe.WithRouteRules(routes),
		dedupe.WithDropRules(drops),
		dedupe.WithGrace(time.Duration(cfg.GraceDays)*24*time.Hour),
		dedupe.WithHorizon(time.Duration(cfg.HorizonDays)*24*time.Hour),
		dedupe.WithNow(func() time.Time { return s.now() }),
	)
	return s, nil
}

// Run executes one full pass: collect, merge, normalize, route, write.
func (s *Service) Run(ctx context.Context) error {
	started := s.now()
	s.log.Info(ctx, "run starting", logger.Int("sources", len(s.sources)))

	collected := s.collect(ctx)

	total := 0
	// Merge in configuration order: on id collisions the later source wins,
	// so the outcome never depends on goroutine scheduling.
	for _, raws := range collected {
		total += len(raws)
		for _, raw := range raws {
			s.admit(ctx, raw, "")
		}
	}
	s.injectManual(ctx)

	events := s.router.Events()
	for i, drops := 0, s.router.WindowDropCount(); i < drops; i++ {
		metrics.RecordWindowDrop()
	}

	byCategory := make(map[model.Category][]model.Event)
	for _, ev := range events {
		byCategory[ev.Category] = append(byCategory[ev.Category], ev)
		metrics.RecordEmitted(string(ev.Category))
	}
	if err := s.writer.Write(ctx, byCategory); err != nil {
		return err
	}

	s.log.Info(ctx, "run complete",
		logger.Int("raw", total),
		logger.Int("emitted", len(events)),
		logger.Int("duplicates", s.router.DuplicateCount()),
		logger.Int("rule_drops", s.router.DropCount()),
		logger.Duration("elapsed", s.now().Sub(started)))
	return nil
}

// collect fetches every source through a bounded worker pool. Results keep
// their configuration slot so the merge stays ordered. A panicking or
// failing adapter costs only its own slot.
func (s *Service) collect(ctx context.Context) [][]model.RawEvent {
	results := make([][]model.RawEvent, len(s.sources))
	sem := make(chan struct{}, s.concurrency())

	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			defer func() {
				if r := recover(); r != nil {
					s.log.Error(ctx, "source panicked",
						logger.String("source", src.Name()), logger.Any("panic", r))
					metrics.RecordSourceFailure(src.Name())
				}
			}()

			start := time.Now()
			raws, err := src.Fetch(ctx)
			metrics.ObserveSourceDuration(src.Name(), time.Since(start).Seconds())
			if err != nil {
				s.log.Warn(ctx, "source failed",
					logger.String("source", src.Name()), logger.Error(err))
				metrics.RecordSourceFailure(src.Name())
			}
			metrics.RecordSourceEvents(src.Name(), len(raws))
			s.log.Info(ctx, "source collected",
				logger.String("source", src.Name()), logger.Int("events", len(raws)))
			results[i] = raws
		}(i, src)
	}
	wg.Wait()
	return results
}

// admit pushes one raw record through normalize, categorize, and the
// router. forced overrides the keyword category when non-empty.
func (s *Service) admit(ctx context.Context, raw model.RawEvent, forced model.Category) {
	ev, ok := s.normalizer.Normalize(raw)
	if !ok {
		metrics.RecordNormalizeReject()
		s.log.Debug(ctx, "record rejected",
			logger.String("source", raw.Source), logger.String("title", raw.Title))
		return
	}
	if forced != "" {
		ev.Category = forced
	} else {
		ev.Category = s.categorizer.Categorize(ev)
	}
	switch s.router.Add(ev) {
	case dedupe.OutcomeOverwrote:
		metrics.RecordDuplicate()
	case dedupe.OutcomeDropped:
		metrics.RecordRuleDrop()
	}
}

// injectManual merges operator-supplied events after every source, so a
// manual correction always wins a dedup tie.
func (s *Service) injectManual(ctx context.Context) {
	for _, m := range s.cfg.ManualEvents {
		raw := model.RawEvent{
			Title:       m.Title,
			Description: m.Description,
			Location:    m.Location,
			Link:        m.Link,
			StartText:   m.Start,
			EndText:     m.End,
			Source:      "manual",
		}
		s.admit(ctx, raw, manualCategory(m.Category))
	}
}

func manualCategory(name string) model.Category {
	for _, cat := range model.Categories() {
		if string(cat) == name {
			return cat
		}
	}
	return ""
}

// Close releases held resources.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Service) concurrency() int {
	if s.cfg.FetchConcurrency > 0 {
		return s.cfg.FetchConcurrency
	}
	return 1
}

func anyHeadless(sources []config.Source) bool {
	for _, sc := range sources {
		if sc.Headless {
			return true
		}
	}
	return false
}

func ruleSpecs(rules []config.Rule) []dedupe.RuleSpec {
	specs := make([]dedupe.RuleSpec, 0, len(rules))
	for _, r := range rules {
		specs = append(specs, dedupe.RuleSpec{
			Hosts:         r.Hosts,
			TitleRegex:    r.TitleRegex,
			TitleGlob:     r.TitleGlob,
			LocationRegex: r.LocationRegex,
		})
	}
	return specs
}
