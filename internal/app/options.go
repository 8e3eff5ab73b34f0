package app

import (
	"time"

	"github.com/caymran/eventfeeds/internal/adapters/source"
	"github.com/caymran/eventfeeds/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher replaces the HTTP access layer; tests use stub fetchers.
func WithFetcher(f source.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithRenderer replaces the headless renderer.
func WithRenderer(r source.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithWriter replaces the calendar output boundary.
func WithWriter(w CalendarWriter) Option {
	return func(s *Service) {
		if w != nil {
			s.writer = w
		}
	}
}

// WithNow overrides the clock; tests use this to pin the output window.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
