package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	Convey("With no file and no env, defaults apply", t, func() {
		t.Setenv("EVENTFEEDS_CONFIG", "")
		cfg, err := Load(context.Background())
		So(err, ShouldBeNil)
		So(cfg.Timezone, ShouldEqual, "America/New_York")
		So(cfg.HorizonDays, ShouldEqual, 120)
		So(cfg.GraceDays, ShouldEqual, 2)
		So(cfg.UserAgent, ShouldEqual, "fxbg-event-bot/1.0")
		So(cfg.PolitenessMinSec, ShouldEqual, 2)
		So(cfg.PolitenessMaxSec, ShouldEqual, 5)
	})
}

func TestLoadFile(t *testing.T) {
	Convey("A YAML file layers over the defaults", t, func() {
		path := writeConfig(t, `
timezone: America/Chicago
horizon_days: 60
sources:
  - name: town
    kind: rss
    url: https://ex.test/feed
`)
		t.Setenv("EVENTFEEDS_CONFIG", path)

		cfg, err := Load(context.Background())
		So(err, ShouldBeNil)
		So(cfg.Timezone, ShouldEqual, "America/Chicago")
		So(cfg.HorizonDays, ShouldEqual, 60)
		So(cfg.GraceDays, ShouldEqual, 2)
		So(len(cfg.Sources), ShouldEqual, 1)
		So(cfg.Sources[0].Kind, ShouldEqual, "rss")
	})

	Convey("A missing file is an error", t, func() {
		t.Setenv("EVENTFEEDS_CONFIG", "/does/not/exist.yaml")
		_, err := Load(context.Background())
		So(errors.Is(err, ErrLoadConfig), ShouldBeTrue)
	})
}

func TestLoadEnvOverride(t *testing.T) {
	Convey("Environment variables win over the file", t, func() {
		path := writeConfig(t, "timezone: America/Chicago\n")
		t.Setenv("EVENTFEEDS_CONFIG", path)
		t.Setenv("EVENTFEEDS_TIMEZONE", "America/Denver")

		cfg, err := Load(context.Background())
		So(err, ShouldBeNil)
		So(cfg.Timezone, ShouldEqual, "America/Denver")
	})
}

func TestValidate(t *testing.T) {
	Convey("A reversed politeness window is invalid", t, func() {
		path := writeConfig(t, "politeness_min_sec: 10\npoliteness_max_sec: 2\n")
		t.Setenv("EVENTFEEDS_CONFIG", path)
		_, err := Load(context.Background())
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})

	Convey("Sources need a name and a kind", t, func() {
		path := writeConfig(t, "sources:\n  - url: https://ex.test\n")
		t.Setenv("EVENTFEEDS_CONFIG", path)
		_, err := Load(context.Background())
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})

	Convey("Duplicate source names are rejected", t, func() {
		path := writeConfig(t, `
sources:
  - {name: a, kind: rss, url: https://x.test}
  - {name: a, kind: ics, url: https://y.test}
`)
		t.Setenv("EVENTFEEDS_CONFIG", path)
		_, err := Load(context.Background())
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}
