package dedupe

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/caymran/eventfeeds/internal/domain/model"
)

// RuleSpec is the uncompiled form of a routing or drop rule.
type RuleSpec struct {
	Hosts         []string
	TitleRegex    string
	TitleGlob     string
	LocationRegex string
}

// Rule is a compiled matcher over hostname, title, and location.
type Rule struct {
	hosts      []string
	titleRE    *regexp.Regexp
	titleGlob  string
	locationRE *regexp.Regexp
}

// Compile validates and compiles a RuleSpec. Regexes are case-insensitive.
func Compile(spec RuleSpec) (Rule, error) {
	r := Rule{titleGlob: strings.ToLower(spec.TitleGlob)}
	for _, h := range spec.Hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			r.hosts = append(r.hosts, h)
		}
	}
	var err error
	if spec.TitleRegex != "" {
		if r.titleRE, err = regexp.Compile("(?i)" + spec.TitleRegex); err != nil {
			return Rule{}, fmt.Errorf("title regex: %w", err)
		}
	}
	if spec.LocationRegex != "" {
		if r.locationRE, err = regexp.Compile("(?i)" + spec.LocationRegex); err != nil {
			return Rule{}, fmt.Errorf("location regex: %w", err)
		}
	}
	if len(r.hosts) == 0 && r.titleRE == nil && r.titleGlob == "" && r.locationRE == nil {
		return Rule{}, fmt.Errorf("rule matches nothing")
	}
	return r, nil
}

// CompileAll compiles a batch of specs, failing on the first bad one.
func CompileAll(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		r, err := Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// matches reports whether any configured criterion hits. Criteria are OR'd:
// a rule listing a host and a title regex fires on either.
func (r Rule) matches(ev model.Event) bool {
	if len(r.hosts) > 0 {
		host := eventHost(ev)
		for _, h := range r.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return true
			}
		}
	}
	if r.titleRE != nil && r.titleRE.MatchString(ev.Title) {
		return true
	}
	if r.titleGlob != "" {
		if ok, _ := path.Match(r.titleGlob, strings.ToLower(ev.Title)); ok {
			return true
		}
	}
	if r.locationRE != nil && r.locationRE.MatchString(ev.Location) {
		return true
	}
	return false
}

func eventHost(ev model.Event) string {
	for _, raw := range []string{ev.Link, ev.Source} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	return ""
}
