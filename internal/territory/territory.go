// Package territory maps Stacker News territory keys to feed locations.
package territory

import "strings"

// SiteURL is the upstream site all feed URLs are built from.
const SiteURL = "https://stacker.news"

// Recent is the sitewide pseudo-territory backed by the root RSS feed.
const Recent = "~recent"

// Normalize canonicalizes a raw territory key: trim, lower-case, and ensure
// the leading ~ sigil. Empty or whitespace-only input yields "".
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "~") {
		trimmed = "~" + trimmed
	}
	return strings.ToLower(trimmed)
}

// Label returns the display form of a territory key, without the sigil.
func Label(key string) string {
	return strings.TrimPrefix(key, "~")
}

// Registry holds the default territory, the configured shortlist, and the
// feed URLs that differ from the standard per-territory pattern. Any
// normalized key is a valid territory; the upstream feed decides whether it
// has content. Built once at startup, read-only afterwards.
type Registry struct {
	def      string
	allowed  []string
	feedURLs map[string]string
}

// NewRegistry builds a registry from the default territory and the allowed
// shortlist. All keys are normalized; the default and the sitewide recent
// feed are always registered.
func NewRegistry(defaultKey string, allowed []string) *Registry {
	r := &Registry{
		def:      Normalize(defaultKey),
		feedURLs: make(map[string]string),
	}
	if r.def == "" {
		r.def = Normalize(Recent)
	}
	r.register(r.def)
	r.register(Recent)
	for _, key := range allowed {
		k := Normalize(key)
		if k == "" {
			continue
		}
		r.register(k)
		r.allowed = append(r.allowed, k)
	}
	return r
}

func (r *Registry) register(key string) {
	if _, ok := r.feedURLs[key]; ok {
		return
	}
	if key == Recent {
		r.feedURLs[key] = SiteURL + "/rss"
		return
	}
	r.feedURLs[key] = SiteURL + "/" + key + "/rss"
}

// Default returns the configured default territory key.
func (r *Registry) Default() string {
	return r.def
}

// Allowed returns the configured shortlist in configuration order.
func (r *Registry) Allowed() []string {
	return r.allowed
}

// Shortlist returns up to n territories from the allowed list.
func (r *Registry) Shortlist(n int) []string {
	if n > len(r.allowed) {
		n = len(r.allowed)
	}
	return r.allowed[:n]
}

// Resolve normalizes raw input to a territory key. Empty input yields the
// default territory, never an error. Keys off the shortlist resolve to
// themselves, so a typed custom territory is browsable like any other.
func (r *Registry) Resolve(raw string) string {
	key := Normalize(raw)
	if key == "" {
		return r.def
	}
	return key
}

// FeedURL returns the syndication endpoint for a territory key. Keys with no
// registered override follow the per-territory URL pattern; empty input
// yields the default territory's URL.
func (r *Registry) FeedURL(key string) string {
	k := Normalize(key)
	if k == "" {
		k = r.def
	}
	if u, ok := r.feedURLs[k]; ok {
		return u
	}
	return SiteURL + "/" + k + "/rss"
}
