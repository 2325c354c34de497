// Package profile maps job posting URLs to per-site extraction rules.
//
// A profile bundles the CSS selectors and loading quirks for one job
// board. Detection is a substring match on the URL host, checked in
// registration order; URLs that match nothing get the generic profile.
package profile

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
)

// Profile holds the extraction rules for one job site.
type Profile struct {
	// Key is the host substring that selects this profile,
	// e.g. "linkedin.com". Matched case-insensitively.
	Key string

	// Name is the display name reported in results.
	Name string

	// Selector lists are tried in order; the first one that yields a
	// visible element with text wins.
	Title       []string
	Company     []string
	Location    []string
	Description []string

	// Modals lists dismiss controls for overlays that cover content.
	Modals []string

	// DynamicLoading marks sites that render the posting client-side
	// and need ExtraWait after the page settles.
	DynamicLoading bool
	ExtraWait      time.Duration

	// StrongBotProtection marks sites known to aggressively block
	// automation. Triggers an extra scroll cycle to look human.
	StrongBotProtection bool
}

// Registry is an ordered collection of site profiles. The zero value
// is empty; Default returns one preloaded with the built-in sites.
type Registry struct {
	mu       sync.RWMutex
	profiles []*Profile
	generic  *Profile
}

// NewRegistry returns an empty registry whose fallback is the generic
// profile.
func NewRegistry() *Registry {
	return &Registry{generic: genericProfile()}
}

// Default returns a registry preloaded with the built-in site profiles.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range builtins() {
		// Built-in selector lists are compile-time constants; a parse
		// failure here is a programming error.
		if err := r.Register(p); err != nil {
			panic(fmt.Sprintf("profile: invalid builtin %q: %v", p.Key, err))
		}
	}
	return r
}

// Register appends a profile to the detection order. Every selector is
// validated so that downstream querying can assume they parse.
func (r *Registry) Register(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile: nil profile")
	}
	key := strings.ToLower(strings.TrimSpace(p.Key))
	if key == "" {
		return fmt.Errorf("profile: empty key")
	}
	if len(p.Description) == 0 {
		return fmt.Errorf("profile %q: at least one description selector is required", key)
	}
	for _, group := range [][]string{p.Title, p.Company, p.Location, p.Description, p.Modals} {
		for _, sel := range group {
			if _, err := cascadia.Parse(sel); err != nil {
				return fmt.Errorf("profile %q: invalid selector %q: %w", key, sel, err)
			}
		}
	}
	p.Key = key
	if p.Name == "" {
		p.Name = key
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = append(r.profiles, p)
	return nil
}

// Detect returns the profile for the given URL. The URL host is
// matched against each registered key as a substring, in registration
// order; the first match wins. Unparseable URLs and unmatched hosts
// fall back to the generic profile.
func (r *Registry) Detect(rawURL string) *Profile {
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.Generic()
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return r.Generic()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if strings.Contains(host, p.Key) {
			return p
		}
	}
	return r.generic
}

// Generic returns the fallback profile.
func (r *Registry) Generic() *Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generic
}

// All returns the registered profiles in detection order, with the
// generic fallback last.
func (r *Registry) All() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.profiles)+1)
	out = append(out, r.profiles...)
	out = append(out, r.generic)
	return out
}
