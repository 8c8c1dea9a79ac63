package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
)

// Profile holds the acceptable range of each metric for one plant.
type Profile struct {
	Name   string                     `json:"name"`
	Ranges map[telemetry.Metric]Range `json:"ranges"`
}

// Range returns the range defined for metric, if any.
func (p Profile) Range(metric telemetry.Metric) (Range, bool) {
	r, ok := p.Ranges[metric]
	return r, ok
}

// Validate returns a *ConfigurationError for the first invalid range, in
// metric order.
func (p Profile) Validate() error {
	metrics := make([]telemetry.Metric, 0, len(p.Ranges))
	for m := range p.Ranges {
		metrics = append(metrics, m)
	}
	for _, m := range telemetry.SortMetrics(metrics) {
		r := p.Ranges[m]
		if err := r.Validate(); err != nil {
			return &ConfigurationError{Profile: p.Name, Metric: m, Range: r, Err: err}
		}
	}
	return nil
}

// ResolveProfile returns table[key] when present and def otherwise.
func ResolveProfile(key string, table map[string]Profile, def Profile) Profile {
	if p, ok := table[key]; ok {
		return p
	}
	return def
}

// Selection is the result of resolving a profile key.
type Selection struct {
	Requested string  `json:"requested"`
	Profile   Profile `json:"profile"`
	Fallback  bool    `json:"fallback"`
}

// Catalog is a validated, read-only set of profiles plus the fallback used
// for unknown keys.
type Catalog struct {
	profiles map[string]Profile
	fallback Profile
}

// NewCatalog validates every profile and the fallback. The first invalid
// range aborts construction.
func NewCatalog(profiles map[string]Profile, fallback Profile) (*Catalog, error) {
	c := &Catalog{
		profiles: make(map[string]Profile, len(profiles)),
		fallback: copyProfile(fallback),
	}

	if err := c.fallback.Validate(); err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}

	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		p := copyProfile(profiles[k])
		if p.Name == "" {
			p.Name = k
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		c.profiles[k] = p
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return c, nil
}

// Resolve looks up key and records whether the fallback was used.
func (c *Catalog) Resolve(key string) Selection {
	p, ok := c.profiles[key]
	if !ok {
		return Selection{Requested: key, Profile: copyProfile(c.fallback), Fallback: true}
	}
	return Selection{Requested: key, Profile: copyProfile(p)}
}

// Lookup returns the profile registered under key.
func (c *Catalog) Lookup(key string) (Profile, bool) {
	p, ok := c.profiles[key]
	if !ok {
		return Profile{}, false
	}
	return copyProfile(p), true
}

// Default returns the fallback profile.
func (c *Catalog) Default() Profile {
	return copyProfile(c.fallback)
}

// Keys returns the registered profile keys in lexical order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.profiles))
	for k := range c.profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// copyProfile detaches the ranges map so callers cannot mutate a catalog.
func copyProfile(p Profile) Profile {
	out := Profile{Name: p.Name, Ranges: make(map[telemetry.Metric]Range, len(p.Ranges))}
	for m, r := range p.Ranges {
		out.Ranges[m] = r
	}
	return out
}
