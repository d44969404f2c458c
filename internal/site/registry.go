package site

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUnknownSite is returned for site ids without a dedicated Kind when
// the registry is strict, and for lookups of ids the registry does not hold.
var ErrUnknownSite = eris.New("unknown site")

// Entry is one line of the site configuration: an id and its search base URL.
type Entry struct {
	ID      string `json:"id" yaml:"id" mapstructure:"id"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// Descriptor is an immutable, fully resolved site.
type Descriptor struct {
	ID      string
	BaseURL string
	Kind    Kind
	URLRule URLRule
	Rule    ExtractionRule
}

// SearchURL builds the search URL for term on this site.
func (d Descriptor) SearchURL(term string) string {
	return d.URLRule.Apply(d.BaseURL, term)
}

// Registry holds the configured sites in registration order.
type Registry struct {
	sites []Descriptor
	index map[string]int
}

// Options controls registry construction.
type Options struct {
	// Strict rejects site ids that have no dedicated Kind instead of giving
	// them the default extraction rule.
	Strict bool
	Logger *zap.Logger
}

// NewRegistry resolves entries into descriptors. Order is preserved.
func NewRegistry(entries []Entry, opts Options) (*Registry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &Registry{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if e.ID == "" {
			return nil, eris.New("site: entry with empty id")
		}
		base := escapeSpace(strings.TrimSpace(e.BaseURL))
		if base == "" {
			return nil, eris.Errorf("site %q: empty base url", e.ID)
		}
		if _, dup := r.index[e.ID]; dup {
			return nil, eris.Errorf("site %q: registered twice", e.ID)
		}

		kind, known := KindOf(e.ID)
		if !known {
			if opts.Strict {
				return nil, eris.Wrapf(ErrUnknownSite, "site %q has no extraction rule", e.ID)
			}
			log.Warn("site has no dedicated extraction rule, using default selectors",
				zap.String("site", e.ID))
		}

		rule := kind.Rule()
		if err := rule.Validate(); err != nil {
			return nil, eris.Wrapf(err, "site %q", e.ID)
		}

		r.index[e.ID] = len(r.sites)
		r.sites = append(r.sites, Descriptor{
			ID:      e.ID,
			BaseURL: base,
			Kind:    kind,
			URLRule: ClassifyURL(e.ID, base),
			Rule:    rule,
		})
	}
	return r, nil
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, error) {
	i, ok := r.index[id]
	if !ok {
		return Descriptor{}, eris.Wrapf(ErrUnknownSite, "site %q not registered", id)
	}
	return r.sites[i], nil
}

// All returns descriptors in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.sites))
	copy(out, r.sites)
	return out
}

// IDs returns site ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.sites))
	for i, d := range r.sites {
		ids[i] = d.ID
	}
	return ids
}

// Len returns the number of registered sites.
func (r *Registry) Len() int { return len(r.sites) }
