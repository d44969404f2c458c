package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Sentinels substituted when a listing omits a field.
const (
	PriceUnavailable = "Price not available"
	NoLink           = "#"
)

// Product is one listing extracted from a site's search-results page.
// All fields are display-ready text or URLs.
type Product struct {
	Title  string `json:"title"`
	Price  string `json:"price"`
	Link   string `json:"link"`
	Image  string `json:"image"`
	Source string `json:"source"`
}

// SearchRun is one persisted invocation of a search across all sites.
type SearchRun struct {
	ID           int64  `json:"id" db:"id"`
	SearchTerm   string `json:"search_term" db:"search_term"`
	Timestamp    string `json:"timestamp" db:"timestamp"`
	TotalResults int    `json:"total_results" db:"total_results"`
}

// ResultSet maps site id to its products while remembering the order in
// which sites were added. The zero value is ready to use.
type ResultSet struct {
	order  []string
	bySite map[string][]Product
}

// NewResultSet returns a ResultSet with every site initialised to an empty list.
func NewResultSet(sites ...string) *ResultSet {
	rs := &ResultSet{}
	for _, s := range sites {
		rs.Set(s, nil)
	}
	return rs
}

// Set replaces the products recorded for site. A nil slice is stored as empty.
func (r *ResultSet) Set(site string, products []Product) {
	if r.bySite == nil {
		r.bySite = make(map[string][]Product)
	}
	if _, ok := r.bySite[site]; !ok {
		r.order = append(r.order, site)
	}
	if products == nil {
		products = []Product{}
	}
	r.bySite[site] = products
}

// Append adds products to site, registering the site if needed.
func (r *ResultSet) Append(site string, products ...Product) {
	r.Set(site, append(r.Get(site), products...))
}

// Get returns the products for site, or nil when the site is not present.
func (r *ResultSet) Get(site string) []Product {
	if r == nil || r.bySite == nil {
		return nil
	}
	return r.bySite[site]
}

// Has reports whether site is a key of the set.
func (r *ResultSet) Has(site string) bool {
	if r == nil || r.bySite == nil {
		return false
	}
	_, ok := r.bySite[site]
	return ok
}

// Sites returns the site keys in insertion order.
func (r *ResultSet) Sites() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of site keys.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Total returns the sum of all per-site list lengths.
func (r *ResultSet) Total() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, p := range r.bySite {
		n += len(p)
	}
	return n
}

// SitesWithResults counts sites holding at least one product.
func (r *ResultSet) SitesWithResults() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, p := range r.bySite {
		if len(p) > 0 {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the set as a JSON object whose keys keep insertion order.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r != nil {
		for i, site := range r.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(site)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(r.bySite[site])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of site → products, keeping key order.
func (r *ResultSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("result set: expected object, got %v", tok)
	}
	*r = ResultSet{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		site, ok := tok.(string)
		if !ok {
			return fmt.Errorf("result set: expected site key, got %v", tok)
		}
		var products []Product
		if err := dec.Decode(&products); err != nil {
			return fmt.Errorf("result set: site %q: %w", site, err)
		}
		r.Set(site, products)
	}
	_, err = dec.Token()
	return err
}
