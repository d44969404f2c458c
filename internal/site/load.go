package site

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultEntries is the built-in site list, in visiting order.
func DefaultEntries() []Entry {
	return []Entry{
		{ID: "gundam_place", BaseURL: "https://gundamplacestore.com/search?q="},
		{ID: "az_toy_hobby", BaseURL: "https://aztoyhobby.com/search?q="},
		{ID: "usags", BaseURL: "https://www.usagundamstore.com/search?q="},
		{ID: "newtype", BaseURL: "https://newtype.us/search?q="},
		{ID: "gundam_galaxy", BaseURL: "https://www.thegundamgalaxy.com/search?q="},
		{ID: "p_bandai_usa", BaseURL: "https://p-bandai.com/us/search?text=&sort=new"},
		{ID: "amazon", BaseURL: "https://www.amazon.com/s?k=gunpla&i=toys-and-games"},
		{ID: "ebay", BaseURL: "https://www.ebay.com/sch/i.html?_nkw=&_sacat=0"},
	}
}

// LoadFile reads a site list. Two shapes are accepted, in YAML or JSON:
// an object mapping id to base URL (key order is kept), or a list of
// {id, base_url} entries.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "site: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a site list; see LoadFile.
func Parse(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "site: parse list")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, eris.New("site: empty list")
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		entries := make([]Entry, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			k, v := root.Content[i], root.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, eris.Errorf("site %q: base url must be a string (line %d)", k.Value, v.Line)
			}
			entries = append(entries, Entry{ID: k.Value, BaseURL: v.Value})
		}
		return entries, nil
	case yaml.SequenceNode:
		var entries []Entry
		if err := root.Decode(&entries); err != nil {
			return nil, eris.Wrap(err, "site: decode entries")
		}
		return entries, nil
	default:
		return nil, eris.Errorf("site: unsupported list shape at line %d", root.Line)
	}
}
