package site

import (
	"github.com/andybalholm/cascadia"
	"github.com/rotisserie/eris"
)

// ErrEmptyContainer is returned when a rule has no container selector.
var ErrEmptyContainer = eris.New("extraction rule has empty container selector")

// ExtractionRule holds the CSS selectors that turn a site's markup into products.
// BaseURL, when set, is prefixed to relative product links.
type ExtractionRule struct {
	Container string `json:"container" yaml:"container"`
	Title     string `json:"title" yaml:"title"`
	Price     string `json:"price" yaml:"price"`
	Link      string `json:"link" yaml:"link"`
	Image     string `json:"image" yaml:"image"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Validate checks the container selector is present and every selector parses.
func (r ExtractionRule) Validate() error {
	if r.Container == "" {
		return ErrEmptyContainer
	}
	for _, sel := range []string{r.Container, r.Title, r.Price, r.Link, r.Image} {
		if sel == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return eris.Wrapf(err, "invalid selector %q", sel)
		}
	}
	return nil
}

// Kind enumerates the sites with known markup. Generic covers everything else.
type Kind int

const (
	Generic Kind = iota
	GundamPlace
	AZToyHobby
	USAGS
	Newtype
	GundamGalaxy
	PBandaiUSA
	Amazon
	Ebay
)

var kindByID = map[string]Kind{
	"gundam_place":  GundamPlace,
	"az_toy_hobby":  AZToyHobby,
	"usags":         USAGS,
	"newtype":       Newtype,
	"gundam_galaxy": GundamGalaxy,
	"p_bandai_usa":  PBandaiUSA,
	"amazon":        Amazon,
	"ebay":          Ebay,
}

// KindOf returns the Kind registered for id. ok is false for unknown ids,
// in which case Generic is returned.
func KindOf(id string) (k Kind, ok bool) {
	k, ok = kindByID[id]
	return k, ok
}

// Kinds returns every known site kind, Generic excluded.
func Kinds() []Kind {
	return []Kind{GundamPlace, AZToyHobby, USAGS, Newtype, GundamGalaxy, PBandaiUSA, Amazon, Ebay}
}

func (k Kind) String() string {
	switch k {
	case GundamPlace:
		return "gundam_place"
	case AZToyHobby:
		return "az_toy_hobby"
	case USAGS:
		return "usags"
	case Newtype:
		return "newtype"
	case GundamGalaxy:
		return "gundam_galaxy"
	case PBandaiUSA:
		return "p_bandai_usa"
	case Amazon:
		return "amazon"
	case Ebay:
		return "ebay"
	default:
		return "generic"
	}
}

// SearchParam is the query parameter carrying the search term, for sites
// that use a named one. Empty for everyone else.
func (k Kind) SearchParam() string {
	switch k {
	case PBandaiUSA:
		return "text"
	case Amazon:
		return "k"
	case Ebay:
		return "_nkw"
	default:
		return ""
	}
}

// Rule returns the extraction rule for k.
func (k Kind) Rule() ExtractionRule {
	switch k {
	case GundamPlace, USAGS:
		return ExtractionRule{
			Container: ".product-item",
			Title:     ".product-item-title",
			Price:     ".product-item-price",
			Link:      "a",
			Image:     "img",
		}
	case AZToyHobby:
		return ExtractionRule{
			Container: ".product-card",
			Title:     ".product-card__title",
			Price:     ".product-card__price",
			Link:      "a",
			Image:     "img",
			BaseURL:   "https://aztoyhobby.com",
		}
	case Newtype:
		return ExtractionRule{
			Container: ".product-card",
			Title:     ".product-card__title",
			Price:     ".product-card__price",
			Link:      "a",
			Image:     "img",
		}
	case GundamGalaxy:
		return ExtractionRule{
			Container: ".item",
			Title:     ".name",
			Price:     ".price",
			Link:      "a",
			Image:     "img",
			BaseURL:   "https://www.thegundamgalaxy.com",
		}
	case PBandaiUSA:
		return ExtractionRule{
			Container: ".p-card",
			Title:     ".p-card__title",
			Price:     ".p-card__price",
			Link:      "a",
			Image:     "img",
			BaseURL:   "https://p-bandai.com",
		}
	case Amazon:
		return ExtractionRule{
			Container: `div[data-component-type="s-search-result"]`,
			Title:     "h2 span",
			Price:     ".a-price .a-offscreen",
			Link:      "h2 a, a.a-link-normal",
			Image:     "img.s-image",
			BaseURL:   "https://www.amazon.com",
		}
	case Ebay:
		return ExtractionRule{
			Container: "li.s-item",
			Title:     ".s-item__title",
			Price:     ".s-item__price",
			Link:      "a.s-item__link",
			Image:     ".s-item__image img",
		}
	default:
		return DefaultRule()
	}
}

// DefaultRule guesses at common product-grid markup. It is used for sites
// without a dedicated Kind.
func DefaultRule() ExtractionRule {
	return ExtractionRule{
		Container: "div.product, div.item, div.product-item, div.product-card",
		Title:     "h2, h3, h4, .title, .name",
		Price:     ".price, .product-price",
		Link:      "a",
		Image:     "img",
	}
}
