package extract

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/site"
)

// Extract parses a search-results page and returns one product per container
// matched by rule, in document order. Containers without a title are skipped.
func Extract(r io.Reader, source string, rule site.ExtractionRule) ([]models.Product, error) {
	if rule.Container == "" {
		return nil, site.ErrEmptyContainer
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}
	doc := goquery.NewDocumentFromNode(root)

	products := []models.Product{}
	doc.Find(rule.Container).Each(func(_ int, s *goquery.Selection) {
		title := firstText(s, rule.Title)
		if title == "" {
			return
		}

		price := firstText(s, rule.Price)
		if price == "" {
			price = models.PriceUnavailable
		}

		link := firstAttr(s, rule.Link, "href")
		if link == "" {
			link = models.NoLink
		} else if rule.BaseURL != "" {
			link = ResolveLink(rule.BaseURL, link)
		}

		products = append(products, models.Product{
			Title:  title,
			Price:  price,
			Link:   link,
			Image:  firstAttr(s, rule.Image, "src"),
			Source: source,
		})
	})
	return products, nil
}

// ExtractBytes is Extract over an in-memory page.
func ExtractBytes(body []byte, source string, rule site.ExtractionRule) ([]models.Product, error) {
	return Extract(bytes.NewReader(body), source, rule)
}

func firstText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func firstAttr(s *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	v, _ := s.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// ResolveLink prefixes a relative link with base, inserting exactly one "/".
// Links that already carry a scheme are returned unchanged; protocol-relative
// links take the scheme of base.
func ResolveLink(base, link string) string {
	if link == "" || schemeRe.MatchString(link) {
		return link
	}
	if strings.HasPrefix(link, "//") {
		scheme := "https"
		if u, err := url.Parse(base); err == nil && u.Scheme != "" {
			scheme = u.Scheme
		}
		return scheme + ":" + link
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(link, "/")
}
