package site

import (
	"net/url"
	"strings"
	"unicode"
)

// URLRuleKind selects how the search term is placed into a base URL.
type URLRuleKind int

const (
	// AppendEncoded concatenates the encoded term onto the base URL.
	AppendEncoded URLRuleKind = iota
	// ReplaceParam writes the encoded term into the value of a named query parameter.
	ReplaceParam
	// AppendQueryParam adds "&q=<term>" to an existing query string.
	AppendQueryParam
)

func (k URLRuleKind) String() string {
	switch k {
	case ReplaceParam:
		return "replace_param"
	case AppendQueryParam:
		return "append_query_param"
	default:
		return "append_encoded"
	}
}

// URLRule is the resolved URL construction rule for a site.
type URLRule struct {
	Kind  URLRuleKind
	Param string // set for ReplaceParam
}

// ClassifyURL picks the URL rule for a site id and base URL. The first
// matching case wins:
//
//  1. query string ending in "=": append the term
//  2. site with a named search parameter present in the query: replace its value
//  3. any other query string: append "&q=<term>"
//  4. otherwise: append the term
func ClassifyURL(id, baseURL string) URLRule {
	_, query, hasQuery := strings.Cut(baseURL, "?")
	if hasQuery && strings.HasSuffix(baseURL, "=") {
		return URLRule{Kind: AppendEncoded}
	}
	if hasQuery {
		if k, ok := KindOf(id); ok {
			if p := k.SearchParam(); p != "" && paramIndex(query, p) >= 0 {
				return URLRule{Kind: ReplaceParam, Param: p}
			}
		}
		return URLRule{Kind: AppendQueryParam}
	}
	return URLRule{Kind: AppendEncoded}
}

// Apply builds the search URL for term. It never fails; unexpected input
// degrades to plain concatenation.
func (r URLRule) Apply(baseURL, term string) string {
	enc := EncodeTerm(term)
	switch r.Kind {
	case ReplaceParam:
		if out, ok := replaceParam(baseURL, r.Param, enc); ok {
			return out
		}
		return baseURL + enc
	case AppendQueryParam:
		return baseURL + "&q=" + enc
	default:
		return baseURL + enc
	}
}

// BuildSearchURL returns the fully qualified search URL for a site.
func BuildSearchURL(id, baseURL, term string) string {
	baseURL = escapeSpace(strings.TrimSpace(baseURL))
	return ClassifyURL(id, baseURL).Apply(baseURL, term)
}

// escapeSpace percent-encodes whitespace left inside a configured base URL.
func escapeSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			b.WriteString(url.PathEscape(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EncodeTerm percent-encodes term for use in a URL. Spaces become %20.
func EncodeTerm(term string) string {
	// QueryEscape turns a literal '+' into %2B, so every '+' left is a space.
	return strings.ReplaceAll(url.QueryEscape(term), "+", "%20")
}

// paramIndex returns the offset in query where "name=" starts a parameter,
// or -1. Only parameter boundaries match, so "k" does not match "_nkw=".
func paramIndex(query, name string) int {
	key := name + "="
	for off := 0; off <= len(query); {
		i := strings.Index(query[off:], key)
		if i < 0 {
			return -1
		}
		pos := off + i
		if pos == 0 || query[pos-1] == '&' || query[pos-1] == ';' {
			return pos
		}
		off = pos + 1
	}
	return -1
}

// replaceParam swaps the value of the named parameter for value, leaving
// every other byte of baseURL untouched.
func replaceParam(baseURL, name, value string) (string, bool) {
	q := strings.IndexByte(baseURL, '?')
	if q < 0 {
		return "", false
	}
	query := baseURL[q+1:]
	i := paramIndex(query, name)
	if i < 0 {
		return "", false
	}
	start := q + 1 + i + len(name) + 1
	end := start
	for end < len(baseURL) && baseURL[end] != '&' && baseURL[end] != '#' && baseURL[end] != ';' {
		end++
	}
	return baseURL[:start] + value + baseURL[end:], true
}
