package httputil

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html/charset"
)

// DefaultMaxRedirects caps redirect hops when ClientOptions leaves it unset.
const DefaultMaxRedirects = 5

// MaxBodySize bounds how much of a response body is read.
const MaxBodySize = 8 << 20

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	Timeout      time.Duration
	MaxRedirects int
	// ProxyURL routes requests through an HTTP or SOCKS5 proxy when set.
	ProxyURL string
	// Transport overrides the base transport. ProxyURL is ignored when set.
	Transport http.RoundTripper
}

// NewHTTPClient creates an HTTP client with a timeout and a redirect cap.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	transport := opts.Transport
	if transport == nil {
		t := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		if opts.ProxyURL != "" {
			u, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, eris.Wrapf(err, "parse proxy url %q", opts.ProxyURL)
			}
			t.Proxy = http.ProxyURL(u)
		}
		transport = t
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return eris.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}, nil
}

// ReadBody reads and decompresses an HTTP response body, then transcodes
// it to UTF-8 using the Content-Type charset or the document's meta tags.
func ReadBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "gzip reader")
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	default:
		reader = resp.Body
	}

	utf8, err := charset.NewReader(io.LimitReader(reader, MaxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, eris.Wrap(err, "charset reader")
	}
	body, err := io.ReadAll(utf8)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return body, nil
}
