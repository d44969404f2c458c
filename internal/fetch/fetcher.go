package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lukman83/gunpla-scrap/internal/httputil"
	"github.com/lukman83/gunpla-scrap/internal/stealth"
)

// Timeouts used by the normal and long-timeout modes.
const (
	DefaultTimeout = 10 * time.Second
	LongTimeout    = 30 * time.Second
)

// Options configures a Fetcher.
type Options struct {
	Timeout       time.Duration
	MaxRedirects  int
	Headers       http.Header
	RespectRobots bool
	ProxyURL      string
	// Transport replaces the network transport, mainly for tests.
	Transport http.RoundTripper
}

// Page is a successfully fetched search-results page.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Block      BlockType
}

// Fetcher performs one GET per call with browser-like headers.
type Fetcher struct {
	client  *http.Client
	headers http.Header
	timeout time.Duration
}

// New builds a Fetcher from opts.
func New(opts Options) (*Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Headers == nil {
		opts.Headers = httputil.BrowserHeaders()
	}

	base, err := httputil.NewHTTPClient(httputil.ClientOptions{
		MaxRedirects: opts.MaxRedirects,
		ProxyURL:     opts.ProxyURL,
		Transport:    opts.Transport,
	})
	if err != nil {
		return nil, eris.Wrap(err, "fetch: build client")
	}

	client := base
	if opts.RespectRobots {
		robotsClient := &http.Client{Transport: base.Transport, Timeout: opts.Timeout}
		client = &http.Client{
			Transport: &stealth.RobotsTransport{
				Base:   base.Transport,
				Robots: stealth.NewRobotsChecker(robotsClient),
			},
			CheckRedirect: base.CheckRedirect,
		}
	}

	return &Fetcher{client: client, headers: opts.Headers, timeout: opts.Timeout}, nil
}

// Timeout returns the fetcher's default per-request timeout.
func (f *Fetcher) Timeout() time.Duration { return f.timeout }

// Fetch GETs rawURL. A zero timeout uses the fetcher default. Every failure
// is returned as an *Error tagged with its Kind.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*Page, error) {
	if timeout <= 0 {
		timeout = f.timeout
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Kind: KindRequestSetup, URL: rawURL, Err: eris.Wrap(err, "parse url")}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{Kind: KindRequestSetup, URL: rawURL, Err: eris.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &Error{Kind: KindRequestSetup, URL: rawURL, Err: eris.New("missing host")}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindRequestSetup, URL: rawURL, Err: eris.Wrap(err, "build request")}
	}
	for k, v := range f.headers {
		req.Header[k] = append([]string(nil), v...)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, stealth.ErrDisallowed) {
			return nil, &Error{Kind: KindRequestSetup, URL: rawURL, Err: err}
		}
		return nil, &Error{Kind: KindUnreachable, URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &Error{
			Kind:       KindUpstreamHTTP,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	_, block := DetectBlock(resp, body)
	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
		Block:      block,
	}, nil
}
