package stealth

import (
	"net/http"

	"github.com/rotisserie/eris"
)

// ErrDisallowed is returned when robots.txt forbids a request.
var ErrDisallowed = eris.New("blocked by robots.txt")

// RobotsTransport is an http.RoundTripper that refuses URLs robots.txt
// disallows for the request's User-Agent. The checker's own client must not
// route through this transport.
type RobotsTransport struct {
	Base   http.RoundTripper
	Robots *RobotsChecker
}

func (t *RobotsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), req.Header.Get("User-Agent"), req.URL.String())
		if err == nil && !allowed {
			return nil, eris.Wrapf(ErrDisallowed, "%s", req.URL.Path)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
