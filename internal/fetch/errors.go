package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a failed fetch.
type Kind int

const (
	// KindUpstreamHTTP is a non-2xx response from the site.
	KindUpstreamHTTP Kind = iota + 1
	// KindUnreachable means no response arrived (network, DNS, timeout, redirect cap).
	KindUnreachable
	// KindRequestSetup is a local failure before anything was sent.
	KindRequestSetup
)

func (k Kind) String() string {
	switch k {
	case KindUpstreamHTTP:
		return "upstream_http_error"
	case KindUnreachable:
		return "upstream_unreachable"
	case KindRequestSetup:
		return "request_setup_error"
	default:
		return "unknown"
	}
}

// Error is a tagged single-site fetch failure.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUpstreamHTTP:
		return fmt.Sprintf("%s: status %d from %s", e.Kind, e.StatusCode, e.URL)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind carried by err, or 0 when err is not a fetch Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
