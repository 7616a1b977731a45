package canvas

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"canvas-finder/internal/httpx"
)

// Kind classifies API failures.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindAuth
	KindNotFound
	KindUnexpected
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindUnexpected:
		return "unexpected response"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by every Client call.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "canvas: %s: GET %s", e.Kind, e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	var herr *httpx.HTTPError
	if e.Err != nil && !errors.As(e.Err, &herr) {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.StatusCode != 0 && len(e.Body) > 0 {
		fmt.Fprintf(&b, " body=%s", httpx.Snippet(e.Body, 200))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return 0
}

func kindForStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnexpected
	}
}

// classify turns a transport level failure into an *Error.
func classify(rawURL string, err error) *Error {
	var herr *httpx.HTTPError
	if errors.As(err, &herr) {
		return &Error{
			Kind:       kindForStatus(herr.StatusCode),
			URL:        rawURL,
			StatusCode: herr.StatusCode,
			Body:       herr.Body,
			Err:        err,
		}
	}
	return &Error{Kind: KindNetwork, URL: rawURL, Err: err}
}
