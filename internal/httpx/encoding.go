package httpx

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is advertised on every request. Setting it by hand turns
// off net/http's transparent gzip handling, so DecodeBody covers both.
const AcceptEncoding = "br, gzip"

// DecodeBody wraps r according to a Content-Encoding header value.
func DecodeBody(contentEncoding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return r, nil
	case "br":
		return brotli.NewReader(r), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("httpx: gzip body: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("httpx: unsupported content encoding %q", contentEncoding)
	}
}
