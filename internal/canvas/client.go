package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"canvas-finder/internal/httpx"
	"canvas-finder/internal/metrics"
)

// Page is one decoded JSON array page of a list endpoint.
type Page []json.RawMessage

type Options struct {
	// Timeout bounds each HTTP attempt. Zero means 30s.
	Timeout time.Duration
	Retry   httpx.RetryConfig
	// PerPage is sent as per_page on paginated requests. Zero means 100.
	PerPage int
	Metrics *metrics.Metrics
	// HTTP overrides the underlying client (tests). Timeout is still applied
	// when the override has none.
	HTTP *http.Client
}

// Client is a read-only Canvas REST client. It is safe for concurrent use;
// the base URL and token never change after New.
type Client struct {
	baseURL *url.URL
	token   string
	perPage int
	retry   httpx.RetryConfig
	metrics *metrics.Metrics
	HTTP    *http.Client
}

func New(baseURL, token string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("canvas: invalid base url %q", baseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 100
	}

	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Timeout == 0 {
		hc.Timeout = opts.Timeout
	}

	return &Client{
		baseURL: u,
		token:   token,
		perPage: opts.PerPage,
		retry:   opts.Retry,
		metrics: opts.Metrics,
		HTTP:    hc,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("Accept", "application/json")
	return h
}

// Get fetches a single page of path (relative to the base URL).
func (c *Client) Get(ctx context.Context, path string, query url.Values) (Page, error) {
	page, _, err := c.getPage(ctx, c.resolve(path, query))
	return page, err
}

// GetPaginated fetches path and follows Link rel="next" until the last page.
// It returns every page or an error; partial results are never returned.
func (c *Client) GetPaginated(ctx context.Context, path string, query url.Values) ([]Page, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	if q.Get("per_page") == "" {
		q.Set("per_page", fmt.Sprint(c.perPage))
	}

	var pages []Page
	next := c.resolve(path, q)
	seen := map[string]bool{}
	for next != "" {
		if seen[next] {
			return nil, &Error{Kind: KindUnexpected, URL: next, Err: errors.New("pagination loop")}
		}
		seen[next] = true

		page, nextLink, err := c.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)

		if nextLink == "" {
			break
		}
		if next, err = c.checkNext(next, nextLink); err != nil {
			return nil, err
		}
	}
	return pages, nil
}

// checkNext resolves a next link and refuses to send the token to another host.
func (c *Client) checkNext(current, link string) (string, error) {
	cur, err := url.Parse(current)
	if err != nil {
		return "", &Error{Kind: KindUnexpected, URL: current, Err: err}
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", &Error{Kind: KindUnexpected, URL: link, Err: fmt.Errorf("bad next link: %w", err)}
	}
	u := cur.ResolveReference(ref)
	if !strings.EqualFold(u.Host, c.baseURL.Host) || u.Scheme != c.baseURL.Scheme {
		return "", &Error{Kind: KindUnexpected, URL: u.String(), Err: errors.New("next link leaves the configured host")}
	}
	return u.String(), nil
}

func (c *Client) getPage(ctx context.Context, rawURL string) (Page, string, error) {
	resp, body, err := httpx.Get(ctx, c.HTTP, rawURL, c.header(), c.retry)
	if err != nil {
		cerr := classify(rawURL, err)
		c.metrics.ObserveRequest(cerr.Kind.String())
		return nil, "", cerr
	}
	c.metrics.ObserveRequest("ok")

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", &Error{
			Kind:       KindDecode,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("expected a JSON array: %w", err),
		}
	}
	return page, httpx.NextLink(resp.Header), nil
}
