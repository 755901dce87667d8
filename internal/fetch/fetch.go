package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hyperifyio/articlecrawl/internal/crawlerr"
	"github.com/hyperifyio/articlecrawl/internal/normalize"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 5_000_000
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "articlecrawl/1.0 (+https://github.com/hyperifyio/articlecrawl)"

	acceptHeader         = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1"
	acceptLanguageHeader = "ko,en;q=0.8,*;q=0.5"
	sniffLen             = 512
)

var (
	// ErrBodyTooLarge is the cause of a FetchFailed error when the response
	// exceeds MaxBodyBytes.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
	// ErrTooManyRedirects is the cause of a FetchFailed error with
	// RedirectLoop set.
	ErrTooManyRedirects = errors.New("too many redirects")

	errRedirectScheme  = errors.New("redirect to unsupported scheme")
	errRedirectPrivate = errors.New("redirect to private host")
)

// Document is a fetched response body plus the metadata the extractor needs.
type Document struct {
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Config bounds a single fetch. Zero fields take the package defaults, so
// the zero value follows redirects and enforces DefaultTimeout.
type Config struct {
	Timeout          time.Duration
	MaxBodyBytes     int64
	UserAgent        string
	DisableRedirects bool
	MaxRedirects     int
	// MaxConcurrent limits in-flight fetches per client. Zero means unlimited.
	MaxConcurrent     int
	AllowPrivateHosts bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
		UserAgent:    DefaultUserAgent,
		MaxRedirects: DefaultMaxRedirects,
	}
}

// Client performs exactly one bounded GET per call. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	cfg  Config
	base *http.Client
	sem  *semaphore.Weighted
}

// New returns a Client. A nil httpClient gets a pooled client from
// NewHTTPClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.AllowPrivateHosts)
	}
	c := &Client{cfg: cfg, base: httpClient}
	if cfg.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

func (c *Client) getHTTPClient() *http.Client {
	// Copy to attach our redirect policy without mutating the shared client;
	// the transport and its connection pool stay shared.
	hc := *c.base
	hc.CheckRedirect = c.checkRedirect
	return &hc
}

// Fetch issues a GET for target and returns the body when the response is a
// 2xx HTML document within the size limit.
func (c *Client) Fetch(ctx context.Context, target normalize.URL) (Document, error) {
	if target.Parsed == nil {
		return Document{}, crawlerr.New(crawlerr.InvalidURL, "empty url")
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return Document{}, c.classify(err)
		}
		defer c.sem.Release(1)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Document{}, crawlerr.Wrap(crawlerr.InvalidURL, "new request", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return Document{}, c.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, crawlerr.Status(resp.StatusCode)
	}

	var body io.Reader = resp.Body
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(resp.Body, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return Document{}, c.classify(err)
		}
		contentType = http.DetectContentType(head[:n])
		body = io.MultiReader(bytes.NewReader(head[:n]), resp.Body)
	}
	if !IsAllowedContentType(contentType) {
		return Document{}, crawlerr.New(crawlerr.UnsupportedContentType, "unsupported content type: "+contentType)
	}
	if resp.ContentLength > c.cfg.MaxBodyBytes {
		return Document{}, c.tooLarge()
	}

	b, err := readLimited(body, c.cfg.MaxBodyBytes)
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			return Document{}, c.tooLarge()
		}
		return Document{}, c.classify(err)
	}
	return Document{
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        b,
	}, nil
}

func (c *Client) tooLarge() error {
	return crawlerr.Wrap(crawlerr.FetchFailed, fmt.Sprintf("response larger than %d bytes", c.cfg.MaxBodyBytes), ErrBodyTooLarge)
}

// readLimited reads at most limit bytes and fails instead of truncating.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}

// classify maps transport errors onto crawl error kinds.
func (c *Client) classify(err error) error {
	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return &crawlerr.Error{Kind: crawlerr.FetchFailed, RedirectLoop: true, Msg: fmt.Sprintf("stopped after %d redirects", c.cfg.MaxRedirects), Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return crawlerr.Wrap(crawlerr.Timeout, fmt.Sprintf("request timed out after %s", c.cfg.Timeout), err)
	case errors.Is(err, context.Canceled):
		return crawlerr.Wrap(crawlerr.FetchFailed, "request canceled", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return crawlerr.Wrap(crawlerr.Timeout, fmt.Sprintf("request timed out after %s", c.cfg.Timeout), err)
	}
	return crawlerr.Wrap(crawlerr.FetchFailed, "fetch failed", err)
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if c.cfg.DisableRedirects {
		return http.ErrUseLastResponse
	}
	if len(via) > c.cfg.MaxRedirects {
		return ErrTooManyRedirects
	}
	if req.URL == nil || !normalize.IsHTTPScheme(req.URL) {
		return errRedirectScheme
	}
	if !c.cfg.AllowPrivateHosts && normalize.IsLocalOrPrivateHost(req.URL.Hostname()) {
		return errRedirectPrivate
	}
	return nil
}

// IsAllowedContentType accepts text/html and application/xhtml+xml variants.
func IsAllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
