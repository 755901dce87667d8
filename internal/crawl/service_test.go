package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/articlecrawl/internal/crawlerr"
	"github.com/hyperifyio/articlecrawl/internal/extract"
	"github.com/hyperifyio/articlecrawl/internal/fetch"
	"github.com/hyperifyio/articlecrawl/internal/normalize"
)

const articleHTML = `<html><head><title>Sample Article | Example</title></head>
<body><nav>Home About</nav><article><h1>Sample Article</h1>
<p>This is the first paragraph of the sample article, with enough words to count.</p>
<p>The second paragraph adds a little more detail, some commas, and a conclusion.</p>
</article><footer>Footer</footer></body></html>`

type stubFetcher struct {
	doc   fetch.Document
	err   error
	calls int
	got   normalize.URL
}

func (s *stubFetcher) Fetch(_ context.Context, target normalize.URL) (fetch.Document, error) {
	s.calls++
	s.got = target
	return s.doc, s.err
}

func TestCrawl_EndToEndDoubleEncoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/article" || r.URL.Query().Get("id") != "1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	cfg := fetch.DefaultConfig()
	cfg.AllowPrivateHosts = true
	svc := NewService(fetch.New(cfg, srv.Client()), nil, normalize.Options{AllowPrivateHosts: true})

	target := srv.URL + "/article?id=1"
	raw := url.QueryEscape(url.QueryEscape(target))
	resp, err := svc.Crawl(context.Background(), raw)
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if resp.SourceURL != target {
		t.Fatalf("SourceURL=%q, want %q", resp.SourceURL, target)
	}
	if resp.FinalURL != "" {
		t.Fatalf("FinalURL should be omitted without redirects, got %q", resp.FinalURL)
	}
	if resp.Title != "Sample Article" {
		t.Fatalf("Title=%q", resp.Title)
	}
	if !strings.HasPrefix(resp.Text, "Sample Article\nThis is the first paragraph") {
		t.Fatalf("Text=%q", resp.Text)
	}
	if strings.Contains(resp.Text, "Footer") || strings.Contains(resp.Text, "Home About") {
		t.Fatalf("boilerplate leaked: %q", resp.Text)
	}
	if resp.WordCount != len(strings.Fields(resp.Text)) {
		t.Fatalf("WordCount=%d", resp.WordCount)
	}
}

func TestCrawl_QueryWithSpaceReachesUpstream(t *testing.T) {
	var sawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawQuery = r.URL.RawQuery
		if r.URL.Query().Get("q") != "a b" || r.URL.Query().Get("lang") != "ko" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	cfg := fetch.DefaultConfig()
	cfg.AllowPrivateHosts = true
	svc := NewService(fetch.New(cfg, srv.Client()), nil, normalize.Options{AllowPrivateHosts: true})

	// encodeURIComponent applied twice, as browsers build the parameter.
	component := func(s string) string { return strings.ReplaceAll(url.QueryEscape(s), "+", "%20") }
	raw := component(component(srv.URL + "/search?q=a b&lang=ko"))

	var logs bytes.Buffer
	ctx := zerolog.New(&logs).Level(zerolog.DebugLevel).WithContext(context.Background())
	resp, err := svc.Crawl(ctx, raw)
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if sawQuery != "q=a%20b&lang=ko" {
		t.Fatalf("upstream saw query %q", sawQuery)
	}
	if want := srv.URL + "/search?q=a%20b&lang=ko"; resp.SourceURL != want {
		t.Fatalf("SourceURL=%q, want %q", resp.SourceURL, want)
	}
	if resp.Title != "Sample Article" {
		t.Fatalf("Title=%q", resp.Title)
	}
	if !strings.Contains(logs.String(), `"host":"127.0.0.1"`) {
		t.Fatalf("fetch stage log should carry the host: %s", logs.String())
	}
}

func TestCrawl_InvalidURLSkipsFetch(t *testing.T) {
	f := &stubFetcher{}
	svc := NewService(f, nil, normalize.Options{})
	for _, raw := range []string{"", "   ", "not a url", "ftp://example.com/file", "%E0%A4%A"} {
		_, err := svc.Crawl(context.Background(), raw)
		if crawlerr.KindOf(err) != crawlerr.InvalidURL {
			t.Fatalf("Crawl(%q) err=%v, want InvalidURL", raw, err)
		}
	}
	if f.calls != 0 {
		t.Fatalf("fetcher called %d times for invalid input", f.calls)
	}
}

func TestCrawl_PropagatesFetchErrorKind(t *testing.T) {
	cases := []*crawlerr.Error{
		crawlerr.Status(404),
		crawlerr.New(crawlerr.Timeout, "request timed out"),
		crawlerr.New(crawlerr.UnsupportedContentType, "unsupported content type: image/png"),
	}
	for _, want := range cases {
		f := &stubFetcher{err: want}
		svc := NewService(f, nil, normalize.Options{})
		_, err := svc.Crawl(context.Background(), "https://example.com/a")
		var ce *crawlerr.Error
		if !errors.As(err, &ce) || ce != want {
			t.Fatalf("err=%v, want %v", err, want)
		}
		if f.got.String() != "https://example.com/a" {
			t.Fatalf("fetcher got %q", f.got.String())
		}
	}
}

func TestCrawl_ForeignErrorBecomesUnknown(t *testing.T) {
	svc := NewService(&stubFetcher{err: errors.New("boom")}, nil, normalize.Options{})
	_, err := svc.Crawl(context.Background(), "https://example.com/a")
	if crawlerr.KindOf(err) != crawlerr.Unknown {
		t.Fatalf("err=%v, want Unknown", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestCrawl_ShortContentFailsExtraction(t *testing.T) {
	f := &stubFetcher{doc: fetch.Document{
		FinalURL:    "https://example.com/a",
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte("<html><body><p>Hi.</p></body></html>"),
	}}
	svc := NewService(f, extract.HeuristicExtractor{MinTextChars: 50}, normalize.Options{})
	_, err := svc.Crawl(context.Background(), "https://example.com/a")
	if crawlerr.KindOf(err) != crawlerr.ExtractionFailed {
		t.Fatalf("err=%v, want ExtractionFailed", err)
	}
}

func TestAssemble_MapsFields(t *testing.T) {
	target, err := normalize.Normalize("https://example.com/a", normalize.Options{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	published := time.Date(2024, 3, 5, 0, 30, 0, 0, time.UTC)
	art := extract.Article{
		Title:       "T",
		Text:        "one two\nthree",
		Author:      "Kim",
		PublishedAt: &published,
	}

	resp := Assemble(target, fetch.Document{FinalURL: "https://example.com/b"}, art)
	if resp.FinalURL != "https://example.com/b" {
		t.Fatalf("FinalURL=%q", resp.FinalURL)
	}
	if resp.WordCount != 3 {
		t.Fatalf("WordCount=%d, want 3", resp.WordCount)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"title", "text", "sourceUrl", "finalUrl", "author", "publishedAt", "wordCount"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("missing key %q in %s", key, b)
		}
	}
	for _, key := range []string{"description", "siteName", "language", "imageUrl", "canonicalUrl"} {
		if _, ok := m[key]; ok {
			t.Fatalf("empty key %q should be omitted in %s", key, b)
		}
	}
	if m["publishedAt"] != "2024-03-05T00:30:00Z" {
		t.Fatalf("publishedAt=%v", m["publishedAt"])
	}
}
