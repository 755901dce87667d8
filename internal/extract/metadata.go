package extract

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// strictPolicy strips every tag; bluemonday policies are safe for concurrent
// use once built.
var strictPolicy = bluemonday.StrictPolicy()

type metadata struct {
	ogTitle     string
	author      string
	description string
	siteName    string
	language    string
	image       string
	canonical   string
	published   *time.Time
}

// readMetadata collects page-level metadata from head tags and common
// microdata. It must run before noise stripping removes bylines.
func readMetadata(root *html.Node, base *url.URL) metadata {
	doc := goquery.NewDocumentFromNode(root)

	var m metadata
	m.ogTitle = metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`)
	m.author = metaContent(doc, `meta[name="author"]`, `meta[property="article:author"]`, `meta[name="byl"]`, `meta[name="dc.creator"]`)
	if m.author == "" {
		m.author = clean(doc.Find(`[itemprop="author"], [rel="author"], .byline, .author`).First().Text())
	}
	m.description = metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`, `meta[name="twitter:description"]`)
	m.siteName = metaContent(doc, `meta[property="og:site_name"]`, `meta[name="application-name"]`)

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		m.language = clean(lang)
	}
	if m.language == "" {
		m.language = metaContent(doc, `meta[http-equiv="content-language"]`, `meta[property="og:locale"]`)
	}

	m.image = resolve(base, metaContent(doc, `meta[property="og:image"]`, `meta[name="twitter:image"]`))
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		m.canonical = resolve(base, clean(href))
	}
	if m.canonical == "" {
		m.canonical = resolve(base, metaContent(doc, `meta[property="og:url"]`))
	}

	raw := metaContent(doc,
		`meta[property="article:published_time"]`,
		`meta[name="pubdate"]`,
		`meta[name="publishdate"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
	)
	if raw == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			raw = clean(dt)
		}
	}
	if raw != "" {
		if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			t = t.UTC()
			m.published = &t
		}
	}
	return m
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if s := clean(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// clean strips markup smuggled into attribute values and collapses
// whitespace.
func clean(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.TrimSpace(collapseSpaces(s))
}

// resolve makes ref absolute against base and keeps only http(s) results.
func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}
