package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/articlecrawl/internal/crawlerr"
	"github.com/hyperifyio/articlecrawl/internal/fetch"
)

// DefaultMinTextChars is the least amount of text, in runes, an extraction
// must yield to count as an article.
const DefaultMinTextChars = 50

// maxFallbackTitleRunes bounds a title derived from the first text line.
const maxFallbackTitleRunes = 120

// Article is the readable content extracted from a page.
type Article struct {
	Title string
	Text  string

	Author       string
	PublishedAt  *time.Time
	Description  string
	SiteName     string
	Language     string
	ImageURL     string
	CanonicalURL string
}

// FromDocument extracts the main article from a fetched document.
func FromDocument(doc fetch.Document, minTextChars int) (Article, error) {
	if minTextChars <= 0 {
		minTextChars = DefaultMinTextChars
	}
	root, err := parse(doc.Body, doc.ContentType)
	if err != nil {
		return Article{}, crawlerr.Wrap(crawlerr.ExtractionFailed, "parse html", err)
	}
	base, _ := url.Parse(doc.FinalURL)

	meta := readMetadata(root, base)
	pageTitle := collapseSpaces(strings.TrimSpace(findTitle(root)))

	stripNoise(root)
	region, best := rankContent(root)

	var b strings.Builder
	for _, n := range region {
		collectText(&b, n, false)
		b.WriteString("\n")
	}
	text := norm.NFC.String(normalizeWhitespace(b.String()))
	if n := utf8.RuneCountInString(text); n < minTextChars {
		return Article{}, crawlerr.New(crawlerr.ExtractionFailed,
			fmt.Sprintf("extracted %d characters of text, need at least %d", n, minTextChars))
	}

	if pageTitle == "" {
		pageTitle = meta.ogTitle
	}
	heading := findHeading(root, region, best)
	title := norm.NFC.String(chooseTitle(pageTitle, heading, text))

	return Article{
		Title:        title,
		Text:         text,
		Author:       meta.author,
		PublishedAt:  meta.published,
		Description:  meta.description,
		SiteName:     meta.siteName,
		Language:     meta.language,
		ImageURL:     meta.image,
		CanonicalURL: meta.canonical,
	}, nil
}

// parse transcodes input to UTF-8 using the declared or sniffed charset and
// builds the DOM.
func parse(input []byte, contentType string) (*html.Node, error) {
	r, err := charset.NewReader(bytes.NewReader(input), contentType)
	if err != nil {
		// Unknown label: parse the raw bytes and let the tokenizer cope.
		return html.Parse(bytes.NewReader(input))
	}
	return html.Parse(r)
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil {
		return ""
	}
	return textContent(t)
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			out = append(out, cur)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// findHeading picks the highest-ranked heading: the first h1 in the content
// region or around the best candidate, a lone h1 anywhere in the page, or
// the first h2 in the region.
func findHeading(root *html.Node, region []*html.Node, best *html.Node) string {
	pick := func(nodes []*html.Node, tag string) string {
		for _, n := range nodes {
			if h := findFirst(n, tag); h != nil {
				if s := collapseSpaces(strings.TrimSpace(textContent(h))); utf8.RuneCountInString(s) >= 2 {
					return s
				}
			}
		}
		return ""
	}
	if s := pick(region, "h1"); s != "" {
		return s
	}
	if best != nil && best.Parent != nil {
		if s := pick([]*html.Node{best.Parent}, "h1"); s != "" {
			return s
		}
	}
	if all := findAll(root, "h1"); len(all) == 1 {
		if s := collapseSpaces(strings.TrimSpace(textContent(all[0]))); utf8.RuneCountInString(s) >= 2 {
			return s
		}
	}
	return pick(region, "h2")
}

// chooseTitle prefers the heading when the page title merely decorates it
// (e.g. "Heading | Site") or when the heading extends the title.
func chooseTitle(pageTitle, heading, text string) string {
	switch {
	case pageTitle == "" && heading == "":
		line := text
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		return truncateRunes(line, maxFallbackTitleRunes)
	case heading == "":
		return pageTitle
	case pageTitle == "":
		return heading
	}
	lt, lh := strings.ToLower(pageTitle), strings.ToLower(heading)
	if strings.Contains(lt, lh) || strings.Contains(lh, lt) {
		return heading
	}
	return pageTitle
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true, "ul": true, "ol": true,
	"dl": true, "dt": true, "dd": true, "blockquote": true, "pre": true,
	"table": true, "tr": true, "td": true, "th": true, "figure": true,
	"figcaption": true, "address": true, "details": true, "summary": true,
	"hr": true, "caption": true,
}

// collectText writes n's text with a newline at every block boundary.
// Inside pre, source line breaks are kept as block boundaries.
func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	block := false
	if n.Type == html.ElementNode {
		name := strings.ToLower(n.Data)
		switch name {
		case "br":
			b.WriteString("\n")
			return
		case "pre":
			inPre = true
		}
		if blockTags[name] {
			block = true
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(data)
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if block {
		b.WriteString("\n")
	}
}

// normalizeWhitespace collapses runs of whitespace inside each line and
// drops blank lines so block boundaries become single newlines.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(collapseSpaces(line))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' || r == '\f' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}

// textContent concatenates all descendant text nodes.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
