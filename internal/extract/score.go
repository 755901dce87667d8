package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	minParagraphRunes = 25
	classWeight       = 25
	siblingMinScore   = 10
	siblingRatio      = 0.2
)

// noiseTags never hold article text.
var noiseTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true, "aside": true,
	"form": true, "iframe": true, "svg": true, "template": true, "button": true,
	"select": true, "object": true, "embed": true, "input": true, "textarea": true,
	"canvas": true, "dialog": true,
}

// pageChromeTags are dropped only outside article/main, where they usually
// hold the site banner or footer rather than an article byline.
var pageChromeTags = map[string]bool{"header": true, "footer": true}

// protectedTags are never dropped on class or id hints alone.
var protectedTags = map[string]bool{"html": true, "body": true, "main": true, "article": true}

var noiseRoles = map[string]bool{
	"navigation": true, "banner": true, "contentinfo": true, "complementary": true,
	"dialog": true, "alertdialog": true, "menu": true, "menubar": true, "search": true,
}

var negativeTokens = map[string]bool{
	"ad": true, "ads": true, "adsbygoogle": true, "advert": true, "advertisement": true,
	"banner": true, "breadcrumb": true, "breadcrumbs": true, "comment": true,
	"comments": true, "cookie": true, "cookies": true, "consent": true, "disqus": true,
	"footer": true, "gdpr": true, "masthead": true, "menu": true, "modal": true,
	"nav": true, "navbar": true, "newsletter": true, "outbrain": true, "pagination": true,
	"popup": true, "promo": true, "related": true, "share": true, "sharing": true,
	"sidebar": true, "social": true, "sponsor": true, "sponsored": true,
	"subscribe": true, "taboola": true, "tags": true, "toolbar": true, "widget": true,
}

var positiveTokens = map[string]bool{
	"article": true, "body": true, "content": true, "entry": true, "hentry": true,
	"main": true, "page": true, "post": true, "story": true, "text": true,
	"blog": true, "news": true, "column": true,
}

// paragraphTags contribute score to their ancestors.
var paragraphTags = map[string]bool{"p": true, "pre": true, "blockquote": true, "td": true, "li": true}

// stripNoise removes comments, boilerplate elements and hidden elements
// from the tree in place.
func stripNoise(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && isNoise(c)) {
			n.RemoveChild(c)
		} else {
			stripNoise(c)
		}
		c = next
	}
}

func isNoise(n *html.Node) bool {
	name := strings.ToLower(n.Data)
	if noiseTags[name] {
		return true
	}
	if pageChromeTags[name] && !hasAncestor(n, "article", "main") {
		return true
	}
	if hasAttr(n, "hidden") {
		return true
	}
	if strings.EqualFold(attr(n, "aria-hidden"), "true") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(attr(n, "style"), " ", ""))
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	if noiseRoles[strings.ToLower(attr(n, "role"))] {
		return true
	}
	if protectedTags[name] {
		return false
	}
	return isBoilerplateContainer(n)
}

// isBoilerplateContainer returns true when the element's id or class names
// boilerplate and nothing in them suggests article content.
func isBoilerplateContainer(n *html.Node) bool {
	pos, neg := hintTokens(n)
	if pos > 0 {
		return false
	}
	if neg > 0 {
		return true
	}
	// Consent banners often use compound names like "cookieBar".
	for _, key := range []string{"id", "class", "aria-label"} {
		val := strings.ToLower(attr(n, key))
		if containsAny(val, []string{"cookie", "consent", "gdpr"}) {
			return true
		}
	}
	return false
}

// hintTokens counts positive and negative words in id and class.
func hintTokens(n *html.Node) (pos, neg int) {
	for _, key := range []string{"id", "class"} {
		for _, tok := range tokenize(attr(n, key)) {
			if positiveTokens[tok] {
				pos++
			}
			if negativeTokens[tok] {
				neg++
			}
		}
	}
	return pos, neg
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// rankContent scores every container by the paragraph text it holds and
// returns the best one together with qualifying siblings, in document order.
// Without any scorable paragraph it falls back to main, article or body.
func rankContent(root *html.Node) ([]*html.Node, *html.Node) {
	scores := make(map[*html.Node]float64)
	var candidates []*html.Node

	initCandidate := func(n *html.Node) {
		if n == nil || n.Type != html.ElementNode {
			return
		}
		if _, ok := scores[n]; ok {
			return
		}
		scores[n] = initialScore(n)
		candidates = append(candidates, n)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isParagraphLike(n) {
			text := collapseSpaces(strings.TrimSpace(textContent(n)))
			if length := utf8.RuneCountInString(text); length >= minParagraphRunes {
				parent := n.Parent
				initCandidate(parent)
				var grand *html.Node
				if parent != nil {
					grand = parent.Parent
					initCandidate(grand)
				}
				s := contentScore(text, length)
				if parent != nil {
					scores[parent] += s
				}
				if grand != nil && grand.Type == html.ElementNode {
					scores[grand] += s / 2
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var best *html.Node
	bestScore := 0.0
	for _, c := range candidates {
		scores[c] *= 1 - linkDensity(c)
		if best == nil || scores[c] > bestScore {
			best, bestScore = c, scores[c]
		}
	}

	if best == nil || bestScore <= 0 {
		for _, tag := range []string{"main", "article", "body"} {
			if n := findFirst(root, tag); n != nil {
				return []*html.Node{n}, n
			}
		}
		return []*html.Node{root}, nil
	}
	if best.Parent == nil {
		return []*html.Node{best}, best
	}

	threshold := bestScore * siblingRatio
	if threshold < siblingMinScore {
		threshold = siblingMinScore
	}
	var region []*html.Node
	for s := best.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode {
			continue
		}
		if s == best {
			region = append(region, s)
			continue
		}
		if score, ok := scores[s]; ok && score >= threshold {
			region = append(region, s)
			continue
		}
		if strings.EqualFold(s.Data, "p") {
			text := collapseSpaces(strings.TrimSpace(textContent(s)))
			length := utf8.RuneCountInString(text)
			ld := linkDensity(s)
			if (length > 80 && ld < 0.25) || (length > 0 && ld == 0 && strings.Contains(text, ". ")) {
				region = append(region, s)
			}
		}
	}
	return region, best
}

func isParagraphLike(n *html.Node) bool {
	name := strings.ToLower(n.Data)
	if paragraphTags[name] {
		return true
	}
	// A div with only inline content acts as a paragraph on br-formatted pages.
	if name == "div" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && blockTags[strings.ToLower(c.Data)] {
				return false
			}
		}
		return true
	}
	return false
}

func contentScore(text string, length int) float64 {
	s := 1.0
	s += float64(strings.Count(text, ",") + strings.Count(text, "，") + strings.Count(text, "、"))
	bonus := float64(length / 100)
	if bonus > 3 {
		bonus = 3
	}
	return s + bonus
}

func initialScore(n *html.Node) float64 {
	var s float64
	switch strings.ToLower(n.Data) {
	case "article", "main":
		s = 10
	case "div":
		s = 5
	case "section":
		s = 3
	case "pre", "td", "blockquote":
		s = 3
	case "address", "ol", "ul", "dl", "dd", "dt", "li", "form":
		s = -3
	case "h1", "h2", "h3", "h4", "h5", "h6", "th":
		s = -5
	}
	pos, neg := hintTokens(n)
	if pos > 0 {
		s += classWeight
	}
	if neg > 0 {
		s -= classWeight
	}
	return s
}

// linkDensity is the share of n's text that sits inside links.
func linkDensity(n *html.Node) float64 {
	total := utf8.RuneCountInString(collapseSpaces(strings.TrimSpace(textContent(n))))
	if total == 0 {
		return 0
	}
	linked := 0
	for _, a := range findAll(n, "a") {
		linked += utf8.RuneCountInString(collapseSpaces(strings.TrimSpace(textContent(a))))
	}
	ld := float64(linked) / float64(total)
	if ld > 1 {
		ld = 1
	}
	return ld
}

func hasAncestor(n *html.Node, tags ...string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if strings.EqualFold(p.Data, t) {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}
