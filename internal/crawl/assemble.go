package crawl

import (
	"strings"
	"time"

	"github.com/hyperifyio/articlecrawl/internal/extract"
	"github.com/hyperifyio/articlecrawl/internal/fetch"
	"github.com/hyperifyio/articlecrawl/internal/normalize"
)

// Response is the JSON body returned for a successful crawl.
type Response struct {
	Title        string     `json:"title"`
	Text         string     `json:"text"`
	SourceURL    string     `json:"sourceUrl"`
	FinalURL     string     `json:"finalUrl,omitempty"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Description  string     `json:"description,omitempty"`
	SiteName     string     `json:"siteName,omitempty"`
	Language     string     `json:"language,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	CanonicalURL string     `json:"canonicalUrl,omitempty"`
	WordCount    int        `json:"wordCount"`
}

// Assemble maps the pipeline outputs into a Response. SourceURL is always
// the normalized request URL; FinalURL is set only when redirects moved it.
func Assemble(target normalize.URL, doc fetch.Document, art extract.Article) Response {
	resp := Response{
		Title:        art.Title,
		Text:         art.Text,
		SourceURL:    target.String(),
		Author:       art.Author,
		PublishedAt:  art.PublishedAt,
		Description:  art.Description,
		SiteName:     art.SiteName,
		Language:     art.Language,
		ImageURL:     art.ImageURL,
		CanonicalURL: art.CanonicalURL,
		WordCount:    len(strings.Fields(art.Text)),
	}
	if doc.FinalURL != "" && doc.FinalURL != resp.SourceURL {
		resp.FinalURL = doc.FinalURL
	}
	return resp
}
