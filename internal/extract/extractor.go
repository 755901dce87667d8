package extract

import "github.com/hyperifyio/articlecrawl/internal/fetch"

// Extractor defines a minimal interface for content extraction strategies.
// Implementations can swap readability tactics without changing callers.
type Extractor interface {
	// Extract converts a fetched document into an Article or fails with an
	// ExtractionFailed crawl error. Implementations must be deterministic
	// and side-effect free.
	Extract(doc fetch.Document) (Article, error)
}

// HeuristicExtractor ranks content regions by paragraph density after
// removing boilerplate.
type HeuristicExtractor struct {
	// MinTextChars is the shortest acceptable text in runes. Zero means
	// DefaultMinTextChars.
	MinTextChars int
}

func (h HeuristicExtractor) Extract(doc fetch.Document) (Article, error) {
	return FromDocument(doc, h.MinTextChars)
}
