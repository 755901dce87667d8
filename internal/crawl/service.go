// Package crawl runs the normalize, fetch, extract and assemble stages for a
// single URL. A Service holds no per-request state and is safe for
// concurrent use.
package crawl

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/articlecrawl/internal/crawlerr"
	"github.com/hyperifyio/articlecrawl/internal/extract"
	"github.com/hyperifyio/articlecrawl/internal/fetch"
	"github.com/hyperifyio/articlecrawl/internal/metrics"
	"github.com/hyperifyio/articlecrawl/internal/normalize"
)

// Stage names a step of a crawl, used in logs.
type Stage string

const (
	StageNormalizing Stage = "normalizing"
	StageFetching    Stage = "fetching"
	StageExtracting  Stage = "extracting"
	StageAssembling  Stage = "assembling"
)

// Fetcher retrieves a document for a normalized URL. *fetch.Client
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target normalize.URL) (fetch.Document, error)
}

// Service crawls one URL per call.
type Service struct {
	fetcher   Fetcher
	extractor extract.Extractor
	normalize normalize.Options
}

// NewService wires a Service. A nil extractor selects the heuristic
// extractor with default settings.
func NewService(f Fetcher, x extract.Extractor, opts normalize.Options) *Service {
	if x == nil {
		x = extract.HeuristicExtractor{}
	}
	return &Service{fetcher: f, extractor: x, normalize: opts}
}

// Crawl returns the article at raw, or a *crawlerr.Error describing the
// first failing stage.
func (s *Service) Crawl(ctx context.Context, raw string) (Response, error) {
	start := time.Now()
	resp, stage, err := s.run(ctx, raw)

	logger := zerolog.Ctx(ctx)
	elapsed := time.Since(start)
	if err != nil {
		ce := crawlerr.From(err)
		metrics.RecordCrawl(ce.Kind.String(), elapsed.Seconds())
		logger.Warn().
			Str("stage", string(stage)).
			Str("kind", ce.Kind.String()).
			Dur("elapsed", elapsed).
			Err(ce).
			Msg("crawl failed")
		return Response{}, ce
	}
	metrics.RecordCrawl(metrics.OutcomeSuccess, elapsed.Seconds())
	logger.Info().
		Str("url", resp.SourceURL).
		Int("words", resp.WordCount).
		Dur("elapsed", elapsed).
		Msg("crawl completed")
	return resp, nil
}

func (s *Service) run(ctx context.Context, raw string) (Response, Stage, error) {
	logger := zerolog.Ctx(ctx)

	logger.Debug().Str("stage", string(StageNormalizing)).Str("raw", raw).Msg("stage")
	target, err := normalize.Normalize(raw, s.normalize)
	if err != nil {
		return Response{}, StageNormalizing, err
	}

	logger.Debug().Str("stage", string(StageFetching)).Str("host", target.Host()).Str("url", target.String()).Msg("stage")
	doc, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		return Response{}, StageFetching, err
	}
	metrics.RecordFetch(len(doc.Body))

	logger.Debug().
		Str("stage", string(StageExtracting)).
		Str("final_url", doc.FinalURL).
		Str("content_type", doc.ContentType).
		Int("bytes", len(doc.Body)).
		Msg("stage")
	art, err := s.extractor.Extract(doc)
	if err != nil {
		return Response{}, StageExtracting, err
	}
	metrics.RecordExtraction(utf8.RuneCountInString(art.Text))

	logger.Debug().Str("stage", string(StageAssembling)).Str("title", art.Title).Msg("stage")
	return Assemble(target, doc, art), StageAssembling, nil
}
