package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/articlecrawl/internal/crawl"
	"github.com/hyperifyio/articlecrawl/internal/crawlerr"
)

// MissingURLMessage is returned when the url query parameter is absent.
const MissingURLMessage = "URL 파라미터가 필요합니다."

// Crawler is the pipeline behind the crawl endpoint. *crawl.Service
// implements it.
type Crawler interface {
	Crawl(ctx context.Context, raw string) (crawl.Response, error)
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CrawlHandler serves GET /api/crawler?url=...
type CrawlHandler struct {
	crawler Crawler
	mapping ErrorMapping
}

// NewCrawlHandler creates a crawl handler.
func NewCrawlHandler(c Crawler, mapping ErrorMapping) *CrawlHandler {
	return &CrawlHandler{crawler: c, mapping: mapping}
}

// Handle validates the query and runs one crawl.
func (h *CrawlHandler) Handle(c echo.Context) error {
	raw := c.QueryParam("url")
	if strings.TrimSpace(raw) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: MissingURLMessage})
	}

	ctx := c.Request().Context()
	resp, err := h.crawler.Crawl(ctx, raw)
	if err != nil {
		ce := crawlerr.From(err)
		status := h.mapping.Status(ce.Kind)
		zerolog.Ctx(ctx).Debug().Int("status", status).Str("kind", ce.Kind.String()).Msg("mapped crawl error")
		return c.JSON(status, ErrorResponse{Error: ce.Error(), Code: ce.Kind.String()})
	}
	return c.JSON(http.StatusOK, resp)
}

// HealthHandler serves GET /health.
type HealthHandler struct{}

// Handle reports liveness.
func (HealthHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
