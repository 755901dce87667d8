package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperifyio/articlecrawl/internal/crawlerr"
)

// ErrorMapping selects how crawl failures translate to HTTP status codes.
type ErrorMapping string

const (
	// MappingFlat answers every crawl failure with 500.
	MappingFlat ErrorMapping = "flat"
	// MappingTyped answers with a status derived from the failure kind.
	MappingTyped ErrorMapping = "typed"
)

// ParseErrorMapping accepts "flat" or "typed", case-insensitively. Empty
// selects MappingFlat.
func ParseErrorMapping(s string) (ErrorMapping, error) {
	switch m := ErrorMapping(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MappingFlat, nil
	case MappingFlat, MappingTyped:
		return m, nil
	default:
		return "", fmt.Errorf("unknown error mapping %q (want flat or typed)", s)
	}
}

// Status returns the HTTP status for a failure of the given kind.
func (m ErrorMapping) Status(kind crawlerr.Kind) int {
	if m != MappingTyped {
		return http.StatusInternalServerError
	}
	switch kind {
	case crawlerr.InvalidURL:
		return http.StatusBadRequest
	case crawlerr.UnsupportedContentType:
		return http.StatusUnsupportedMediaType
	case crawlerr.ExtractionFailed:
		return http.StatusUnprocessableEntity
	case crawlerr.FetchFailed:
		return http.StatusBadGateway
	case crawlerr.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
