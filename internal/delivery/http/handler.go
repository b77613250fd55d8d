package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/listingmatch/backend/internal/domain"
	"github.com/listingmatch/backend/internal/infrastructure/jsonl"
	"github.com/listingmatch/backend/internal/observability"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// MaxBatchSize caps the number of listings accepted by one batch request
const MaxBatchSize = 10000

// maxBodyBytes caps request bodies
const maxBodyBytes = 32 << 20

// ListingClassifier is the usecase the handlers delegate to
type ListingClassifier interface {
	ClassifyListing(ctx context.Context, listing domain.Listing) (domain.Classification, error)
	MatchBatch(ctx context.Context, listings []domain.Listing) (*domain.MatchResult, *domain.RunReport, error)
	ProductCount() int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	classifier ListingClassifier
	logger     zerolog.Logger
}

// NewHandler creates a new HTTP handler. classifier may be nil, in which case
// the matching endpoints answer 501.
func NewHandler(classifier ListingClassifier, logger zerolog.Logger) *Handler {
	return &Handler{classifier: classifier, logger: logger}
}

// MatchResponse is the body returned for a single listing
type MatchResponse struct {
	Matched      bool   `json:"matched"`
	Stage        string `json:"stage"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
}

// BatchGroup is one product with the listings assigned to it
type BatchGroup struct {
	ProductName string            `json:"product_name"`
	Listings    []json.RawMessage `json:"listings"`
}

// BatchResponse is the body returned for a batch match
type BatchResponse struct {
	RunID      string       `json:"run_id"`
	Listings   int          `json:"listings"`
	Assigned   int          `json:"assigned"`
	Unmatched  int          `json:"unmatched"`
	Failed     int          `json:"failed"`
	DurationMs int64        `json:"duration_ms"`
	Results    []BatchGroup `json:"results"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	products := 0
	if h.classifier != nil {
		products = h.classifier.ProductCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "listingmatch",
		"version":  Version,
		"products": products,
	})
}

// MatchListing classifies one listing posted as a JSON object
func (h *Handler) MatchListing(c *gin.Context) {
	if h.classifier == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "listing matching is not configured"})
		return
	}

	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	listing, err := jsonl.DecodeListing(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.classifier.ClassifyListing(c.Request.Context(), listing)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		Matched:      result.Matched(),
		Stage:        result.Stage.String(),
		Manufacturer: result.Manufacturer,
		ProductName:  result.ProductName,
	})
}

// MatchBatch matches a JSON array of listings and returns the non-empty
// product groups in catalog order
func (h *Handler) MatchBatch(c *gin.Context) {
	if h.classifier == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "listing matching is not configured"})
		return
	}

	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON array of listings"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one listing is required"})
		return
	}
	if len(items) > MaxBatchSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many listings in one batch"})
		return
	}

	listings := make([]domain.Listing, 0, len(items))
	for i, item := range items {
		listing, err := jsonl.DecodeListing(item)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "index": i})
			return
		}
		listings = append(listings, listing)
	}

	result, report, err := h.classifier.MatchBatch(c.Request.Context(), listings)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := BatchResponse{
		RunID:      report.RunID,
		Listings:   report.Listings,
		Assigned:   report.Assigned,
		Unmatched:  report.Unmatched,
		Failed:     report.Failed,
		DurationMs: report.Duration.Milliseconds(),
		Results:    []BatchGroup{},
	}
	for _, group := range result.Groups() {
		matched := group.Listings()
		if len(matched) == 0 {
			continue
		}
		payloads := make([]json.RawMessage, len(matched))
		for i, listing := range matched {
			payloads[i] = listing.Payload()
		}
		response.Results = append(response.Results, BatchGroup{
			ProductName: group.Product.Name,
			Listings:    payloads,
		})
	}

	c.JSON(http.StatusOK, response)
}

// respondError maps usecase errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	logger := observability.FromContext(c.Request.Context(), h.logger)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Msg("request cancelled")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
	default:
		logger.Error().Err(err).Msg("classification failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed"})
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
}
