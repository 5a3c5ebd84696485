package handlers

import (
	"errors"
	"net/http"

	"comic-auction/internal/models"
	"comic-auction/internal/repository"
	"comic-auction/internal/services"

	"github.com/gin-gonic/gin"
)

type IngestHandler struct {
	ingest  *services.IngestService
	limiter *services.RateLimiter
}

func NewIngestHandler(ingest *services.IngestService, limiter *services.RateLimiter) *IngestHandler {
	return &IngestHandler{ingest: ingest, limiter: limiter}
}

// IngestBid accepts one external bid event and runs it through the
// validation pipeline. Rejected bids are a successful request: the
// classification comes back in the body, not in the status code.
func (h *IngestHandler) IngestBid(c *gin.Context) {
	var req models.IngestBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.limiter.Acquire(c.Request.Context(), req.SourceCode, "ingest"); err != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit wait interrupted"})
		return
	}

	resp, err := h.ingest.IngestExternalBid(c.Request.Context(), &req)
	if err != nil {
		status, message := mapServiceError(err, "Failed to ingest bid")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}

// mapServiceError translates repository sentinels into HTTP statuses.
func mapServiceError(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, fallback
	}
}
