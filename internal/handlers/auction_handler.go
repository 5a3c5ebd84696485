package handlers

import (
	"net/http"

	"comic-auction/internal/models"
	"comic-auction/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuctionHandler struct {
	auctions *services.AuctionService
}

func NewAuctionHandler(auctions *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctions: auctions}
}

// CreateAuction creates a new auction inside a draft set (admin only)
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	var req models.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auction, err := h.auctions.CreateAuction(c.Request.Context(), &req)
	if err != nil {
		status, message := mapServiceError(err, "Failed to create auction")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    auction,
	})
}

// GetAuction returns an auction with its current winning bid
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	resp, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		status, message := mapServiceError(err, "Failed to fetch auction")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}

// CloseAuction force-closes a single auction regardless of its deadline
// (admin only)
func (h *AuctionHandler) CloseAuction(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	attempt, err := h.auctions.Close(c.Request.Context(), auctionID, true)
	if err != nil {
		status, message := mapServiceError(err, "Failed to close auction")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    attempt,
	})
}
