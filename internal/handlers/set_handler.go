package handlers

import (
	"net/http"

	"comic-auction/internal/models"
	"comic-auction/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SetHandler struct {
	sets              *services.SetService
	defaultAntiSniper int
}

func NewSetHandler(sets *services.SetService, defaultAntiSniper int) *SetHandler {
	return &SetHandler{sets: sets, defaultAntiSniper: defaultAntiSniper}
}

// CreateSet creates a new draft auction set (admin only)
func (h *SetHandler) CreateSet(c *gin.Context) {
	var req models.CreateSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	set, err := h.sets.CreateSet(c.Request.Context(), &req, h.defaultAntiSniper)
	if err != nil {
		status, message := mapServiceError(err, "Failed to create set")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    set,
	})
}

// StartSet publishes a draft set and activates its auctions (admin only)
func (h *SetHandler) StartSet(c *gin.Context) {
	setID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid set id"})
		return
	}

	set, err := h.sets.Start(c.Request.Context(), setID)
	if err != nil {
		status, message := mapServiceError(err, "Failed to start set")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    set,
	})
}

// TryCloseSet runs one close attempt over the set's auctions (admin
// only). Responds whether the set fully closed; auctions that are not
// due yet stay open.
func (h *SetHandler) TryCloseSet(c *gin.Context) {
	setID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid set id"})
		return
	}

	closed, err := h.sets.TryClose(c.Request.Context(), setID)
	if err != nil {
		status, message := mapServiceError(err, "Failed to close set")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"closed":  closed,
	})
}

// DeleteSet removes an unstarted set and its auctions (admin only)
func (h *SetHandler) DeleteSet(c *gin.Context) {
	setID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid set id"})
		return
	}

	if err := h.sets.Delete(c.Request.Context(), setID); err != nil {
		status, message := mapServiceError(err, "Failed to delete set")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
