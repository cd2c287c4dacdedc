package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Alexjoshwa/agri-1.0/internal/services"
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService) *RestListingHandler {
	return &RestListingHandler{listingService: listingService}
}

// SearchListings handles GET /v1/listing/search?q=&crop=
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	query := c.Query("q")
	crop := c.DefaultQuery("crop", services.CropFilterAll)

	listings := h.listingService.SearchListings(c.Request.Context(), query, crop)
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetListingByID handles GET /v1/listing/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listing, err := h.listingService.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve listing"})
		}
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ListCrops handles GET /v1/crops
func (h *RestListingHandler) ListCrops(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.listingService.ListCrops(c.Request.Context())})
}
