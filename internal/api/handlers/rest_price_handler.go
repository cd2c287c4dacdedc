package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Alexjoshwa/agri-1.0/internal/services"
)

// RestPriceHandler serves the read-only price board.
type RestPriceHandler struct {
	priceService services.IPriceService
}

func NewRestPriceHandler(priceService services.IPriceService) *RestPriceHandler {
	return &RestPriceHandler{priceService: priceService}
}

// GetPrices handles GET /v1/prices?market=
func (h *RestPriceHandler) GetPrices(c *gin.Context) {
	ctx := c.Request.Context()
	market := c.DefaultQuery("market", services.MarketAll)
	c.JSON(http.StatusOK, gin.H{
		"data":    h.priceService.List(ctx, market),
		"markets": h.priceService.Markets(ctx),
	})
}
