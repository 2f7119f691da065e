package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"
	"storefront/pkg/pagination"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdjustStockRequest struct {
	Delta        int    `json:"delta" binding:"required"`
	MovementType string `json:"movement_type" binding:"omitempty,oneof=purchase adjustment return transfer damaged"`
	Reason       string `json:"reason" binding:"required"`
}

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory", middleware.RequireRole("admin", "staff"))
	{
		inventory.GET("", h.ListStock)
		inventory.GET("/:variantId", h.GetStock)
		inventory.GET("/:variantId/movements", h.ListMovements)
		inventory.POST("/:variantId/adjust", h.AdjustStock)
	}
}

// ListStock returns paginated stock levels
// @Summary      List stock
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int   false  "Page number (default 1)"
// @Param        limit      query     int   false  "Items per page (default 20)"
// @Param        low_stock  query     bool  false  "Only items at or under their low-stock threshold"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListStock(c *gin.Context) {
	p := pagination.Parse(c)
	lowStockOnly := c.Query("low_stock") == "true"

	items, total, err := h.inventoryService.ListStock(c.Request.Context(), p.Page, p.Limit, lowStockOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve stock: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}

// GetStock returns the stock row for one variant
// @Summary      Get stock for variant
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        variantId  path      string  true  "Variant ID"
// @Success      200        {object}  response.Response{data=model.InventoryItem}
// @Failure      404        {object}  response.Response
// @Router       /api/inventory/{variantId} [get]
func (h *InventoryHandler) GetStock(c *gin.Context) {
	variantID, err := uuid.Parse(c.Param("variantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid variant ID"))
		return
	}

	item, err := h.inventoryService.GetByVariant(c.Request.Context(), variantID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListMovements returns the append-only movement log for a variant
// @Summary      List inventory movements
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        variantId  path      string  true   "Variant ID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      404        {object}  response.Response
// @Router       /api/inventory/{variantId}/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	variantID, err := uuid.Parse(c.Param("variantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid variant ID"))
		return
	}

	p := pagination.Parse(c)
	movements, total, err := h.inventoryService.ListMovements(c.Request.Context(), variantID, p.Page, p.Limit)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	}))
}

// AdjustStock applies a staff stock correction
// @Summary      Adjust stock
// @Description  Writes a ledger movement and updates the cached counters in one transaction
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        variantId  path      string              true  "Variant ID"
// @Param        payload    body      AdjustStockRequest  true  "Adjustment Payload"
// @Success      200        {object}  response.Response{data=service.AdjustResult}
// @Failure      400        {object}  response.Response
// @Failure      409        {object}  response.Response
// @Router       /api/inventory/{variantId}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	variantID, err := uuid.Parse(c.Param("variantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid variant ID"))
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.inventoryService.Adjust(c.Request.Context(), service.AdjustRequest{
		VariantID:    variantID,
		Delta:        req.Delta,
		MovementType: req.MovementType,
		Reason:       req.Reason,
		Actor:        c.GetString("userID"),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
