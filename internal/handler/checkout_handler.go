package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	cartService     service.CartService
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(cartService service.CartService, checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{cartService: cartService, checkoutService: checkoutService}
}

func (h *CheckoutHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/carts/:id/validate", h.ValidateCart)
		api.POST("/carts/:id/checkout", middleware.OptionalAuth(), h.Checkout)
	}
}

// ValidateCart checks a cart against catalog availability and current stock
// @Summary      Validate cart
// @Description  Checks every cart line and returns all problems at once, plus the repriced subtotal
// @Tags         checkout
// @Produce      json
// @Param        id   path      string  true  "Cart ID"
// @Success      200  {object}  response.Response{data=service.CartValidationResult}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/carts/{id}/validate [post]
func (h *CheckoutHandler) ValidateCart(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid cart ID"))
		return
	}

	result, err := h.cartService.Validate(c.Request.Context(), cartID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Checkout turns a validated cart into an order
// @Summary      Checkout
// @Description  Creates the order, reserves inventory and clears the cart in one transaction, then initiates payment
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Cart ID"
// @Param        payload  body      service.CheckoutRequest  true  "Checkout Payload"
// @Success      201      {object}  response.Response{data=service.CheckoutResult}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/carts/{id}/checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid cart ID"))
		return
	}

	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	// Guest checkout: userID stays nil without a valid token
	if raw := c.GetString("userID"); raw != "" {
		if parsed, err := uuid.Parse(raw); err == nil {
			req.UserID = &parsed
		}
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), cartID, req)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}
