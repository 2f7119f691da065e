package handler

import (
	"errors"
	"net/http"

	"storefront/internal/service"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// renderError maps service-level failures onto HTTP statuses. Internal error
// types never leak across the boundary; the envelope carries a message only.
func renderError(c *gin.Context, err error) {
	var stockErr *service.InsufficientStockError
	var transitionErr *service.InvalidTransitionError
	var validationErr *service.CheckoutValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, response.ErrorWithDetails(http.StatusUnprocessableEntity,
			"cart failed validation", validationErr.Problems))
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, stockErr.Error()))
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, transitionErr.Error()))
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrRejectNeedsNotes):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}
