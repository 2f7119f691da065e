package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InitiatePaymentRequest struct {
	Method    string `json:"method" binding:"required,oneof=card bank_transfer cod"`
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type VerifyCardRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// WebhookPayload is what the gateway posts. Only the session reference is
// trusted; the status is re-fetched from the gateway before anything applies.
type WebhookPayload struct {
	SessionID     string `json:"session_id" binding:"required"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type SubmitProofRequest struct {
	FileURL string `json:"file_url" binding:"required"`
	Notes   string `json:"notes"`
}

type ReviewProofRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/orders/:id/payments", middleware.OptionalAuth(), h.InitiatePayment)
		api.POST("/orders/:id/collect-cod", middleware.RequireRole("admin", "staff"), h.CollectCOD)
		api.POST("/payments/card/verify", h.VerifyCard)
		api.POST("/payments/:id/proofs", middleware.OptionalAuth(), h.SubmitProof)
		api.POST("/transfer-proofs/:id/review", middleware.RequireRole("admin", "staff"), h.ReviewProof)
		api.POST("/webhooks/payment", h.Webhook)
	}
}

// InitiatePayment starts (or retries) a payment attempt for an order
// @Summary      Initiate payment
// @Description  Creates a pending payment; card payments return a gateway redirect URL, COD advances the order to processing
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Order ID"
// @Param        payload  body      InitiatePaymentRequest  true  "Initiate Payload"
// @Success      201      {object}  response.Response{data=service.PaymentInitiation}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /api/orders/{id}/payments [post]
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order ID"))
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor := c.GetString("userID")
	if actor == "" {
		actor = "guest"
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), orderID, req.Method, service.InitiateOptions{
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
		Actor:     actor,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// VerifyCard reconciles a card payment session after the customer returns
// @Summary      Verify card payment
// @Description  Fetches the session state from the gateway and applies the outcome; safe to call repeatedly
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        payload  body      VerifyCardRequest  true  "Verify Payload"
// @Success      200      {object}  response.Response{data=service.PaymentStatusResult}
// @Failure      404      {object}  response.Response
// @Router       /api/payments/card/verify [post]
func (h *PaymentHandler) VerifyCard(c *gin.Context) {
	var req VerifyCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.paymentService.VerifyCard(c.Request.Context(), req.SessionID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Webhook receives at-least-once gateway notifications
// @Summary      Payment gateway webhook
// @Description  Duplicate deliveries are expected and resolve to no-ops
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        payload  body      WebhookPayload  true  "Gateway notification"
// @Success      200      {object}  response.Response
// @Router       /api/webhooks/payment [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid webhook payload: "+err.Error()))
		return
	}

	if _, err := h.paymentService.VerifyCard(c.Request.Context(), payload.SessionID); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "acknowledged"))
}

// SubmitProof records bank transfer evidence uploaded by the customer
// @Summary      Submit transfer proof
// @Description  Stores the evidence reference; the order only advances once staff approve it
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Payment ID"
// @Param        payload  body      SubmitProofRequest  true  "Proof Payload"
// @Success      201      {object}  response.Response{data=model.BankTransferProof}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/payments/{id}/proofs [post]
func (h *PaymentHandler) SubmitProof(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid payment ID"))
		return
	}

	var req SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	proof, err := h.paymentService.SubmitProof(c.Request.Context(), paymentID, req.FileURL, req.Notes)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, proof))
}

// ReviewProof approves or rejects a bank transfer proof
// @Summary      Review transfer proof
// @Description  Approval marks the order paid and commits inventory; rejection cancels the order and releases the reservation
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Proof ID"
// @Param        payload  body      ReviewProofRequest  true  "Review Payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/transfer-proofs/{id}/review [post]
func (h *PaymentHandler) ReviewProof(c *gin.Context) {
	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid proof ID"))
		return
	}

	var req ReviewProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	reviewer := c.GetString("userID")
	if err := h.paymentService.ReviewProof(c.Request.Context(), proofID, req.Approve, reviewer, req.Notes); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Proof reviewed"))
}

// CollectCOD marks a cash-on-delivery payment as collected
// @Summary      Collect COD payment
// @Description  Converts the order's reservation into a committed sale at the point cash changes hands
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id}/collect-cod [post]
func (h *PaymentHandler) CollectCOD(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order ID"))
		return
	}

	actor := c.GetString("userID")
	if err := h.paymentService.CollectCOD(c.Request.Context(), orderID, actor); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Payment collected"))
}
