package handlers

import (
	"errors"
	"log"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler exposes the order/payment lifecycle over HTTP.
type PaymentHandler struct {
	service *services.OrderService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.OrderService) *PaymentHandler {
	return &PaymentHandler{
		service: service,
	}
}

// RegisterRoutes registers the payment routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/create-order", h.HandleCreateOrder)
	router.Post("/initiate-payment", h.HandleInitiatePayment)
	router.Get("/verify-payment", h.HandleVerifyPayment)
	router.Get("/check-payment", h.HandleCheckPayment)
	router.Post("/webhook", h.HandleWebhook)
}

// respondError maps the service error taxonomy onto HTTP statuses. Gateway
// error bodies are passed through under "details" for operator diagnosis.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		apiErr        *gateway.APIError
	)
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   validationErr.Error(),
		})
	case errors.Is(err, repositories.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Order not found",
		})
	case errors.Is(err, repositories.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Product not found",
		})
	case errors.Is(err, repositories.ErrDuplicateOrder):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "An order with this purchaseId already exists",
		})
	case errors.Is(err, services.ErrInvalidSignature):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid webhook signature",
		})
	case errors.Is(err, services.ErrMalformedWebhook):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, services.ErrWebhookSecretMissing):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Webhook secret not configured",
		})
	case errors.As(err, &apiErr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Payment gateway request failed",
			"details": apiErr.Body,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
}

// HandleCreateOrder accepts a checkout submission, stores the order and
// immediately opens a gateway payment session.
func (h *PaymentHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var draft models.CheckoutDraft
	if err := c.BodyParser(&draft); err != nil {
		log.Printf("Error parsing create-order body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	order, err := h.service.InitiateCheckout(draft)
	if err != nil {
		log.Printf("Checkout rejected: %v", err)
		return respondError(c, err)
	}

	session, err := h.service.CreatePaymentSession(c.Context(), order.PurchaseID)
	if err != nil {
		log.Printf("Payment session creation failed for purchase %s: %v", order.PurchaseID, err)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"paymentSessionId": session.PaymentSessionID,
		"orderId":          session.GatewayOrderID,
		"purchaseId":       session.PurchaseID,
	})
}

// HandleInitiatePayment opens a gateway payment session for an order that
// was stored earlier.
func (h *PaymentHandler) HandleInitiatePayment(c *fiber.Ctx) error {
	var body struct {
		PurchaseID string `json:"purchaseId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if body.PurchaseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing purchaseId",
		})
	}

	session, err := h.service.CreatePaymentSession(c.Context(), body.PurchaseID)
	if err != nil {
		log.Printf("Payment initiation failed for purchase %s: %v", body.PurchaseID, err)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"paymentSessionId": session.PaymentSessionID,
		"orderId":          session.GatewayOrderID,
		"purchaseId":       session.PurchaseID,
	})
}

// HandleVerifyPayment resolves the payment outcome for the result page and
// reveals delivery links on success.
func (h *PaymentHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	orderID := c.Query("order_id")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing or invalid order_id",
		})
	}

	result, err := h.service.VerifyPayment(c.Context(), orderID)
	if err != nil {
		log.Printf("Payment verification failed for gateway order %s: %v", orderID, err)
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleCheckPayment is the polling variant used while the buyer waits.
func (h *PaymentHandler) HandleCheckPayment(c *fiber.Ctx) error {
	purchaseID := c.Query("purchaseId")
	orderID := c.Query("orderId")
	if purchaseID == "" && orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing purchaseId or orderId",
		})
	}

	result, err := h.service.CheckPayment(c.Context(), purchaseID, orderID)
	if err != nil {
		log.Printf("Payment status check failed (purchaseId=%s orderId=%s): %v", purchaseID, orderID, err)
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleWebhook ingests gateway payment notifications. The raw body bytes
// feed signature verification, so the payload is never pre-parsed.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	signature := c.Get("x-webhook-signature")
	timestamp := c.Get("x-webhook-timestamp")

	if err := h.service.HandleWebhook(c.Body(), signature, timestamp); err != nil {
		log.Printf("Webhook processing failed: %v", err)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"status":  "Webhook received",
	})
}
