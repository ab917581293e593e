package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"html"
	"log"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// maxCreateOrderAttempts bounds the duplicate-order-ID retry loop.
const maxCreateOrderAttempts = 3

var validate = validator.New()

// PaymentGateway is the outbound contract the order service needs from the
// payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*gateway.OrderResponse, error)
}

// EventPublisher publishes payment lifecycle events for fulfillment
// consumers. A nil publisher disables publication.
type EventPublisher interface {
	PublishPaymentEvent(event rabbitmq.PaymentEvent) error
}

// Config carries the environment the order service needs to talk to the
// gateway and to build its redirect URLs.
type Config struct {
	// PublicBaseURL is the externally reachable base of this deployment,
	// used for the gateway's return and notify URLs.
	PublicBaseURL string
	// WebhookSecret is the shared secret for webhook signatures. Empty
	// means webhook processing is unconfigured and must fail loudly.
	WebhookSecret string
}

// OrderService orchestrates the order lifecycle: checkout, gateway session
// creation with collision retry, webhook ingestion and payment
// verification/reconciliation.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	gateway     PaymentGateway
	events      EventPublisher
	cfg         Config

	// Striped per-order locks serialize verify/webhook races on the same
	// purchase so the repository's terminal guard sees one writer at a time.
	locks [64]sync.Mutex
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, gw PaymentGateway, events EventPublisher, cfg Config) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		gateway:     gw,
		events:      events,
		cfg:         cfg,
	}
}

func (s *OrderService) lockOrder(purchaseID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(purchaseID))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu
}

// InitiateCheckout validates a checkout submission and stores a new unpaid
// order. The purchase ID is assigned here, before any gateway contact.
func (s *OrderService) InitiateCheckout(draft models.CheckoutDraft) (*models.Order, error) {
	if err := validate.Struct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return nil, &ValidationError{Field: first.Field(), Reason: first.Tag()}
		}
		return nil, &ValidationError{Field: "body", Reason: err.Error()}
	}

	product, err := s.productRepo.GetByID(draft.ProductID)
	if err != nil {
		return nil, err
	}

	purchaseID := draft.PurchaseID
	if purchaseID == "" {
		purchaseID = uuid.New().String()
	}

	productName := draft.ProductName
	if productName == "" {
		productName = product.Name
	}

	order := &models.Order{
		PurchaseID:       purchaseID,
		ProductID:        product.ID,
		ProductName:      productName,
		Amount:           draft.Amount,
		CustomerName:     draft.CustomerName,
		CustomerEmail:    draft.CustomerEmail,
		CustomerPhone:    draft.CustomerPhone,
		CustomerAddress:  draft.CustomerAddress,
		TelegramUsername: draft.TelegramUsername,
		TelegramLink:     product.TelegramLink,
		PaymentStatus:    models.StatusUnpaid,
		CreatedAt:        time.Now(),
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}
	return order, nil
}

// GetOrder returns the stored order for a purchase. Read-only; used by the
// rendering layer for receipts.
func (s *OrderService) GetOrder(purchaseID string) (*models.Order, error) {
	return s.orderRepo.GetByPurchaseID(purchaseID)
}

// PaymentSession is the outcome of a successful gateway order creation.
type PaymentSession struct {
	PurchaseID       string `json:"purchaseId"`
	GatewayOrderID   string `json:"orderId"`
	PaymentSessionID string `json:"paymentSessionId"`
}

// orderNote is the metadata embedded in the gateway's free-text note field.
// The server-side gatewayOrderID -> order mapping is authoritative; the
// note is only a compatibility fallback when that mapping is unavailable.
type orderNote struct {
	ProductID        string `json:"productId,omitempty"`
	TelegramLink     string `json:"telegramLink,omitempty"`
	TelegramUsername string `json:"telegramUsername,omitempty"`
	CustomerAddress  string `json:"customerAddress,omitempty"`
	PurchaseID       string `json:"purchaseId,omitempty"`
}

var orderIDSeq atomic.Uint32

// newGatewayOrderID generates a candidate gateway order identifier. Each
// collision retry must call this again; a rejected ID is never reused. The
// monotonic suffix keeps consecutive candidates distinct even within the
// same millisecond.
func newGatewayOrderID() string {
	return fmt.Sprintf("ORDER_%d_%03d", time.Now().UnixMilli(), orderIDSeq.Add(1)%1000)
}

// CreatePaymentSession creates a gateway order for an existing purchase and
// returns the hosted-checkout session. On the gateway's duplicate-order-ID
// conflict it retries with a freshly generated ID, up to three attempts in
// total.
func (s *OrderService) CreatePaymentSession(ctx context.Context, purchaseID string) (*PaymentSession, error) {
	order, err := s.orderRepo.GetByPurchaseID(purchaseID)
	if err != nil {
		return nil, err
	}

	itemType := models.ProductTypePhysical
	if product, perr := s.productRepo.GetByID(order.ProductID); perr == nil {
		itemType = product.Type
	}

	note, err := json.Marshal(orderNote{
		ProductID:        order.ProductID,
		TelegramLink:     order.TelegramLink,
		TelegramUsername: order.TelegramUsername,
		CustomerAddress:  order.CustomerAddress,
		PurchaseID:       order.PurchaseID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order note: %w", err)
	}

	var (
		resp           *gateway.OrderResponse
		gatewayOrderID string
		lastErr        error
	)
	for attempt := 1; attempt <= maxCreateOrderAttempts; attempt++ {
		gatewayOrderID = newGatewayOrderID()

		returnURL := fmt.Sprintf("%s/payment-result?purchase_id=%s&item_type=%s&order_id=%s",
			s.cfg.PublicBaseURL, url.QueryEscape(order.PurchaseID), url.QueryEscape(itemType), gatewayOrderID)

		resp, lastErr = s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
			OrderID:       gatewayOrderID,
			OrderAmount:   order.Amount,
			OrderCurrency: "INR",
			CustomerDetails: gateway.CustomerDetails{
				CustomerID:    "cust_" + order.ProductID,
				CustomerName:  order.CustomerName,
				CustomerEmail: order.CustomerEmail,
				CustomerPhone: order.CustomerPhone,
			},
			OrderMeta: gateway.OrderMeta{
				ReturnURL: returnURL,
				NotifyURL: s.cfg.PublicBaseURL + "/api/webhook",
			},
			OrderNote: string(note),
		})
		if lastErr == nil {
			break
		}

		var apiErr *gateway.APIError
		if errors.As(lastErr, &apiErr) && apiErr.DuplicateOrderID() {
			log.Printf("Gateway order ID %s already taken (attempt %d/%d), regenerating", gatewayOrderID, attempt, maxCreateOrderAttempts)
			continue
		}
		return nil, fmt.Errorf("gateway order creation failed: %w", lastErr)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w after %d attempts: %s", ErrGatewayExhausted, maxCreateOrderAttempts, lastErr)
	}

	if _, err := s.orderRepo.UpdateStatus(order.PurchaseID, models.StatusInitiated, gatewayOrderID); err != nil {
		return nil, fmt.Errorf("failed to record initiated payment: %w", err)
	}
	s.publishEvent(order, models.StatusInitiated, gatewayOrderID)

	return &PaymentSession{
		PurchaseID:       order.PurchaseID,
		GatewayOrderID:   gatewayOrderID,
		PaymentSessionID: resp.PaymentSessionID,
	}, nil
}

// VerificationResult is what the payment-result page renders: the resolved
// status plus delivery links, which are only populated on success.
type VerificationResult struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	ProductID    string `json:"productId,omitempty"`
	TelegramLink string `json:"telegramLink,omitempty"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
	// OrderStatus carries the gateway's raw status when verification did
	// not succeed.
	OrderStatus string `json:"orderStatus,omitempty"`
}

// VerifyPayment polls the gateway for an order's status and reconciles the
// local record. A locally recorded paid status is trusted over an
// unreachable gateway; an unpaid gateway answer is reported as unverified,
// never silently marked paid.
func (s *OrderService) VerifyPayment(ctx context.Context, gatewayOrderID string) (*VerificationResult, error) {
	local, err := s.orderRepo.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		if !errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, err
		}
		local = nil
	}
	if local != nil {
		mu := s.lockOrder(local.PurchaseID)
		defer mu.Unlock()
	}

	resp, gwErr := s.gateway.GetOrder(ctx, gatewayOrderID)
	if gwErr != nil {
		// Gateway unreachable: local truth wins if it already says paid,
		// otherwise the failure is surfaced for diagnosis.
		if local != nil && local.PaymentStatus == models.StatusPaid {
			log.Printf("Gateway status check failed for %s, trusting local paid record: %v", gatewayOrderID, gwErr)
			return s.paidResult(local, ""), nil
		}
		return nil, fmt.Errorf("failed to verify payment with gateway: %w", gwErr)
	}

	if resp.OrderStatus == gateway.OrderStatusPaid || (local != nil && local.PaymentStatus == models.StatusPaid) {
		if local != nil {
			changed, uerr := s.orderRepo.UpdateStatus(local.PurchaseID, models.StatusPaid, "")
			if uerr != nil {
				return nil, uerr
			}
			if changed {
				s.publishEvent(local, models.StatusPaid, gatewayOrderID)
			}
			return s.paidResult(local, resp.OrderNote), nil
		}
		// No local record: fall back to the note metadata the gateway
		// echoed back.
		note := decodeOrderNote(resp.OrderNote)
		result := &VerificationResult{
			Success:      true,
			Status:       gateway.OrderStatusPaid,
			ProductID:    note.ProductID,
			TelegramLink: note.TelegramLink,
		}
		s.attachDownloadURL(result)
		return result, nil
	}

	return &VerificationResult{
		Success:     false,
		Status:      "UNVERIFIED",
		OrderStatus: resp.OrderStatus,
	}, nil
}

func (s *OrderService) paidResult(order *models.Order, rawNote string) *VerificationResult {
	result := &VerificationResult{
		Success:      true,
		Status:       gateway.OrderStatusPaid,
		ProductID:    order.ProductID,
		TelegramLink: order.TelegramLink,
	}
	if result.ProductID == "" || result.TelegramLink == "" {
		note := decodeOrderNote(rawNote)
		if result.ProductID == "" {
			result.ProductID = note.ProductID
		}
		if result.TelegramLink == "" {
			result.TelegramLink = note.TelegramLink
		}
	}
	s.attachDownloadURL(result)
	return result
}

// attachDownloadURL reveals the download link for digital products once a
// result is known to be paid.
func (s *OrderService) attachDownloadURL(result *VerificationResult) {
	if result.ProductID == "" {
		return
	}
	product, err := s.productRepo.GetByID(result.ProductID)
	if err != nil {
		return
	}
	if product.Type == models.ProductTypeEbook {
		result.DownloadURL = product.URL
	}
	if result.TelegramLink == "" {
		result.TelegramLink = product.TelegramLink
	}
}

// decodeOrderNote parses the JSON metadata embedded in the gateway's note
// field. The gateway HTML-entity-encodes quotes on echo, so the note is
// unescaped before parsing. A malformed note yields an empty value.
func decodeOrderNote(raw string) orderNote {
	var note orderNote
	if raw == "" {
		return note
	}
	if err := json.Unmarshal([]byte(html.UnescapeString(raw)), &note); err != nil {
		log.Printf("Failed to parse order note %q: %v", raw, err)
	}
	return note
}

// PollResult is the polling variant's response shape.
type PollResult struct {
	Status    string `json:"status"`
	ProductID string `json:"productId"`
}

// gateway statuses that definitively mean the payment will never complete.
var failedGatewayStatuses = map[string]bool{
	gateway.OrderStatusExpired:    true,
	gateway.OrderStatusTerminated: true,
	"FAILED":                      true,
	"CANCELLED":                   true,
}

// CheckPayment polls the gateway for the order's raw status and folds a
// definitive answer back into the local record. A transport failure leaves
// local state untouched: unknown is not failed.
func (s *OrderService) CheckPayment(ctx context.Context, purchaseID, gatewayOrderID string) (*PollResult, error) {
	var (
		order *models.Order
		err   error
	)
	if purchaseID != "" {
		order, err = s.orderRepo.GetByPurchaseID(purchaseID)
	} else {
		order, err = s.orderRepo.GetByGatewayOrderID(gatewayOrderID)
	}
	if err != nil {
		return nil, err
	}

	if order.GatewayOrderID == "" {
		// No gateway order was ever created; the local state is all there is.
		return &PollResult{Status: strings.ToUpper(string(order.PaymentStatus)), ProductID: order.ProductID}, nil
	}

	resp, err := s.gateway.GetOrder(ctx, order.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment status: %w", err)
	}

	mu := s.lockOrder(order.PurchaseID)
	defer mu.Unlock()

	switch {
	case resp.OrderStatus == gateway.OrderStatusPaid:
		changed, uerr := s.orderRepo.UpdateStatus(order.PurchaseID, models.StatusPaid, "")
		if uerr != nil {
			return nil, uerr
		}
		if changed {
			s.publishEvent(order, models.StatusPaid, order.GatewayOrderID)
		}
	case failedGatewayStatuses[resp.OrderStatus]:
		changed, uerr := s.orderRepo.UpdateStatus(order.PurchaseID, models.StatusFailed, "")
		if uerr != nil {
			return nil, uerr
		}
		if changed {
			s.publishEvent(order, models.StatusFailed, order.GatewayOrderID)
		}
	}

	return &PollResult{Status: resp.OrderStatus, ProductID: order.ProductID}, nil
}

// webhookEvent covers both the flat legacy payload and the nested 2023
// webhook schema.
type webhookEvent struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
	OrderNote   string `json:"order_note"`
	Data        *struct {
		Order *struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment *struct {
			PaymentStatus string `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}

// HandleWebhook verifies and applies an asynchronous payment notification.
// The signature is an HMAC-SHA256 over the raw body, or over
// "timestamp.body" when the gateway supplies a timestamp header. Processing
// is idempotent: redelivered notifications for a resolved order ack without
// a second transition.
func (s *OrderService) HandleWebhook(rawBody []byte, signature, timestamp string) error {
	if s.cfg.WebhookSecret == "" {
		return ErrWebhookSecretMissing
	}

	expected := computeWebhookSignature(s.cfg.WebhookSecret, rawBody, timestamp)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedWebhook, err)
	}

	gatewayOrderID := event.OrderID
	status := event.OrderStatus
	if event.Data != nil {
		if gatewayOrderID == "" && event.Data.Order != nil {
			gatewayOrderID = event.Data.Order.OrderID
		}
		if status == "" && event.Data.Payment != nil {
			status = event.Data.Payment.PaymentStatus
		}
	}
	if gatewayOrderID == "" {
		return fmt.Errorf("%w: missing order_id", ErrMalformedWebhook)
	}

	order, err := s.orderRepo.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		if !errors.Is(err, repositories.ErrOrderNotFound) {
			return err
		}
		// Note-payload fallback for orders recorded before the gateway ID
		// was known.
		note := decodeOrderNote(event.OrderNote)
		if note.PurchaseID == "" {
			log.Printf("Webhook for unknown gateway order %s, acknowledging without state change", gatewayOrderID)
			return nil
		}
		order, err = s.orderRepo.GetByPurchaseID(note.PurchaseID)
		if err != nil {
			if errors.Is(err, repositories.ErrOrderNotFound) {
				log.Printf("Webhook references unknown purchase %s, acknowledging without state change", note.PurchaseID)
				return nil
			}
			return err
		}
	}

	newStatus := models.StatusFailed
	if status == gateway.OrderStatusPaid || status == "SUCCESS" {
		newStatus = models.StatusPaid
	}

	mu := s.lockOrder(order.PurchaseID)
	defer mu.Unlock()

	changed, err := s.orderRepo.UpdateStatus(order.PurchaseID, newStatus, gatewayOrderID)
	if err != nil {
		return err
	}
	if changed {
		s.publishEvent(order, newStatus, gatewayOrderID)
	}
	return nil
}

// computeWebhookSignature returns the base64 HMAC-SHA256 the gateway is
// expected to send for the given payload.
func computeWebhookSignature(secret string, rawBody []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	if timestamp != "" {
		mac.Write([]byte(timestamp))
		mac.Write([]byte("."))
	}
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *OrderService) publishEvent(order *models.Order, status models.PaymentStatus, gatewayOrderID string) {
	if s.events == nil {
		return
	}
	err := s.events.PublishPaymentEvent(rabbitmq.PaymentEvent{
		PurchaseID:     order.PurchaseID,
		GatewayOrderID: gatewayOrderID,
		ProductID:      order.ProductID,
		Status:         string(status),
		Amount:         order.Amount,
		OccurredAt:     time.Now(),
	})
	if err != nil {
		log.Printf("Warning: Failed to publish payment event for order %s: %v", order.PurchaseID, err)
	}
}
