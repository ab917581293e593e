// Package gateway wraps outbound calls to the Cashfree payment gateway.
// The client is stateless: it carries credentials and an HTTP client, and
// every method is a single request/response exchange.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL    = "https://api.cashfree.com/pg"
	defaultAPIVersion = "2023-08-01"
	defaultTimeout    = 10 * time.Second
)

// Cashfree order statuses as reported by GET /orders/{id}.
const (
	OrderStatusActive     = "ACTIVE"
	OrderStatusPaid       = "PAID"
	OrderStatusExpired    = "EXPIRED"
	OrderStatusTerminated = "TERMINATED"
)

// Config holds the gateway credentials and endpoint settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	APIVersion   string
	Timeout      time.Duration
}

// Client is a Cashfree REST API client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a new Cashfree client, filling in endpoint defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// CustomerDetails identifies the buyer on a gateway order.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderMeta carries the redirect and webhook URLs for a gateway order.
type OrderMeta struct {
	ReturnURL string `json:"return_url"`
	NotifyURL string `json:"notify_url"`
}

// CreateOrderRequest is the POST /orders payload.
type CreateOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       OrderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

// OrderResponse is the gateway's view of an order, returned both by order
// creation and by the status poll.
type OrderResponse struct {
	OrderID          string  `json:"order_id"`
	OrderStatus      string  `json:"order_status"`
	OrderAmount      float64 `json:"order_amount"`
	PaymentSessionID string  `json:"payment_session_id"`
	OrderNote        string  `json:"order_note"`
}

// APIError is a non-2xx gateway response. The raw body is retained so that
// upstream failures can be surfaced to operators verbatim.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cashfree: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// DuplicateOrderID reports whether the gateway rejected the request because
// the order identifier was already used. Callers retry with a fresh ID.
func (e *APIError) DuplicateOrderID() bool {
	return e.StatusCode == http.StatusConflict || e.Code == "order_already_exists"
}

// CreateOrder creates a gateway order and returns the hosted-checkout
// payment session.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}

	return c.do(httpReq)
}

// GetOrder fetches the current gateway status of an order. Transport and
// HTTP failures mean "unknown", never "failed"; the caller decides how to
// fall back.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/orders/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}

	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (*OrderResponse, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", c.cfg.APIVersion)
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-client-secret", c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cashfree request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cashfree response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		// Error bodies follow {code, message, type}; keep the raw body even
		// if this shape does not parse.
		var parsed struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(raw, &parsed); jsonErr == nil {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Message
		}
		return nil, apiErr
	}

	var order OrderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to decode cashfree response: %w", err)
	}
	return &order, nil
}
