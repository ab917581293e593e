package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByPurchaseID(purchaseID string) (*models.Order, error) {
	args := m.Called(purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	args := m.Called(gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(purchaseID string, status models.PaymentStatus, gatewayOrderID string) (bool, error) {
	args := m.Called(purchaseID, status, gatewayOrderID)
	return args.Bool(0), args.Error(1)
}

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll() ([]models.Product, error) {
	args := m.Called()
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

// MockGateway is a mock implementation of services.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.OrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.OrderResponse), args.Error(1)
}

func (m *MockGateway) GetOrder(ctx context.Context, orderID string) (*gateway.OrderResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.OrderResponse), args.Error(1)
}

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishPaymentEvent(event rabbitmq.PaymentEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func testConfig() services.Config {
	return services.Config{
		PublicBaseURL: "https://shop.example",
		WebhookSecret: "test_secret",
	}
}

func ebookProduct() *models.Product {
	return &models.Product{
		ID:           "1",
		Name:         "Trading Masterclass E-Book",
		Price:        29.99,
		Type:         models.ProductTypeEbook,
		URL:          "https://cdn.example.com/downloads/trading-masterclass.pdf",
		TelegramLink: "https://t.me/+tradingmasterclass",
	}
}

func validDraft() models.CheckoutDraft {
	return models.CheckoutDraft{
		ProductID:        "1",
		Amount:           29.99,
		CustomerName:     "Alice",
		CustomerEmail:    "a@b.com",
		CustomerPhone:    "9999999999",
		CustomerAddress:  "12 Some Street, Mumbai",
		TelegramUsername: "@alice",
	}
}

func conflictErr() *gateway.APIError {
	return &gateway.APIError{
		StatusCode: http.StatusConflict,
		Code:       "order_already_exists",
		Message:    "Order with same id already exists",
	}
}

func TestInitiateCheckout_IssuesUniquePurchaseIDs(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	service := services.NewOrderService(orderRepo, productRepo, nil, nil, testConfig())

	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)

	var created []*models.Order
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		created = append(created, args.Get(0).(*models.Order))
	}).Return(nil).Twice()

	first, err := service.InitiateCheckout(validDraft())
	require.NoError(t, err)
	second, err := service.InitiateCheckout(validDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, first.PurchaseID)
	assert.NotEqual(t, first.PurchaseID, second.PurchaseID)
	assert.Equal(t, models.StatusUnpaid, first.PaymentStatus)
	assert.Equal(t, "Trading Masterclass E-Book", first.ProductName)
	assert.Equal(t, "https://t.me/+tradingmasterclass", first.TelegramLink)
	require.Len(t, created, 2)
	orderRepo.AssertExpectations(t)
}

func TestInitiateCheckout_Validation(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	service := services.NewOrderService(orderRepo, productRepo, nil, nil, testConfig())

	cases := []struct {
		name   string
		mutate func(*models.CheckoutDraft)
		field  string
	}{
		{"missing name", func(d *models.CheckoutDraft) { d.CustomerName = "" }, "CustomerName"},
		{"bad email", func(d *models.CheckoutDraft) { d.CustomerEmail = "not-an-email" }, "CustomerEmail"},
		{"short phone", func(d *models.CheckoutDraft) { d.CustomerPhone = "12345" }, "CustomerPhone"},
		{"alpha phone", func(d *models.CheckoutDraft) { d.CustomerPhone = "99999x9999" }, "CustomerPhone"},
		{"missing product", func(d *models.CheckoutDraft) { d.ProductID = "" }, "ProductID"},
		{"zero amount", func(d *models.CheckoutDraft) { d.Amount = 0 }, "Amount"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)

			_, err := service.InitiateCheckout(draft)
			require.Error(t, err)

			var vErr *services.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestInitiateCheckout_UnknownProduct(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	service := services.NewOrderService(orderRepo, productRepo, nil, nil, testConfig())

	productRepo.On("GetByID", "99").Return(nil, fmt.Errorf("product with ID 99: %w", repositories.ErrProductNotFound))

	draft := validDraft()
	draft.ProductID = "99"
	_, err := service.InitiateCheckout(draft)
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
}

func unpaidOrder() *models.Order {
	return &models.Order{
		PurchaseID:       "purchase-1",
		ProductID:        "1",
		ProductName:      "Trading Masterclass E-Book",
		Amount:           29.99,
		CustomerName:     "Alice",
		CustomerEmail:    "a@b.com",
		CustomerPhone:    "9999999999",
		CustomerAddress:  "12 Some Street, Mumbai",
		TelegramUsername: "@alice",
		TelegramLink:     "https://t.me/+tradingmasterclass",
		PaymentStatus:    models.StatusUnpaid,
	}
}

func TestCreatePaymentSession_Success(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	events := new(MockEventPublisher)
	service := services.NewOrderService(orderRepo, productRepo, gw, events, testConfig())

	orderRepo.On("GetByPurchaseID", "purchase-1").Return(unpaidOrder(), nil)
	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)

	var gotReq gateway.CreateOrderRequest
	gw.On("CreateOrder", mock.Anything, mock.AnythingOfType("gateway.CreateOrderRequest")).
		Run(func(args mock.Arguments) {
			gotReq = args.Get(1).(gateway.CreateOrderRequest)
		}).
		Return(&gateway.OrderResponse{PaymentSessionID: "session_abc", OrderStatus: gateway.OrderStatusActive}, nil).Once()

	orderRepo.On("UpdateStatus", "purchase-1", models.StatusInitiated, mock.MatchedBy(func(id string) bool {
		return strings.HasPrefix(id, "ORDER_")
	})).Return(true, nil).Once()
	events.On("PublishPaymentEvent", mock.AnythingOfType("rabbitmq.PaymentEvent")).Return(nil).Once()

	session, err := service.CreatePaymentSession(context.Background(), "purchase-1")
	require.NoError(t, err)

	assert.Equal(t, "session_abc", session.PaymentSessionID)
	assert.Equal(t, gotReq.OrderID, session.GatewayOrderID)
	assert.Equal(t, "INR", gotReq.OrderCurrency)
	assert.Equal(t, 29.99, gotReq.OrderAmount)
	assert.Equal(t, "cust_1", gotReq.CustomerDetails.CustomerID)
	assert.Contains(t, gotReq.OrderMeta.ReturnURL, "purchase_id=purchase-1")
	assert.Contains(t, gotReq.OrderMeta.ReturnURL, "item_type=ebook")
	assert.Contains(t, gotReq.OrderMeta.ReturnURL, "order_id="+session.GatewayOrderID)
	assert.Equal(t, "https://shop.example/api/webhook", gotReq.OrderMeta.NotifyURL)
	assert.Contains(t, gotReq.OrderNote, `"purchaseId":"purchase-1"`)
	assert.Contains(t, gotReq.OrderNote, `"productId":"1"`)

	orderRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestCreatePaymentSession_CollisionRetrySucceedsOnThirdAttempt(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, productRepo, gw, nil, testConfig())

	orderRepo.On("GetByPurchaseID", "purchase-1").Return(unpaidOrder(), nil)
	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)

	var attemptedIDs []string
	record := func(args mock.Arguments) {
		attemptedIDs = append(attemptedIDs, args.Get(1).(gateway.CreateOrderRequest).OrderID)
	}
	gw.On("CreateOrder", mock.Anything, mock.Anything).Run(record).Return(nil, conflictErr()).Twice()
	gw.On("CreateOrder", mock.Anything, mock.Anything).Run(record).
		Return(&gateway.OrderResponse{PaymentSessionID: "session_third"}, nil).Once()

	orderRepo.On("UpdateStatus", "purchase-1", models.StatusInitiated, mock.AnythingOfType("string")).Return(true, nil)

	session, err := service.CreatePaymentSession(context.Background(), "purchase-1")
	require.NoError(t, err)

	require.Len(t, attemptedIDs, 3)
	// Every retry must carry a freshly generated identifier.
	assert.NotEqual(t, attemptedIDs[0], attemptedIDs[1])
	assert.NotEqual(t, attemptedIDs[1], attemptedIDs[2])
	assert.Equal(t, attemptedIDs[2], session.GatewayOrderID)
	assert.Equal(t, "session_third", session.PaymentSessionID)
	gw.AssertExpectations(t)
}

func TestCreatePaymentSession_CollisionRetryExhausted(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, productRepo, gw, nil, testConfig())

	orderRepo.On("GetByPurchaseID", "purchase-1").Return(unpaidOrder(), nil)
	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)
	gw.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, conflictErr()).Times(3)

	_, err := service.CreatePaymentSession(context.Background(), "purchase-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrGatewayExhausted)

	orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNumberOfCalls(t, "CreateOrder", 3)
}

func TestCreatePaymentSession_NonConflictErrorIsNotRetried(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, productRepo, gw, nil, testConfig())

	orderRepo.On("GetByPurchaseID", "purchase-1").Return(unpaidOrder(), nil)
	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)

	upstream := &gateway.APIError{StatusCode: http.StatusBadGateway, Message: "upstream down", Body: `{"message":"upstream down"}`}
	gw.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, upstream).Once()

	_, err := service.CreatePaymentSession(context.Background(), "purchase-1")
	require.Error(t, err)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	gw.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestCreatePaymentSession_OrderNotFound(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	service := services.NewOrderService(orderRepo, productRepo, new(MockGateway), nil, testConfig())

	orderRepo.On("GetByPurchaseID", "missing").Return(nil, fmt.Errorf("purchase missing: %w", repositories.ErrOrderNotFound))

	_, err := service.CreatePaymentSession(context.Background(), "missing")
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
}

func TestVerifyPayment_PaidResolvesOrder(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	events := new(MockEventPublisher)
	service := services.NewOrderService(orderRepo, productRepo, gw, events, testConfig())

	order := unpaidOrder()
	order.PaymentStatus = models.StatusInitiated
	order.GatewayOrderID = "ORDER_42"

	orderRepo.On("GetByGatewayOrderID", "ORDER_42").Return(order, nil)
	gw.On("GetOrder", mock.Anything, "ORDER_42").
		Return(&gateway.OrderResponse{OrderID: "ORDER_42", OrderStatus: gateway.OrderStatusPaid}, nil)
	orderRepo.On("UpdateStatus", "purchase-1", models.StatusPaid, "").Return(true, nil).Once()
	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)
	events.On("PublishPaymentEvent", mock.AnythingOfType("rabbitmq.PaymentEvent")).Return(nil).Once()

	result, err := service.VerifyPayment(context.Background(), "ORDER_42")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "PAID", result.Status)
	assert.Equal(t, "1", result.ProductID)
	assert.Equal(t, "https://t.me/+tradingmasterclass", result.TelegramLink)
	assert.Equal(t, "https://cdn.example.com/downloads/trading-masterclass.pdf", result.DownloadURL)
	orderRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestVerifyPayment_GatewayDownLocalPaidWins(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, productRepo, gw, nil, testConfig())

	order := unpaidOrder()
	order.PaymentStatus = models.StatusPaid
	order.GatewayOrderID = "ORDER_42"

	orderRepo.On("GetByGatewayOrderID", "ORDER_42").Return(order, nil)
	gw.On("GetOrder", mock.Anything, "ORDER_42").Return(nil, errors.New("connection timed out"))
	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)

	result, err := service.VerifyPayment(context.Background(), "ORDER_42")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "PAID", result.Status)
	assert.Equal(t, "1", result.ProductID)
}

func TestVerifyPayment_GatewayDownUnpaidSurfacesError(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, productRepo, gw, nil, testConfig())

	order := unpaidOrder()
	order.PaymentStatus = models.StatusInitiated
	order.GatewayOrderID = "ORDER_42"

	orderRepo.On("GetByGatewayOrderID", "ORDER_42").Return(order, nil)
	gw.On("GetOrder", mock.Anything, "ORDER_42").Return(nil, errors.New("connection timed out"))

	_, err := service.VerifyPayment(context.Background(), "ORDER_42")
	require.Error(t, err)
	// Never silently marks an order paid from an unreachable gateway.
	orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPayment_NoteFallbackWhenLocalRecordMissing(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, productRepo, gw, nil, testConfig())

	orderRepo.On("GetByGatewayOrderID", "ORDER_42").
		Return(nil, fmt.Errorf("gateway order ORDER_42: %w", repositories.ErrOrderNotFound))
	// The gateway HTML-entity-encodes the note's quotes on echo.
	gw.On("GetOrder", mock.Anything, "ORDER_42").Return(&gateway.OrderResponse{
		OrderID:     "ORDER_42",
		OrderStatus: gateway.OrderStatusPaid,
		OrderNote:   "{&quot;productId&quot;:&quot;1&quot;,&quot;telegramLink&quot;:&quot;https://t.me/+tradingmasterclass&quot;,&quot;purchaseId&quot;:&quot;purchase-1&quot;}",
	}, nil)
	productRepo.On("GetByID", "1").Return(ebookProduct(), nil)

	result, err := service.VerifyPayment(context.Background(), "ORDER_42")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "1", result.ProductID)
	assert.Equal(t, "https://t.me/+tradingmasterclass", result.TelegramLink)
}

func TestVerifyPayment_UnpaidReportsUnverified(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, productRepo, gw, nil, testConfig())

	order := unpaidOrder()
	order.PaymentStatus = models.StatusInitiated
	order.GatewayOrderID = "ORDER_42"

	orderRepo.On("GetByGatewayOrderID", "ORDER_42").Return(order, nil)
	gw.On("GetOrder", mock.Anything, "ORDER_42").
		Return(&gateway.OrderResponse{OrderID: "ORDER_42", OrderStatus: gateway.OrderStatusActive}, nil)

	result, err := service.VerifyPayment(context.Background(), "ORDER_42")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "UNVERIFIED", result.Status)
	assert.Equal(t, gateway.OrderStatusActive, result.OrderStatus)
	orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckPayment_StatusMapping(t *testing.T) {
	cases := []struct {
		gatewayStatus string
		wantUpdate    bool
		wantStatus    models.PaymentStatus
	}{
		{gateway.OrderStatusPaid, true, models.StatusPaid},
		{gateway.OrderStatusExpired, true, models.StatusFailed},
		{gateway.OrderStatusTerminated, true, models.StatusFailed},
		// ACTIVE is not an outcome; local state stays untouched.
		{gateway.OrderStatusActive, false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.gatewayStatus, func(t *testing.T) {
			orderRepo := new(MockOrderRepository)
			gw := new(MockGateway)
			service := services.NewOrderService(orderRepo, new(MockProductRepository), gw, nil, testConfig())

			order := unpaidOrder()
			order.PaymentStatus = models.StatusInitiated
			order.GatewayOrderID = "ORDER_42"

			orderRepo.On("GetByPurchaseID", "purchase-1").Return(order, nil)
			gw.On("GetOrder", mock.Anything, "ORDER_42").
				Return(&gateway.OrderResponse{OrderID: "ORDER_42", OrderStatus: tc.gatewayStatus}, nil)
			if tc.wantUpdate {
				orderRepo.On("UpdateStatus", "purchase-1", tc.wantStatus, "").Return(true, nil).Once()
			}

			result, err := service.CheckPayment(context.Background(), "purchase-1", "")
			require.NoError(t, err)
			assert.Equal(t, tc.gatewayStatus, result.Status)
			assert.Equal(t, "1", result.ProductID)

			if !tc.wantUpdate {
				orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			} else {
				orderRepo.AssertExpectations(t)
			}
		})
	}
}

func TestCheckPayment_GatewayFailureIsNotAFailedPayment(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, new(MockProductRepository), gw, nil, testConfig())

	order := unpaidOrder()
	order.PaymentStatus = models.StatusInitiated
	order.GatewayOrderID = "ORDER_42"

	orderRepo.On("GetByPurchaseID", "purchase-1").Return(order, nil)
	gw.On("GetOrder", mock.Anything, "ORDER_42").Return(nil, errors.New("connection refused"))

	_, err := service.CheckPayment(context.Background(), "purchase-1", "")
	require.Error(t, err)
	orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

// End-to-end: checkout -> payment session -> webhook -> verification, on a
// real in-memory order store.
func TestOrderLifecycle_EndToEnd(t *testing.T) {
	orderRepo := repositories.NewMockOrderRepository()
	catalog := repositories.NewJSONCatalog([]models.Product{*ebookProduct()})
	gw := new(MockGateway)
	service := services.NewOrderService(orderRepo, catalog, gw, nil, testConfig())

	order, err := service.InitiateCheckout(validDraft())
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnpaid, order.PaymentStatus)

	gw.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&gateway.OrderResponse{PaymentSessionID: "session_xyz"}, nil).Once()

	session, err := service.CreatePaymentSession(context.Background(), order.PurchaseID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.PaymentSessionID)

	stored, err := orderRepo.GetByPurchaseID(order.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, stored.PaymentStatus)
	assert.Equal(t, session.GatewayOrderID, stored.GatewayOrderID)

	body := []byte(fmt.Sprintf(`{"order_id":%q,"order_status":"PAID"}`, session.GatewayOrderID))
	err = service.HandleWebhook(body, signBody(t, "test_secret", body, ""), "")
	require.NoError(t, err)

	// Redelivery of the same notification acks without a second transition.
	err = service.HandleWebhook(body, signBody(t, "test_secret", body, ""), "")
	require.NoError(t, err)

	gw.On("GetOrder", mock.Anything, session.GatewayOrderID).
		Return(&gateway.OrderResponse{OrderID: session.GatewayOrderID, OrderStatus: gateway.OrderStatusPaid}, nil)

	result, err := service.VerifyPayment(context.Background(), session.GatewayOrderID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "PAID", result.Status)
	assert.Equal(t, "1", result.ProductID)

	final, err := orderRepo.GetByPurchaseID(order.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, final.PaymentStatus)
}
