package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/config"
	"github.com/example/comforty/pkg/models"
	"github.com/example/comforty/pkg/payment"
	"github.com/example/comforty/pkg/repository"
)

const (
	testJWTSecret     = "jwt_test_secret"
	testWebhookSecret = "whsec_test_secret"
)

type stubEngine struct {
	completed   []string
	failures    []string
	checkoutErr error
}

func (e *stubEngine) InitiateCheckout(_ context.Context, userID string, _ checkout.CheckoutRequest) (*checkout.CheckoutResult, error) {
	if e.checkoutErr != nil {
		return nil, e.checkoutErr
	}
	return &checkout.CheckoutResult{
		OrderID:       "order-1",
		PaymentMethod: models.PaymentMethodCard,
		ClientSecret:  "pi_1_secret",
		Message:       "Payment intent created",
	}, nil
}

func (e *stubEngine) CompleteCardPayment(_ context.Context, orderID string) (*models.Order, error) {
	e.completed = append(e.completed, orderID)
	return &models.Order{ID: orderID, PaymentStatus: models.PaymentPaid, OrderStatus: models.OrderProcessing}, nil
}

func (e *stubEngine) ReportPaymentFailure(_ context.Context, orderID string) error {
	e.failures = append(e.failures, orderID)
	return nil
}

type stubOrders struct{}

func (stubOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	return nil, &checkout.NotFoundError{Entity: "order", ID: id}
}
func (stubOrders) FindByUser(context.Context, string) ([]models.Order, error) { return nil, nil }
func (stubOrders) FindAll(context.Context) ([]models.Order, error)            { return nil, nil }
func (stubOrders) UpdateStatus(_ context.Context, id string, _ models.OrderStatus, _ models.PaymentStatus) (*models.Order, error) {
	return nil, &checkout.NotFoundError{Entity: "order", ID: id}
}

type stubCarts struct{}

func (stubCarts) Get(_ context.Context, userID string) (*models.Cart, error) {
	return models.NewCart(userID), nil
}
func (stubCarts) AddItem(_ context.Context, userID, productID string, quantity int64) (*models.Cart, error) {
	cart := models.NewCart(userID)
	cart.Add(productID, quantity)
	return cart, nil
}
func (stubCarts) UpdateItem(_ context.Context, userID, _ string, _ int64) (*models.Cart, error) {
	return models.NewCart(userID), nil
}
func (stubCarts) RemoveItem(_ context.Context, userID, _ string) (*models.Cart, error) {
	return models.NewCart(userID), nil
}
func (stubCarts) Clear(context.Context, string) error { return nil }

type stubStats struct{}

func (stubStats) Dashboard(context.Context) (*repository.DashboardStats, error) {
	return &repository.DashboardStats{}, nil
}

type stubAudit struct{}

func (stubAudit) ByEntity(context.Context, string, int64) ([]*repository.AuditLog, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *stubEngine) {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = testJWTSecret
	cfg.Stripe.WebhookSecret = testWebhookSecret

	engine := &stubEngine{}
	gateway := payment.NewStripeGateway(&cfg.Stripe)
	server := NewServer(cfg, zap.NewNop(), engine, stubOrders{}, stubCarts{}, stubStats{}, stubAudit{}, gateway)
	return server, engine
}

func bearerToken(t *testing.T, userID string, isAdmin bool) string {
	t.Helper()

	claims := &authClaims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func signWebhook(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookRejectsForgedSignature(t *testing.T) {
	server, engine := newTestServer(t)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"metadata":{"orderId":"order-1"}}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// Rejected before any order was looked at.
	assert.Empty(t, engine.completed)
	assert.Empty(t, engine.failures)
}

func TestWebhookDispatchesSucceededEvent(t *testing.T) {
	server, engine := newTestServer(t)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"orderId":"order-1","userId":"user-1"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signWebhook(payload))
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"order-1"}, engine.completed)
}

func TestWebhookDispatchesFailedEvent(t *testing.T) {
	server, engine := newTestServer(t)

	payload := []byte(`{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1","metadata":{"orderId":"order-1"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signWebhook(payload))
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, engine.completed)
	assert.Equal(t, []string{"order-1"}, engine.failures)
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	server, engine := newTestServer(t)

	payload := []byte(`{"id":"evt_3","type":"charge.refunded","data":{"object":{}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signWebhook(payload))
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, engine.completed)
	assert.Empty(t, engine.failures)
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRequired(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1", false))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	req.Header.Set("Authorization", bearerToken(t, "admin-1", true))
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutMapsValidationError(t *testing.T) {
	server, engine := newTestServer(t)
	engine.checkoutErr = &checkout.ValidationError{Product: "Wing Chair", Reason: "not enough stock"}

	req := httptest.NewRequest(http.MethodPost, "/api/orders/checkout",
		strings.NewReader(`{"payment_method":"card","shipping_address":{"city":"Lahore"}}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1", false))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wing Chair")
}

func TestConfirmPayment(t *testing.T) {
	server, engine := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/order-1/confirm", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1", false))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"order-1"}, engine.completed)
}
