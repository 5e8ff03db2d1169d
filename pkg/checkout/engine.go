package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/comforty/pkg/models"
	"github.com/example/comforty/pkg/payment"
)

// OrderStore is the durable order record. MarkPaid and MarkFailed are
// conditional updates: they must check and set the payment status in a
// single atomic step with respect to concurrent callers.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	SetIntentID(ctx context.Context, id, intentID string) error

	// MarkPaid transitions payment status to paid and order status to
	// processing unless the order is already paid. It returns the order and
	// whether this caller won the transition. An already-paid order returns
	// claimed=false with no error.
	MarkPaid(ctx context.Context, id string) (*models.Order, bool, error)

	// MarkFailed transitions payment status from pending to failed. A paid
	// order is never regressed; claimed=false is returned instead.
	MarkFailed(ctx context.Context, id string) (*models.Order, bool, error)
}

// ProductStore exposes the catalog fields checkout reads and the inventory
// fields it owns.
type ProductStore interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)

	// Deduct decrements stock and recomputes availability. It must refuse to
	// drive stock negative, returning ErrInsufficientStock.
	Deduct(ctx context.Context, productID string, quantity int64) error
}

// CartStore holds the per-user cart. The engine reads it once at checkout
// and clears it once on payment success.
type CartStore interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// Notifier delivers order emails. Calls are fire-and-forget: a notification
// failure never fails the reconciliation operation that triggered it.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order) error
	PaymentFailed(ctx context.Context, order *models.Order) error
}

// Recorder appends audit entries. Implementations must not block the caller
// on persistence.
type Recorder interface {
	Record(ctx context.Context, action, entityID string, data map[string]interface{})
}

type CheckoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   models.PaymentMethod   `json:"payment_method"`
}

type CheckoutResult struct {
	OrderID       string               `json:"order_id"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	ClientSecret  string               `json:"client_secret,omitempty"`
	Message       string               `json:"message"`
}

// Engine orchestrates order creation, payment collection and the
// reconciliation of orders, inventory and carts once a payment outcome is
// known. Card payment completion may be reported twice, by the client
// confirmation call and by the provider webhook; the engine guarantees that
// stock deduction and cart clearing happen exactly once per order.
type Engine struct {
	orders   OrderStore
	products ProductStore
	carts    CartStore
	gateway  payment.Gateway
	notifier Notifier
	audit    Recorder
	logger   *zap.Logger
	currency string
}

func NewEngine(
	orders OrderStore,
	products ProductStore,
	carts CartStore,
	gateway payment.Gateway,
	notifier Notifier,
	audit Recorder,
	logger *zap.Logger,
	currency string,
) *Engine {
	return &Engine{
		orders:   orders,
		products: products,
		carts:    carts,
		gateway:  gateway,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		currency: currency,
	}
}

// InitiateCheckout turns the user's cart into a pending order. COD orders
// are finalized immediately; card orders get a payment intent and wait for a
// completion signal.
func (e *Engine) InitiateCheckout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	if !req.PaymentMethod.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid payment method %q", req.PaymentMethod)}
	}

	cart, err := e.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, &ValidationError{Reason: ErrEmptyCart.Error()}
	}

	productIDs := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		productIDs[i] = item.ProductID
	}
	products, err := e.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	// Validate every line and capture prices before anything is written.
	var totalPrice float64
	items := make([]models.OrderItem, len(cart.Items))
	for i, line := range cart.Items {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, &ValidationError{Product: line.ProductID, Reason: "product not found"}
		}
		if !product.IsAvailable {
			return nil, &ValidationError{Product: product.Name, Reason: "product is not available"}
		}
		if line.Quantity > product.Stock {
			return nil, &ValidationError{Product: product.Name, Reason: "not enough stock"}
		}

		items[i] = models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		}
		totalPrice += items[i].Subtotal()
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentPending,
		OrderStatus:     models.OrderPending,
		TotalPrice:      totalPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if req.PaymentMethod == models.PaymentMethodCOD {
		// No later gateway signal exists for COD, so the order is finalized
		// in the same operation: stock deducted, cart cleared. Payment stays
		// pending until delivery.
		order.OrderStatus = models.OrderProcessing
		if err := e.orders.Create(ctx, order); err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		if err := e.deductStock(ctx, order); err != nil {
			return nil, err
		}
		if err := e.carts.Clear(ctx, userID); err != nil {
			e.logger.Error("failed to clear cart after cod checkout",
				zap.String("order_id", order.ID), zap.Error(err))
		}

		e.audit.Record(ctx, "checkout_cod", order.ID, map[string]interface{}{
			"user_id":     userID,
			"total_price": totalPrice,
		})
		e.notify(order, e.notifier.OrderConfirmed)

		return &CheckoutResult{
			OrderID:       order.ID,
			PaymentMethod: models.PaymentMethodCOD,
			Message:       "Order placed successfully",
		}, nil
	}

	if err := e.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	intent, err := e.gateway.CreateIntent(ctx, order.TotalMinorUnits(), e.currency, map[string]string{
		"orderId": order.ID,
		"userId":  userID,
	})
	if err != nil {
		// The pending order is deliberately kept: a retry or manual
		// reconciliation can still pick it up.
		e.logger.Error("payment intent creation failed",
			zap.String("order_id", order.ID), zap.Error(err))
		return nil, &GatewayError{Op: "create intent", Err: err}
	}

	if err := e.orders.SetIntentID(ctx, order.ID, intent.ID); err != nil {
		e.logger.Error("failed to store intent id",
			zap.String("order_id", order.ID), zap.String("intent_id", intent.ID), zap.Error(err))
	}

	e.audit.Record(ctx, "checkout_card", order.ID, map[string]interface{}{
		"user_id":     userID,
		"total_price": totalPrice,
		"intent_id":   intent.ID,
	})

	return &CheckoutResult{
		OrderID:       order.ID,
		PaymentMethod: models.PaymentMethodCard,
		ClientSecret:  intent.ClientSecret,
		Message:       "Payment intent created",
	}, nil
}

// CompleteCardPayment finalizes a card order after the provider reported
// success. It is invoked from both completion channels and is idempotent:
// only the caller that wins the pending-to-paid transition deducts stock and
// clears the cart; everyone else observes the already-paid order.
func (e *Engine) CompleteCardPayment(ctx context.Context, orderID string) (*models.Order, error) {
	order, claimed, err := e.orders.MarkPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		e.logger.Info("payment already reconciled", zap.String("order_id", orderID))
		return order, nil
	}

	if err := e.deductStock(ctx, order); err != nil {
		// The paid claim is not rolled back; the shortage is surfaced for
		// operator attention instead.
		return nil, err
	}
	if err := e.carts.Clear(ctx, order.UserID); err != nil {
		e.logger.Error("failed to clear cart after payment",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	e.audit.Record(ctx, "payment_succeeded", order.ID, map[string]interface{}{
		"user_id":     order.UserID,
		"total_price": order.TotalPrice,
	})
	e.notify(order, e.notifier.OrderConfirmed)

	return order, nil
}

// ReportPaymentFailure records a provider-reported failure. Nothing was
// committed on the pending path, so there is nothing to roll back; the order
// stays retryable and the user is told. A paid order is never regressed.
func (e *Engine) ReportPaymentFailure(ctx context.Context, orderID string) error {
	order, claimed, err := e.orders.MarkFailed(ctx, orderID)
	if err != nil {
		return err
	}
	if !claimed {
		e.logger.Info("ignoring failure report for settled order", zap.String("order_id", orderID))
		return nil
	}

	e.audit.Record(ctx, "payment_failed", order.ID, map[string]interface{}{
		"user_id": order.UserID,
	})
	e.notify(order, e.notifier.PaymentFailed)
	return nil
}

func (e *Engine) deductStock(ctx context.Context, order *models.Order) error {
	for _, item := range order.Items {
		if err := e.products.Deduct(ctx, item.ProductID, item.Quantity); err != nil {
			e.logger.Error("stock deduction failed",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Int64("quantity", item.Quantity),
				zap.Error(err))
			return fmt.Errorf("deduct stock for %s: %w", item.ProductName, err)
		}
	}
	return nil
}

func (e *Engine) notify(order *models.Order, send func(context.Context, *models.Order) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(ctx, order); err != nil {
			e.logger.Warn("notification failed",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}()
}
