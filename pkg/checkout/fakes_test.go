package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/comforty/pkg/models"
	"github.com/example/comforty/pkg/payment"
)

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*models.Order)}
}

func (s *fakeOrderStore) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *order
	s.orders[order.ID] = &clone
	return nil
}

func (s *fakeOrderStore) FindByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, &NotFoundError{Entity: "order", ID: id}
	}
	clone := *order
	return &clone, nil
}

func (s *fakeOrderStore) SetIntentID(_ context.Context, id, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return &NotFoundError{Entity: "order", ID: id}
	}
	order.IntentID = intentID
	return nil
}

func (s *fakeOrderStore) MarkPaid(_ context.Context, id string) (*models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, false, &NotFoundError{Entity: "order", ID: id}
	}
	if order.PaymentStatus == models.PaymentPaid {
		clone := *order
		return &clone, false, nil
	}
	order.PaymentStatus = models.PaymentPaid
	order.OrderStatus = models.OrderProcessing
	order.UpdatedAt = time.Now().UTC()
	clone := *order
	return &clone, true, nil
}

func (s *fakeOrderStore) MarkFailed(_ context.Context, id string) (*models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, false, &NotFoundError{Entity: "order", ID: id}
	}
	if order.PaymentStatus != models.PaymentPending {
		clone := *order
		return &clone, false, nil
	}
	order.PaymentStatus = models.PaymentFailed
	order.UpdatedAt = time.Now().UTC()
	clone := *order
	return &clone, true, nil
}

type fakeProductStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newFakeProductStore(products ...*models.Product) *fakeProductStore {
	s := &fakeProductStore{products: make(map[string]*models.Product)}
	for _, p := range products {
		clone := *p
		s.products[p.ID] = &clone
	}
	return s
}

func (s *fakeProductStore) FindByIDs(_ context.Context, ids []string) (map[string]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := make(map[string]*models.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			clone := *p
			found[id] = &clone
		}
	}
	return found, nil
}

func (s *fakeProductStore) Deduct(_ context.Context, productID string, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return &NotFoundError{Entity: "product", ID: productID}
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.IsAvailable = p.Stock > 0
	return nil
}

func (s *fakeProductStore) stock(productID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *fakeProductStore) setPrice(productID string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID].Price = price
}

type fakeCartStore struct {
	mu     sync.Mutex
	carts  map[string]*models.Cart
	clears map[string]int
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		carts:  make(map[string]*models.Cart),
		clears: make(map[string]int),
	}
}

func (s *fakeCartStore) put(userID string, items ...models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := models.NewCart(userID)
	cart.Items = items
	s.carts[userID] = cart
}

func (s *fakeCartStore) Get(_ context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[userID]
	if !ok {
		return models.NewCart(userID), nil
	}
	clone := *cart
	clone.Items = append([]models.CartItem(nil), cart.Items...)
	return &clone, nil
}

func (s *fakeCartStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	s.clears[userID]++
	return nil
}

func (s *fakeCartStore) clearCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears[userID]
}

type fakeGateway struct {
	mu         sync.Mutex
	failCreate bool
	created    []createdIntent
}

type createdIntent struct {
	amount   int64
	currency string
	metadata map[string]string
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return nil, fmt.Errorf("provider unavailable")
	}
	g.created = append(g.created, createdIntent{amount: amount, currency: currency, metadata: metadata})
	n := len(g.created)
	return &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
	}, nil
}

func (g *fakeGateway) VerifyEvent(_ []byte, _ string) (*payment.Event, error) {
	return nil, fmt.Errorf("not used in engine tests")
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []string
	failed    []string
}

func (n *fakeNotifier) OrderConfirmed(_ context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, order.ID)
	return nil
}

func (n *fakeNotifier) PaymentFailed(_ context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, order.ID)
	return nil
}

func (n *fakeNotifier) failedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failed)
}

type fakeRecorder struct{}

func (fakeRecorder) Record(context.Context, string, string, map[string]interface{}) {}
