package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tourmart/models"
	"tourmart/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOrderStore struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	lines    map[string][]models.OrderLine
	txns     []models.Transaction
	countErr error
}

func newMemOrderStore(list ...models.Order) *memOrderStore {
	s := &memOrderStore{
		orders: map[string]*models.Order{},
		lines:  map[string][]models.OrderLine{},
	}
	for i := range list {
		order := list[i]
		s.orders[order.OrderID] = &order
	}
	return s
}

func (s *memOrderStore) OrderByID(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *memOrderStore) OrderByCode(_ context.Context, orderCode string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.OrderCode == orderCode {
			copied := *order
			return &copied, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (s *memOrderStore) LinesByOrder(_ context.Context, orderID string) ([]models.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[orderID], nil
}

func (s *memOrderStore) ListByBuyer(_ context.Context, buyerID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, order := range s.orders {
		if order.BuyerID == buyerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *memOrderStore) CountByBuyer(_ context.Context, buyerID string) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, order := range s.orders {
		if order.BuyerID == buyerID {
			n++
		}
	}
	return n, nil
}

func (s *memOrderStore) UpdateStatus(_ context.Context, orderID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.Status != from {
		return ErrStatusConflict
	}
	order.Status = to
	return nil
}

func (s *memOrderStore) InsertTransaction(_ context.Context, txn models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, txn)
	return nil
}

func (s *memOrderStore) TransactionByKey(_ context.Context, idempotencyKey string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txns {
		if s.txns[i].IdempotencyKey == idempotencyKey {
			copied := s.txns[i]
			return &copied, nil
		}
	}
	return nil, ErrTxnNotFound
}

func (s *memOrderStore) status(orderID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID].Status
}

type fakeGateway struct {
	mu      sync.Mutex
	decline bool
	charges int
}

func (g *fakeGateway) Charge(_ context.Context, _ payments.ChargeRequest) (*payments.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges++
	if g.decline {
		return &payments.ChargeResult{Approved: false, DeclineReason: "insufficient funds"}, nil
	}
	return &payments.ChargeResult{Approved: true, Reference: "PAY000000000042"}, nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) Release(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

func pendingOrder(orderID, buyerID string, total int64) models.Order {
	return models.Order{
		OrderID:    orderID,
		OrderCode:  "TOUR-20260901-001",
		BuyerID:    buyerID,
		TotalPrice: total,
		Status:     models.OrderPending,
	}
}

func TestPaySuccess(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	gateway := &fakeGateway{}
	svc := NewService(store, gateway, newMemLocker())

	txn, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "")
	require.NoError(t, err)
	assert.Equal(t, "success", txn.Status)
	assert.Equal(t, "PAY000000000042", txn.Reference)
	assert.Equal(t, models.OrderPaid, store.status("o1"))
	assert.Equal(t, 1, gateway.charges)
}

func TestPayAmountMismatchLeavesPending(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	gateway := &fakeGateway{}
	svc := NewService(store, gateway, newMemLocker())

	_, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4400, "")
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, models.OrderPending, store.status("o1"))
	assert.Zero(t, gateway.charges)
	assert.Empty(t, store.txns)
}

func TestPayDeclineIsRetryable(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	gateway := &fakeGateway{decline: true}
	svc := NewService(store, gateway, newMemLocker())

	_, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "")
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, models.OrderPending, store.status("o1"))
	require.Len(t, store.txns, 1)
	assert.Equal(t, "declined", store.txns[0].Status)

	gateway.decline = false
	txn, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "")
	require.NoError(t, err)
	assert.Equal(t, "success", txn.Status)
	assert.Equal(t, models.OrderPaid, store.status("o1"))
}

func TestPayExactlyOnce(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	svc := NewService(store, &fakeGateway{}, newMemLocker())

	_, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "")
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, models.OrderPaid, store.status("o1"))
}

func TestPayCancelledOrder(t *testing.T) {
	order := pendingOrder("o1", "buyer-1", 4500)
	order.Status = models.OrderCancelled
	svc := NewService(newMemOrderStore(order), &fakeGateway{}, newMemLocker())

	_, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestPayForeignOrderLooksMissing(t *testing.T) {
	svc := NewService(newMemOrderStore(pendingOrder("o1", "buyer-1", 4500)), &fakeGateway{}, newMemLocker())

	_, err := svc.Pay(context.Background(), "o1", "buyer-2", "card", 4500, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPayBusyWhenLockHeld(t *testing.T) {
	locker := newMemLocker()
	acquired, err := locker.Acquire(context.Background(), "order_pay:buyer-1", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	svc := NewService(newMemOrderStore(pendingOrder("o1", "buyer-1", 4500)), &fakeGateway{}, locker)

	_, err = svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "")
	assert.ErrorIs(t, err, ErrPaymentBusy)
}

func TestPayIdempotentReplay(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	gateway := &fakeGateway{}
	svc := NewService(store, gateway, newMemLocker())

	first, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "key-1")
	require.NoError(t, err)

	second, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, gateway.charges)
	assert.Len(t, store.txns, 1)
}

func TestPayDeclineDoesNotConsumeIdempotencyKey(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	gateway := &fakeGateway{decline: true}
	svc := NewService(store, gateway, newMemLocker())

	_, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "key-1")
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	require.Len(t, store.txns, 1)
	assert.Empty(t, store.txns[0].IdempotencyKey)

	// The same key must still be able to complete a real charge.
	gateway.decline = false
	txn, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "success", txn.Status)
	assert.Equal(t, models.OrderPaid, store.status("o1"))
	assert.Equal(t, 2, gateway.charges)
}

func TestPayReplayRequiresMatchingOrderAndBuyer(t *testing.T) {
	store := newMemOrderStore(
		pendingOrder("o1", "buyer-1", 4500),
		pendingOrder("o2", "buyer-1", 2000),
		pendingOrder("o3", "buyer-2", 900),
	)
	gateway := &fakeGateway{}
	svc := NewService(store, gateway, newMemLocker())

	_, err := svc.Pay(context.Background(), "o1", "buyer-1", "card", 4500, "key-1")
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), "o2", "buyer-1", "card", 2000, "key-1")
	assert.ErrorIs(t, err, ErrKeyConflict)
	assert.Equal(t, models.OrderPending, store.status("o2"))

	_, err = svc.Pay(context.Background(), "o3", "buyer-2", "card", 900, "key-1")
	assert.ErrorIs(t, err, ErrKeyConflict)
	assert.Equal(t, 1, gateway.charges)
}

func TestCancelPendingOrder(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	svc := NewService(store, &fakeGateway{}, newMemLocker())

	order, err := svc.Cancel(context.Background(), "o1", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, order.Status)
	assert.Equal(t, models.OrderCancelled, store.status("o1"))
}

func TestCancelTwice(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	svc := NewService(store, &fakeGateway{}, newMemLocker())

	_, err := svc.Cancel(context.Background(), "o1", "buyer-1")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), "o1", "buyer-1")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCancelPaidOrder(t *testing.T) {
	order := pendingOrder("o1", "buyer-1", 4500)
	order.Status = models.OrderPaid
	svc := NewService(newMemOrderStore(order), &fakeGateway{}, newMemLocker())

	_, err := svc.Cancel(context.Background(), "o1", "buyer-1")
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestDetailOwnership(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	store.lines["o1"] = []models.OrderLine{{LineID: "l1", OrderID: "o1", ProductID: "p1", Quantity: 2, SalePrice: 1000}}
	svc := NewService(store, &fakeGateway{}, newMemLocker())

	detail, err := svc.Detail(context.Background(), "o1", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", detail.Order.OrderID)
	assert.Len(t, detail.Lines, 1)

	_, err = svc.Detail(context.Background(), "o1", "buyer-2")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDetailByCodeOwnership(t *testing.T) {
	svc := NewService(newMemOrderStore(pendingOrder("o1", "buyer-1", 4500)), &fakeGateway{}, newMemLocker())

	detail, err := svc.DetailByCode(context.Background(), "TOUR-20260901-001", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", detail.Order.OrderID)

	_, err = svc.DetailByCode(context.Background(), "TOUR-20260901-001", "buyer-2")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestHistoryListsBuyerOrders(t *testing.T) {
	store := newMemOrderStore(
		pendingOrder("o1", "buyer-1", 4500),
		pendingOrder("o2", "buyer-1", 2000),
		pendingOrder("o3", "buyer-2", 900),
	)
	svc := NewService(store, &fakeGateway{}, newMemLocker())

	history, err := svc.History(context.Background(), "buyer-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCountDegradesToZero(t *testing.T) {
	store := newMemOrderStore(pendingOrder("o1", "buyer-1", 4500))
	store.countErr = errors.New("connection reset")
	svc := NewService(store, &fakeGateway{}, newMemLocker())

	assert.Zero(t, svc.Count(context.Background(), "buyer-1"))
}
