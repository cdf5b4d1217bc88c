package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tourmart/models"
	"tourmart/payments"
	"tourmart/rdx"
	"tourmart/utils"
)

var (
	// ErrAmountMismatch is a caller error: the supplied amount does not
	// equal the order total.
	ErrAmountMismatch   = errors.New("amount does not match order total")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrAlreadyCancelled = errors.New("order already cancelled")
	// ErrNotCancellable covers cancel attempts on a paid order.
	ErrNotCancellable = errors.New("order can no longer be cancelled")
	// ErrPaymentDeclined is the gateway's negative verdict; the order
	// stays PENDING and the caller may retry.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentBusy means another payment attempt holds the buyer lock.
	ErrPaymentBusy = errors.New("payment already in progress")
	// ErrKeyConflict means the idempotency key was already used for a
	// different order or by a different buyer.
	ErrKeyConflict = errors.New("idempotency key already used")
)

// lockTTL defines the duration to hold the per-buyer payment lock.
const lockTTL = 5 * time.Second

// Service is the order lifecycle manager: PENDING -> PAID via pay,
// PENDING -> CANCELLED via cancel, plus ownership-checked reads.
type Service struct {
	store   Store
	gateway payments.Gateway
	locks   rdx.Locker
}

func NewService(store Store, gateway payments.Gateway, locks rdx.Locker) *Service {
	return &Service{store: store, gateway: gateway, locks: locks}
}

// Pay charges the order total through the external gateway and flips the
// order to PAID exactly once. The amount must equal the order total; a
// gateway decline leaves the order PENDING and retryable.
func (s *Service) Pay(ctx context.Context, orderID, buyerID, method string, amount int64, idempotencyKey string) (*models.Transaction, error) {
	// Only successful transactions carry the key, so a replay hit is always
	// a completed charge; a declined attempt leaves the key free for retry.
	if idempotencyKey != "" {
		if existing, err := s.store.TransactionByKey(ctx, idempotencyKey); err == nil {
			if existing.BuyerID != buyerID || existing.OrderID != orderID {
				return nil, ErrKeyConflict
			}
			log.Printf("Pay replay detected: key=%s orderId=%s", idempotencyKey, existing.OrderID)
			return existing, nil
		} else if !errors.Is(err, ErrTxnNotFound) {
			return nil, err
		}
	}

	acquired, err := s.locks.Acquire(ctx, "order_pay:"+buyerID, lockTTL)
	if err != nil || !acquired {
		return nil, ErrPaymentBusy
	}
	defer s.locks.Release(ctx, "order_pay:"+buyerID)

	order, err := s.ownedOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderPaid:
		return nil, ErrAlreadyPaid
	case models.OrderCancelled:
		return nil, ErrAlreadyCancelled
	}
	if amount != order.TotalPrice {
		return nil, ErrAmountMismatch
	}

	result, err := s.gateway.Charge(ctx, payments.ChargeRequest{
		OrderID:   order.OrderID,
		OrderCode: order.OrderCode,
		BuyerID:   buyerID,
		Method:    method,
		Amount:    amount,
	})
	if err != nil {
		return nil, fmt.Errorf("payment gateway call failed: %w", err)
	}

	now := time.Now()
	txn := models.Transaction{
		ID:             utils.GetUUID(),
		OrderID:        order.OrderID,
		BuyerID:        buyerID,
		Method:         method,
		Amount:         amount,
		Reference:      result.Reference,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if !result.Approved {
		txn.Status = "declined"
		txn.IdempotencyKey = ""
		if err := s.store.InsertTransaction(ctx, txn); err != nil {
			log.Printf("Pay: failed to record declined transaction: orderId=%s err=%v", orderID, err)
		}
		return nil, ErrPaymentDeclined
	}

	if err := s.store.UpdateStatus(ctx, orderID, models.OrderPending, models.OrderPaid); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// Lost a race; re-read to report the actual state.
			return nil, s.terminalStateError(ctx, orderID, buyerID)
		}
		return nil, err
	}

	txn.Status = "success"
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		log.Printf("Pay: failed to record transaction: orderId=%s err=%v", orderID, err)
	}
	return &txn, nil
}

// Cancel moves a PENDING order to CANCELLED. Cancelling twice fails with
// ErrAlreadyCancelled; a paid order cannot be cancelled here.
func (s *Service) Cancel(ctx context.Context, orderID, buyerID string) (*models.Order, error) {
	order, err := s.ownedOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderCancelled:
		return nil, ErrAlreadyCancelled
	case models.OrderPaid:
		return nil, ErrNotCancellable
	}

	if err := s.store.UpdateStatus(ctx, orderID, models.OrderPending, models.OrderCancelled); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, s.terminalStateError(ctx, orderID, buyerID)
		}
		return nil, err
	}

	order.Status = models.OrderCancelled
	return order, nil
}

// Detail returns the order plus its lines, ownership-checked.
func (s *Service) Detail(ctx context.Context, orderID, buyerID string) (*models.OrderDetail, error) {
	order, err := s.ownedOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	return s.detailOf(ctx, order)
}

// DetailByCode resolves an order by its human-readable code.
func (s *Service) DetailByCode(ctx context.Context, orderCode, buyerID string) (*models.OrderDetail, error) {
	order, err := s.store.OrderByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		// Reported as not-found so other buyers' orders stay invisible.
		return nil, ErrOrderNotFound
	}
	return s.detailOf(ctx, order)
}

// History lists the buyer's orders newest-first, each with its lines.
func (s *Service) History(ctx context.Context, buyerID string) ([]models.OrderDetail, error) {
	list, err := s.store.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	details := make([]models.OrderDetail, 0, len(list))
	for _, order := range list {
		lines, err := s.store.LinesByOrder(ctx, order.OrderID)
		if err != nil {
			return nil, err
		}
		details = append(details, models.OrderDetail{Order: order, Lines: lines})
	}
	return details, nil
}

// Count returns the buyer's order count, degrading to zero on failure.
func (s *Service) Count(ctx context.Context, buyerID string) int64 {
	n, err := s.store.CountByBuyer(ctx, buyerID)
	if err != nil {
		log.Printf("Count degraded to 0: buyerId=%s err=%v", buyerID, err)
		return 0
	}
	return n
}

func (s *Service) ownedOrder(ctx context.Context, orderID, buyerID string) (*models.Order, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) detailOf(ctx context.Context, order *models.Order) (*models.OrderDetail, error) {
	lines, err := s.store.LinesByOrder(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	return &models.OrderDetail{Order: *order, Lines: lines}, nil
}

func (s *Service) terminalStateError(ctx context.Context, orderID, buyerID string) error {
	order, err := s.ownedOrder(ctx, orderID, buyerID)
	if err != nil {
		return err
	}
	switch order.Status {
	case models.OrderPaid:
		return ErrAlreadyPaid
	case models.OrderCancelled:
		return ErrAlreadyCancelled
	}
	return ErrStatusConflict
}
