package checkout

import (
	"context"
	"errors"
	"time"

	"tourmart/models"
	"tourmart/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

// Receipt is what a successful checkout hands back to the buyer.
type Receipt struct {
	OrderID    string `json:"orderId"`
	OrderCode  string `json:"orderCode"`
	TotalPrice int64  `json:"totalPrice"`
}

// Service converts a validated selection of cart rows into a committed
// order. Validation and commit are separate steps; only the commit writes.
type Service struct {
	validator *Validator
	writer    Writer
}

func NewService(validator *Validator, writer Writer) *Service {
	return &Service{validator: validator, writer: writer}
}

// CreateOrder validates the selection against the live catalog and, if
// clean, commits the order atomically. Failures come back as *Rejection
// for business refusals or a plain error for infrastructure faults.
func (s *Service) CreateOrder(ctx context.Context, buyerID string, itemIDs []string, specialRequest string) (*Receipt, error) {
	draft, err := s.validator.Validate(ctx, buyerID, itemIDs, specialRequest)
	if err != nil {
		return nil, err
	}

	// One retry on an order-code collision; the unique index turns the
	// race into a duplicate-key error rather than a double-issued code.
	for attempt := 0; attempt < 2; attempt++ {
		now := time.Now()
		code, err := s.writer.NextOrderCode(ctx, now)
		if err != nil {
			return nil, err
		}

		order := models.Order{
			OrderID:        utils.GetUUID(),
			OrderCode:      code,
			BuyerID:        buyerID,
			TotalPrice:     draft.Total,
			SpecialRequest: draft.SpecialRequest,
			Status:         models.OrderPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		lines := make([]models.OrderLine, len(draft.Lines))
		for i, line := range draft.Lines {
			line.LineID = utils.GetUUID()
			line.OrderID = order.OrderID
			line.CreatedAt = now
			lines[i] = line
		}

		err = s.writer.Commit(ctx, order, lines, draft.ItemIDs)
		if err == nil {
			return &Receipt{OrderID: order.OrderID, OrderCode: order.OrderCode, TotalPrice: order.TotalPrice}, nil
		}
		if errors.Is(err, ErrItemsConsumed) {
			// Someone else consumed part of the selection mid-flight.
			return nil, &Rejection{Code: RejectNoItems}
		}
		if mongo.IsDuplicateKeyError(err) && attempt == 0 {
			continue
		}
		return nil, err
	}
	return nil, errors.New("order code collision persisted after retry")
}

// PreviewOrder builds the order-form read model for the selection.
func (s *Service) PreviewOrder(ctx context.Context, buyerID string, itemIDs []string) (*models.OrderPreview, error) {
	return s.validator.Preview(ctx, buyerID, itemIDs)
}
