package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourmart/db"
	"tourmart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrTxnNotFound   = errors.New("transaction not found")
	// ErrStatusConflict means the conditional status update matched no
	// row: the order moved to another state concurrently.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Store defines the order persistence operations the lifecycle service
// needs.
type Store interface {
	OrderByID(ctx context.Context, orderID string) (*models.Order, error)
	OrderByCode(ctx context.Context, orderCode string) (*models.Order, error)
	LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	CountByBuyer(ctx context.Context, buyerID string) (int64, error)
	// UpdateStatus flips the order from one status to another and returns
	// ErrStatusConflict if the order was not in the expected state.
	UpdateStatus(ctx context.Context, orderID, from, to string) error
	InsertTransaction(ctx context.Context, txn models.Transaction) error
	TransactionByKey(ctx context.Context, idempotencyKey string) (*models.Transaction, error)
}

type mongoStore struct {
	orders *mongo.Collection
	lines  *mongo.Collection
	txns   *mongo.Collection
}

func NewMongoStore() Store {
	return &mongoStore{
		orders: db.OrdersCollection,
		lines:  db.OrderLinesCollection,
		txns:   db.TransactionsCollection,
	}
}

func (m *mongoStore) OrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	return m.findOrder(ctx, bson.M{"orderid": orderID})
}

func (m *mongoStore) OrderByCode(ctx context.Context, orderCode string) (*models.Order, error) {
	return m.findOrder(ctx, bson.M{"ordercode": orderCode})
}

func (m *mongoStore) findOrder(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := m.orders.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *mongoStore) LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	cursor, err := m.lines.Find(ctx, bson.M{"orderid": orderID})
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer cursor.Close(ctx)

	var lines []models.OrderLine
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("failed to read order lines: %w", err)
	}
	return lines, nil
}

func (m *mongoStore) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	cursor, err := m.orders.Find(ctx, bson.M{"buyerid": buyerID},
		options.Find().SetSort(bson.M{"createdat": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var list []models.Order
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return list, nil
}

func (m *mongoStore) CountByBuyer(ctx context.Context, buyerID string) (int64, error) {
	n, err := m.orders.CountDocuments(ctx, bson.M{"buyerid": buyerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

func (m *mongoStore) UpdateStatus(ctx context.Context, orderID, from, to string) error {
	res, err := m.orders.UpdateOne(ctx,
		bson.M{"orderid": orderID, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedat": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (m *mongoStore) InsertTransaction(ctx context.Context, txn models.Transaction) error {
	if _, err := m.txns.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (m *mongoStore) TransactionByKey(ctx context.Context, idempotencyKey string) (*models.Transaction, error) {
	var txn models.Transaction
	err := m.txns.FindOne(ctx, bson.M{"idempotency_key": idempotencyKey}).Decode(&txn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTxnNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}
