package checkout

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

// ErrItemsConsumed signals that some selected cart rows vanished between
// validation and commit, typically because a concurrent checkout took them.
var ErrItemsConsumed = errors.New("selected cart items no longer exist")

const orderCodePrefix = "TOUR"

// Writer commits a validated draft. The commit is all-or-nothing: the
// order, all its lines, the cart deletions, and the cart-total reset are
// either all visible or none of them are.
type Writer interface {
	NextOrderCode(ctx context.Context, now time.Time) (string, error)
	Commit(ctx context.Context, order models.Order, lines []models.OrderLine, itemIDs []string) error
}

type mongoWriter struct {
	client *mongo.Client
}

func NewMongoWriter() Writer {
	return &mongoWriter{client: db.Client}
}

// NextOrderCode issues TOUR-YYYYMMDD-NNN from a per-day counter document.
// The counter is incremented atomically, so concurrent checkouts get
// distinct sequence numbers; the unique ordercode index is the backstop.
func (w *mongoWriter) NextOrderCode(ctx context.Context, now time.Time) (string, error) {
	dateStr := now.Format("20060102")

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := db.CountersCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": "ordercode:" + dateStr},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return "", fmt.Errorf("failed to advance order sequence: %w", err)
	}

	return fmt.Sprintf("%s-%s-%03d", orderCodePrefix, dateStr, counter.Seq), nil
}

func (w *mongoWriter) Commit(ctx context.Context, order models.Order, lines []models.OrderLine, itemIDs []string) error {
	session, err := w.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := db.OrdersCollection.InsertOne(sc, order); err != nil {
			return nil, fmt.Errorf("failed to insert order: %w", err)
		}

		docs := make([]interface{}, 0, len(lines))
		for _, line := range lines {
			docs = append(docs, line)
		}
		if _, err := db.OrderLinesCollection.InsertMany(sc, docs); err != nil {
			return nil, fmt.Errorf("failed to insert order lines: %w", err)
		}

		res, err := db.CartItemsCollection.DeleteMany(sc, bson.M{
			"buyerid": order.BuyerID,
			"itemid":  bson.M{"$in": itemIDs},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to consume cart items: %w", err)
		}
		if res.DeletedCount != int64(len(itemIDs)) {
			// A concurrent checkout got here first; abort the whole unit.
			return nil, ErrItemsConsumed
		}

		if err := w.resetCartTotal(sc, order.BuyerID); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// resetCartTotal re-derives the buyer's cart total from the rows that
// survive the commit, inside the same transaction, so no reader sees the
// consumed items still counted.
func (w *mongoWriter) resetCartTotal(sc mongo.SessionContext, buyerID string) error {
	cursor, err := db.CartItemsCollection.Find(sc, bson.M{"buyerid": buyerID})
	if err != nil {
		return fmt.Errorf("failed to list remaining cart items: %w", err)
	}
	defer cursor.Close(sc)

	var items []models.CartItem
	if err := cursor.All(sc, &items); err != nil {
		return fmt.Errorf("failed to read remaining cart items: %w", err)
	}

	var total int64
	for _, item := range items {
		var product models.Product
		err := db.ProductsCollection.FindOne(sc, bson.M{"productid": item.ProductID}).Decode(&product)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return fmt.Errorf("failed to read product: %w", err)
		}
		if product.OnSale() {
			total += item.SalePrice * item.Quantity
		}
	}

	_, err = db.CartsCollection.UpdateOne(sc,
		bson.M{"buyerid": buyerID},
		bson.M{"$set": bson.M{"totalprice": total, "updatedat": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to reset cart total: %w", err)
	}
	return nil
}
