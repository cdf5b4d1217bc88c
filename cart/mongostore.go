package cart

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

type mongoStore struct {
	client *mongo.Client
	items  *mongo.Collection
	carts  *mongo.Collection
}

func NewMongoStore() Store {
	return &mongoStore{
		client: db.Client,
		items:  db.CartItemsCollection,
		carts:  db.CartsCollection,
	}
}

func (m *mongoStore) InUnit(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *mongoStore) AddOrIncrement(ctx context.Context, item models.CartItem) error {
	filter := bson.M{
		"buyerid":   item.BuyerID,
		"productid": item.ProductID,
		"option":    item.Option,
	}
	update := bson.M{
		"$inc": bson.M{"quantity": item.Quantity},
		"$set": bson.M{"updatedat": time.Now()},
		"$setOnInsert": bson.M{
			"itemid":        item.ItemID,
			"sellerid":      item.SellerID,
			"originalprice": item.OriginalPrice,
			"saleprice":     item.SalePrice,
			"addedat":       time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.items.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (m *mongoStore) SetQuantity(ctx context.Context, buyerID, productID, option string, quantity int64) error {
	filter := bson.M{"buyerid": buyerID, "productid": productID, "option": option}
	update := bson.M{"$set": bson.M{"quantity": quantity, "updatedat": time.Now()}}

	result, err := m.items.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m *mongoStore) Delete(ctx context.Context, buyerID, productID, option string) error {
	_, err := m.items.DeleteOne(ctx, bson.M{"buyerid": buyerID, "productid": productID, "option": option})
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (m *mongoStore) DeleteAll(ctx context.Context, buyerID string) error {
	if _, err := m.items.DeleteMany(ctx, bson.M{"buyerid": buyerID}); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (m *mongoStore) ListByBuyer(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	cursor, err := m.items.Find(ctx, bson.M{"buyerid": buyerID},
		options.Find().SetSort(bson.M{"addedat": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}
	return items, nil
}

func (m *mongoStore) FindByIDs(ctx context.Context, buyerID string, itemIDs []string) ([]models.CartItem, error) {
	cursor, err := m.items.Find(ctx, bson.M{
		"buyerid": buyerID,
		"itemid":  bson.M{"$in": itemIDs},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find cart items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}
	return items, nil
}

func (m *mongoStore) Count(ctx context.Context, buyerID string) (int64, error) {
	n, err := m.items.CountDocuments(ctx, bson.M{"buyerid": buyerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return n, nil
}

func (m *mongoStore) SaveTotal(ctx context.Context, buyerID string, total int64) error {
	filter := bson.M{"buyerid": buyerID}
	update := bson.M{"$set": bson.M{"totalprice": total, "updatedat": time.Now()}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.carts.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save cart total: %w", err)
	}
	return nil
}

func (m *mongoStore) Total(ctx context.Context, buyerID string) (int64, error) {
	var cart models.Cart
	err := m.carts.FindOne(ctx, bson.M{"buyerid": buyerID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get cart total: %w", err)
	}
	return cart.TotalPrice, nil
}
