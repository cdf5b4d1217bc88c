package catalog

import (
	"context"
	"errors"
	"fmt"

	"tourmart/db"
	"tourmart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrProductNotFound marks absence of a product, which is a valid catalog
// outcome and distinct from an I/O failure.
var ErrProductNotFound = errors.New("product not found")

// Lookup is the read-only view of the catalog this engine consumes.
type Lookup interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
}

type MongoCatalog struct {
	col *mongo.Collection
}

func NewMongoCatalog() *MongoCatalog {
	return &MongoCatalog{col: db.ProductsCollection}
}

func (c *MongoCatalog) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := c.col.FindOne(ctx, bson.M{"productid": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// ListOnSale returns on-sale products, newest first.
func (c *MongoCatalog) ListOnSale(ctx context.Context, limit, skip int64) ([]models.Product, error) {
	cursor, err := c.col.Find(ctx, bson.M{"status": models.ProductOnSale}, listOptions(limit, skip))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	if len(products) == 0 {
		products = []models.Product{}
	}
	return products, nil
}
