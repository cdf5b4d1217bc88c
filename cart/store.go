package cart

import (
	"context"
	"errors"

	"tourmart/models"
)

var (
	ErrItemNotFound = errors.New("item not found in cart")
)

// Store defines the cart persistence operations the service needs.
// Consumers define this interface, not the MongoDB implementation.
type Store interface {
	// InUnit runs fn as one unit of work: either every write inside it is
	// visible or none is. The service wraps each mutation and its total
	// recomputation in one unit so no reader sees the new rows next to a
	// stale total.
	InUnit(ctx context.Context, fn func(ctx context.Context) error) error
	// AddOrIncrement upserts on (buyer, product, option): an existing row
	// gets its quantity incremented, otherwise the given item is inserted
	// with its captured price snapshot.
	AddOrIncrement(ctx context.Context, item models.CartItem) error
	// SetQuantity overwrites the quantity of an existing row and returns
	// ErrItemNotFound when there is no matching row.
	SetQuantity(ctx context.Context, buyerID, productID, option string, quantity int64) error
	// Delete removes one row; deleting an absent row is not an error.
	Delete(ctx context.Context, buyerID, productID, option string) error
	// DeleteAll removes every row for the buyer.
	DeleteAll(ctx context.Context, buyerID string) error
	ListByBuyer(ctx context.Context, buyerID string) ([]models.CartItem, error)
	// FindByIDs returns the buyer's rows matching the given item ids;
	// ids that no longer resolve are simply absent from the result.
	FindByIDs(ctx context.Context, buyerID string, itemIDs []string) ([]models.CartItem, error)
	Count(ctx context.Context, buyerID string) (int64, error)
	// SaveTotal persists the recomputed cart total for the buyer.
	SaveTotal(ctx context.Context, buyerID string, total int64) error
	Total(ctx context.Context, buyerID string) (int64, error)
}
