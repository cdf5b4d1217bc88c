package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"tourmart/catalog"
	"tourmart/models"
	"tourmart/rdx"
	"tourmart/utils"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidQuantity rejects add requests with a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrProductNotOnSale rejects adds of missing or discontinued products.
	ErrProductNotOnSale = errors.New("product is not on sale")
)

const countCacheTTL = 2 * time.Minute

// Service owns the cart mutations and keeps the persisted cart total in
// step with the live rows after every one of them.
type Service struct {
	store   Store
	catalog catalog.Lookup
	sfg     singleflight.Group // Prevents cache stampede on the count key
}

func NewService(store Store, lookup catalog.Lookup) *Service {
	return &Service{store: store, catalog: lookup}
}

// AddItem captures the product's current prices and upserts the cart row:
// re-adding the same (product, option) increments quantity instead of
// duplicating.
func (s *Service) AddItem(ctx context.Context, buyerID, productID, option string, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return ErrProductNotOnSale
		}
		return fmt.Errorf("catalog lookup failed: %w", err)
	}
	if !product.OnSale() {
		return ErrProductNotOnSale
	}

	tier := product.Tier(option)
	item := models.CartItem{
		ItemID:        utils.GetUUID(),
		BuyerID:       buyerID,
		SellerID:      product.SellerID,
		ProductID:     productID,
		Option:        option,
		Quantity:      quantity,
		OriginalPrice: tier.OriginalPrice,
		SalePrice:     tier.SalePrice,
	}
	return s.mutate(ctx, buyerID, func(ctx context.Context) error {
		return s.store.AddOrIncrement(ctx, item)
	})
}

// UpdateQuantity overwrites a row's quantity. A non-positive quantity
// deletes the row; that is a removal, not an error.
func (s *Service) UpdateQuantity(ctx context.Context, buyerID, productID, option string, quantity int64) error {
	if quantity <= 0 {
		return s.mutate(ctx, buyerID, func(ctx context.Context) error {
			return s.store.Delete(ctx, buyerID, productID, option)
		})
	}

	return s.mutate(ctx, buyerID, func(ctx context.Context) error {
		return s.store.SetQuantity(ctx, buyerID, productID, option, quantity)
	})
}

func (s *Service) RemoveItem(ctx context.Context, buyerID, productID, option string) error {
	return s.mutate(ctx, buyerID, func(ctx context.Context) error {
		return s.store.Delete(ctx, buyerID, productID, option)
	})
}

// ClearCart empties the buyer's cart; clearing an already empty cart
// succeeds.
func (s *Service) ClearCart(ctx context.Context, buyerID string) error {
	return s.mutate(ctx, buyerID, func(ctx context.Context) error {
		return s.store.DeleteAll(ctx, buyerID)
	})
}

// ListForDisplay joins the buyer's rows with the live catalog. Discontinued
// products stay visible but are excluded from the totals; rows whose
// product no longer exists at all are dropped from the view.
func (s *Service) ListForDisplay(ctx context.Context, buyerID string) (*models.CartView, error) {
	items, err := s.store.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	view := &models.CartView{BuyerID: buyerID, Items: []models.CartLineView{}}
	for _, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				continue
			}
			return nil, err
		}

		line := models.CartLineView{
			ItemID:        item.ItemID,
			ProductID:     item.ProductID,
			SellerID:      item.SellerID,
			Title:         product.Title,
			Description:   product.Description,
			Option:        item.Option,
			Quantity:      item.Quantity,
			OriginalPrice: item.OriginalPrice,
			SalePrice:     item.SalePrice,
			Available:     product.OnSale(),
		}
		view.Items = append(view.Items, line)

		if line.Available {
			view.TotalPrice += item.SalePrice * item.Quantity
			view.TotalQuantity += item.Quantity
		}
	}
	view.ItemCount = len(view.Items)
	return view, nil
}

// ItemCount is a read-through against redis that never fails: any cache or
// store problem degrades to zero.
func (s *Service) ItemCount(ctx context.Context, buyerID string) int64 {
	v, err, _ := s.sfg.Do(buyerID, func() (interface{}, error) {
		if cached, err := rdx.RdxGet(countKey(buyerID)); err == nil {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		}

		n, err := s.store.Count(ctx, buyerID)
		if err != nil {
			return int64(0), err
		}
		if err := rdx.RdxSet(countKey(buyerID), strconv.FormatInt(n, 10), countCacheTTL); err != nil {
			log.Println("ItemCount cache set error:", err)
		}
		return n, nil
	})
	if err != nil {
		log.Printf("ItemCount degraded to 0: buyerId=%s err=%v", buyerID, err)
		return 0
	}
	return v.(int64)
}

// Total returns the persisted cart total cache.
func (s *Service) Total(ctx context.Context, buyerID string) (int64, error) {
	return s.store.Total(ctx, buyerID)
}

// mutate runs the write plus the total recomputation as one store unit,
// so no reader sees the new rows beside a stale total, then drops the
// stale count cache.
func (s *Service) mutate(ctx context.Context, buyerID string, op func(ctx context.Context) error) error {
	err := s.store.InUnit(ctx, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return err
		}
		return s.recomputeTotal(ctx, buyerID)
	})
	if err != nil {
		return err
	}
	if _, err := rdx.RdxDel(countKey(buyerID)); err != nil {
		log.Println("mutate cache invalidate error:", err)
	}
	return nil
}

// recomputeTotal re-derives the total from scratch over available items.
// Recompute-on-write, never increment-on-write.
func (s *Service) recomputeTotal(ctx context.Context, buyerID string) error {
	items, err := s.store.ListByBuyer(ctx, buyerID)
	if err != nil {
		return err
	}

	var total int64
	for _, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				continue
			}
			return err
		}
		if product.OnSale() {
			total += item.SalePrice * item.Quantity
		}
	}
	return s.store.SaveTotal(ctx, buyerID, total)
}

func countKey(buyerID string) string {
	return "cart:count:" + buyerID
}
