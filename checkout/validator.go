package checkout

import (
	"context"
	"errors"
	"fmt"

	"tourmart/catalog"
	"tourmart/models"
)

// CartReader is the slice of the cart store the validator needs.
type CartReader interface {
	FindByIDs(ctx context.Context, buyerID string, itemIDs []string) ([]models.CartItem, error)
}

// Draft is a fully validated order candidate: priced lines plus the cart
// rows it will consume. The validator produces it; the writer commits it.
type Draft struct {
	BuyerID        string
	SpecialRequest string
	ItemIDs        []string
	Lines          []models.OrderLine
	Total          int64
}

// Validator re-checks selected cart rows against the live catalog. It is
// pure read + decide and is re-run in full on every attempt; a prior
// validation proves nothing once prices can move.
type Validator struct {
	carts   CartReader
	catalog catalog.Lookup
}

func NewValidator(carts CartReader, lookup catalog.Lookup) *Validator {
	return &Validator{carts: carts, catalog: lookup}
}

// Validate walks the selection in request order and short-circuits on the
// first failure, returning a *Rejection error. Cart prices are a snapshot;
// the catalog is the truth, so every line is re-read live here.
func (v *Validator) Validate(ctx context.Context, buyerID string, itemIDs []string, specialRequest string) (*Draft, error) {
	if len(itemIDs) == 0 {
		return nil, &Rejection{Code: RejectNoItems}
	}

	items, err := v.carts.FindByIDs(ctx, buyerID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve selection: %w", err)
	}

	byID := make(map[string]models.CartItem, len(items))
	for _, item := range items {
		byID[item.ItemID] = item
	}

	draft := &Draft{
		BuyerID:        buyerID,
		SpecialRequest: specialRequest,
		ItemIDs:        itemIDs,
	}

	for _, id := range itemIDs {
		item, ok := byID[id]
		if !ok {
			// A selected row is gone: consumed by an earlier checkout or
			// removed meanwhile.
			return nil, &Rejection{Code: RejectNoItems}
		}

		product, err := v.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &Rejection{Code: RejectProductNotFound, ProductID: item.ProductID}
			}
			return nil, fmt.Errorf("catalog lookup failed: %w", err)
		}
		if !product.OnSale() {
			return nil, &Rejection{Code: RejectProductUnavailable, ProductID: item.ProductID, Title: product.Title}
		}

		tier := product.Tier(item.Option)
		if tier.SalePrice != item.SalePrice {
			return nil, &Rejection{
				Code:      RejectPriceChanged,
				ProductID: item.ProductID,
				Title:     product.Title,
				OldPrice:  item.SalePrice,
				NewPrice:  tier.SalePrice,
			}
		}

		draft.Lines = append(draft.Lines, models.OrderLine{
			ProductID:     item.ProductID,
			SellerID:      item.SellerID,
			Option:        item.Option,
			Quantity:      item.Quantity,
			OriginalPrice: item.OriginalPrice,
			SalePrice:     item.SalePrice,
		})
		draft.Total += item.SalePrice * item.Quantity
	}

	return draft, nil
}

// Preview re-validates the selection without failing: each line is
// annotated instead, so the order form can show the current truth. Only
// clean lines count toward the payable totals.
func (v *Validator) Preview(ctx context.Context, buyerID string, itemIDs []string) (*models.OrderPreview, error) {
	items, err := v.carts.FindByIDs(ctx, buyerID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve selection: %w", err)
	}

	preview := &models.OrderPreview{BuyerID: buyerID, Lines: []models.PreviewLine{}}
	for _, item := range items {
		line := models.PreviewLine{
			ItemID:    item.ItemID,
			ProductID: item.ProductID,
			Option:    item.Option,
			Quantity:  item.Quantity,
			CartPrice: item.SalePrice,
		}

		product, err := v.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				line.StatusMessage = "product no longer exists"
				preview.Lines = append(preview.Lines, line)
				continue
			}
			return nil, fmt.Errorf("catalog lookup failed: %w", err)
		}

		line.Title = product.Title
		line.Available = product.OnSale()
		line.CurrentPrice = product.Tier(item.Option).SalePrice
		line.PriceChanged = line.CurrentPrice != item.SalePrice

		switch {
		case !line.Available:
			line.StatusMessage = "no longer available"
		case line.PriceChanged:
			line.StatusMessage = "price changed"
		}
		preview.Lines = append(preview.Lines, line)

		if line.Available && !line.PriceChanged {
			preview.PayablePrice += item.SalePrice * item.Quantity
			preview.PayableCount += item.Quantity
		}
	}

	return preview, nil
}
