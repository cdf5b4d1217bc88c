package checkout

import "fmt"

// Rejection codes. One per way a checkout attempt can be refused.
const (
	RejectNoItems            = "NO_ITEMS_SELECTED"
	RejectProductNotFound    = "PRODUCT_NOT_FOUND"
	RejectProductUnavailable = "PRODUCT_UNAVAILABLE"
	RejectPriceChanged       = "PRICE_CHANGED"
)

// Rejection is the closed result type for a refused checkout. Only the
// fields that apply to its code are set: PRODUCT_NOT_FOUND carries the
// product id, PRODUCT_UNAVAILABLE the title, PRICE_CHANGED the title plus
// both prices.
type Rejection struct {
	Code      string `json:"code"`
	ProductID string `json:"productId,omitempty"`
	Title     string `json:"title,omitempty"`
	OldPrice  int64  `json:"oldPrice,omitempty"`
	NewPrice  int64  `json:"newPrice,omitempty"`
}

func (r *Rejection) Error() string {
	switch r.Code {
	case RejectProductNotFound:
		return fmt.Sprintf("checkout rejected: product %s not found", r.ProductID)
	case RejectProductUnavailable:
		return fmt.Sprintf("checkout rejected: %q is no longer available", r.Title)
	case RejectPriceChanged:
		return fmt.Sprintf("checkout rejected: price of %q changed from %d to %d", r.Title, r.OldPrice, r.NewPrice)
	default:
		return "checkout rejected: no items selected"
	}
}

// Message is the user-facing explanation for the rejection.
func (r *Rejection) Message() string {
	switch r.Code {
	case RejectProductNotFound:
		return "A selected product no longer exists"
	case RejectProductUnavailable:
		return fmt.Sprintf("%s is no longer available", r.Title)
	case RejectPriceChanged:
		return fmt.Sprintf("The price of %s changed from %d to %d; please review your cart", r.Title, r.OldPrice, r.NewPrice)
	default:
		return "No items were selected for checkout"
	}
}
