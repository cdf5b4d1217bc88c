package models

// CartLineView is one cart row joined with the live product for display.
// Unavailable lines are shown but excluded from the summary totals.
type CartLineView struct {
	ItemID        string `json:"itemId"`
	ProductID     string `json:"productId"`
	SellerID      string `json:"sellerId"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Option        string `json:"option"`
	Quantity      int64  `json:"quantity"`
	OriginalPrice int64  `json:"originalPrice"`
	SalePrice     int64  `json:"salePrice"`
	Available     bool   `json:"available"`
}

// CartView is the cart display shape. An empty cart is a valid view, not
// an error.
type CartView struct {
	BuyerID       string         `json:"buyerId"`
	Items         []CartLineView `json:"items"`
	TotalPrice    int64          `json:"totalPrice"`
	TotalQuantity int64          `json:"totalQuantity"`
	ItemCount     int            `json:"itemCount"`
}

// PreviewLine is one selected cart row re-validated against the live
// catalog for the order form. Unlike checkout itself, a preview never
// fails; problems are annotated per line instead.
type PreviewLine struct {
	ItemID        string `json:"itemId"`
	ProductID     string `json:"productId"`
	Title         string `json:"title"`
	Option        string `json:"option"`
	Quantity      int64  `json:"quantity"`
	CartPrice     int64  `json:"cartPrice"`
	CurrentPrice  int64  `json:"currentPrice"`
	Available     bool   `json:"available"`
	PriceChanged  bool   `json:"priceChanged"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// OrderPreview is the order-form read model.
type OrderPreview struct {
	BuyerID      string        `json:"buyerId"`
	Lines        []PreviewLine `json:"lines"`
	PayablePrice int64         `json:"payablePrice"`
	PayableCount int64         `json:"payableCount"`
}

// OrderDetail is an order plus its immutable lines.
type OrderDetail struct {
	Order Order       `json:"order"`
	Lines []OrderLine `json:"lines"`
}
