package models

import "time"

// Product status values. Discontinued products stay visible in carts but
// cannot be checked out.
const (
	ProductOnSale       = "onsale"
	ProductDiscontinued = "discontinued"
)

// Option tags a product is sold under.
const (
	OptionStandard  = "standard"
	OptionWithGuide = "with-guide"
)

// PriceTier is a product's pricing for one option tag.
type PriceTier struct {
	OriginalPrice int64 `json:"originalPrice" bson:"originalprice"`
	SalePrice     int64 `json:"salePrice" bson:"saleprice"`
}

// Product is a catalog entry. The catalog is the sole source of truth for
// whether a product is purchasable and at what price.
type Product struct {
	ProductID   string               `json:"productId" bson:"productid"`
	SellerID    string               `json:"sellerId" bson:"sellerid"`
	Title       string               `json:"title" bson:"title"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	Status      string               `json:"status" bson:"status"`
	Prices      map[string]PriceTier `json:"prices" bson:"prices"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedat"`
}

// Tier returns the price tier for an option tag, falling back to the
// standard tier for unknown tags.
func (p *Product) Tier(option string) PriceTier {
	if t, ok := p.Prices[option]; ok {
		return t
	}
	return p.Prices[OptionStandard]
}

// OnSale reports whether the product can currently be purchased.
func (p *Product) OnSale() bool {
	return p.Status == ProductOnSale
}

// CartItem is one buyer/product/option line in a cart. Prices are captured
// at add-to-cart time and may drift from the live catalog afterwards.
type CartItem struct {
	ItemID        string    `json:"itemId" bson:"itemid"`
	BuyerID       string    `json:"buyerId" bson:"buyerid"`
	SellerID      string    `json:"sellerId" bson:"sellerid"`
	ProductID     string    `json:"productId" bson:"productid"`
	Option        string    `json:"option" bson:"option"`
	Quantity      int64     `json:"quantity" bson:"quantity"`
	OriginalPrice int64     `json:"originalPrice" bson:"originalprice"`
	SalePrice     int64     `json:"salePrice" bson:"saleprice"`
	AddedAt       time.Time `json:"addedAt" bson:"addedat"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedat"`
}

// Cart is the per-buyer summary row. TotalPrice is a cache recomputed from
// the live cart items after every mutation, never authored independently.
type Cart struct {
	BuyerID    string    `json:"buyerId" bson:"buyerid"`
	TotalPrice int64     `json:"totalPrice" bson:"totalprice"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedat"`
}

// Order status values.
const (
	OrderPending   = "PENDING"
	OrderPaid      = "PAID"
	OrderCancelled = "CANCELLED"
)

// Order is a committed purchase. Once written it is fully decoupled from
// the cart; its total never changes.
type Order struct {
	OrderID        string    `json:"orderId" bson:"orderid"`
	OrderCode      string    `json:"orderCode" bson:"ordercode"`
	BuyerID        string    `json:"buyerId" bson:"buyerid"`
	TotalPrice     int64     `json:"totalPrice" bson:"totalprice"`
	SpecialRequest string    `json:"specialRequest,omitempty" bson:"specialrequest,omitempty"`
	Status         string    `json:"status" bson:"status"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedat"`
}

// OrderLine is an immutable price/quantity snapshot taken when the order
// was created.
type OrderLine struct {
	LineID        string    `json:"lineId" bson:"lineid"`
	OrderID       string    `json:"orderId" bson:"orderid"`
	ProductID     string    `json:"productId" bson:"productid"`
	SellerID      string    `json:"sellerId" bson:"sellerid"`
	Option        string    `json:"option" bson:"option"`
	Quantity      int64     `json:"quantity" bson:"quantity"`
	OriginalPrice int64     `json:"originalPrice" bson:"originalprice"`
	SalePrice     int64     `json:"salePrice" bson:"saleprice"`
	Reviewed      bool      `json:"reviewed" bson:"reviewed"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdat"`
}

// Transaction records one payment attempt against an order.
type Transaction struct {
	ID             string    `json:"id" bson:"_id"`
	OrderID        string    `json:"orderId" bson:"orderid"`
	BuyerID        string    `json:"buyerId" bson:"buyerid"`
	Method         string    `json:"method" bson:"method"`
	Amount         int64     `json:"amount" bson:"amount"`
	Status         string    `json:"status" bson:"status"`
	Reference      string    `json:"reference,omitempty" bson:"reference,omitempty"`
	IdempotencyKey string    `json:"-" bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}
