package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a purchase in one store. Totals are derived from LineItems.
type Order struct {
	ID                 string            `json:"id"`
	StoreID            string            `json:"storeId"`
	OrderNumber        int               `json:"orderNumber"`
	FinancialStatus    FinancialStatus   `json:"financialStatus"`
	FulfillmentStatus  FulfillmentStatus `json:"fulfillmentStatus"`
	ShippingStatus     ShippingStatus    `json:"shippingStatus"`
	PaymentStatus      PaymentStatus     `json:"paymentStatus"`
	SubtotalPrice      decimal.Decimal   `json:"subtotalPrice"`
	TotalTax           decimal.Decimal   `json:"totalTax"`
	TotalDiscounts     decimal.Decimal   `json:"totalDiscounts"`
	TotalPrice         decimal.Decimal   `json:"totalPrice"`
	CurrencyID         string            `json:"currencyId"`
	CouponID           *string           `json:"couponId,omitempty"`
	PaymentProviderID  *string           `json:"paymentProviderId,omitempty"`
	ShippingMethodID   *string           `json:"shippingMethodId,omitempty"`
	CustomerInfo       map[string]any    `json:"customerInfo"`
	ShippingAddress    map[string]any    `json:"shippingAddress,omitempty"`
	BillingAddress     map[string]any    `json:"billingAddress,omitempty"`
	TrackingNumber     string            `json:"trackingNumber"`
	CustomerNotes      string            `json:"customerNotes"`
	InternalNotes      string            `json:"internalNotes"`
	Source             string            `json:"source"`
	InventoryCommitted bool              `json:"inventoryCommitted"`
	LineItems          []Item            `json:"lineItems"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// ItemSnapshot is what the customer bought, frozen at purchase time. It is
// never refreshed from the catalog.
type ItemSnapshot struct {
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
}

// LineTotal is price times quantity.
func (s ItemSnapshot) LineTotal() decimal.Decimal {
	return s.Price.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

type Item struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"orderId"`
	VariantID *string `json:"variantId,omitempty"`
	ItemSnapshot
}

// Filter narrows List. Zero values mean no filter; Limit 0 means no limit.
type Filter struct {
	StoreID           string
	FinancialStatus   FinancialStatus
	FulfillmentStatus FulfillmentStatus
	Limit             int
	Offset            int
}

// Subtotal sums the line totals.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

func (o *Order) recomputeTotals() {
	o.SubtotalPrice = Subtotal(o.LineItems)
	o.TotalPrice = o.SubtotalPrice.Sub(o.TotalDiscounts).Add(o.TotalTax)
}

// Item returns the line with the given id.
func (o Order) Item(id string) (Item, bool) {
	for _, it := range o.LineItems {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
