package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	Percentage   Type = "PERCENTAGE"
	FixedAmount  Type = "FIXED_AMOUNT"
	FreeShipping Type = "FREE_SHIPPING"
	BuyXGetY     Type = "BUY_X_GET_Y"
)

func (t Type) Valid() bool {
	switch t {
	case Percentage, FixedAmount, FreeShipping, BuyXGetY:
		return true
	}
	return false
}

type Coupon struct {
	ID                      string           `json:"id"`
	StoreID                 string           `json:"storeId"`
	Code                    string           `json:"code"`
	Description             string           `json:"description"`
	Type                    Type             `json:"type"`
	Value                   decimal.Decimal  `json:"value"`
	MinPurchase             *decimal.Decimal `json:"minPurchase,omitempty"`
	MaxUses                 *int             `json:"maxUses,omitempty"`
	UsedCount               int              `json:"usedCount"`
	StartsAt                time.Time        `json:"startDate"`
	EndsAt                  time.Time        `json:"endDate"`
	IsActive                bool             `json:"isActive"`
	ApplicableProductIDs    []string         `json:"applicableProductIds"`
	ApplicableCategoryIDs   []string         `json:"applicableCategoryIds"`
	ApplicableCollectionIDs []string         `json:"applicableCollectionIds"`
	CreatedAt               time.Time        `json:"createdAt"`
	UpdatedAt               time.Time        `json:"updatedAt"`
}

// Restricted reports whether any applicability list is set.
func (c Coupon) Restricted() bool {
	return len(c.ApplicableProductIDs) > 0 || len(c.ApplicableCategoryIDs) > 0 || len(c.ApplicableCollectionIDs) > 0
}

// Cart is what Validate checks a coupon against.
type Cart struct {
	Code          string          `json:"code"`
	StoreID       string          `json:"storeId"`
	Total         decimal.Decimal `json:"cartTotal"`
	ProductIDs    []string        `json:"productIds"`
	CategoryIDs   []string        `json:"categoryIds"`
	CollectionIDs []string        `json:"collectionIds"`
}

// ValidationResult is returned for every outcome of Validate; a coupon that
// cannot be used is Valid=false with a Message, not an error.
type ValidationResult struct {
	Valid           bool             `json:"valid"`
	Message         string           `json:"message,omitempty"`
	Coupon          *Coupon          `json:"coupon,omitempty"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	DiscountedTotal decimal.Decimal  `json:"discountedTotal"`
	MinPurchase     *decimal.Decimal `json:"minPurchase,omitempty"`
}

const (
	MsgInvalidCode   = "Invalid coupon code"
	MsgInactive      = "This coupon is not active"
	MsgOutsideWindow = "This coupon has expired or is not yet valid"
	MsgMaxUses       = "This coupon has reached its maximum number of uses"
	MsgNotApplicable = "This coupon is not applicable to the items in your cart"
	MsgNoBundleRule  = "Buy X get Y discounts are not computed yet; no amount was taken off"
)

// Discount computes the amount taken off total. FREE_SHIPPING and
// BUY_X_GET_Y give zero here.
func Discount(c Coupon, total decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case Percentage:
		return total.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
	case FixedAmount:
		return decimal.Min(c.Value, total)
	default:
		return decimal.Zero
	}
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
