package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product maps to the `products` table. AllowBackorder lets the inventory
// of its variants go negative.
type Product struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"storeId"`
	Title          string    `json:"title"`
	AllowBackorder bool      `json:"allowBackorder"`
	CategoryIDs    []string  `json:"categoryIds"`
	CollectionIDs  []string  `json:"collectionIds"`
	Variants       []Variant `json:"variants,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Variant is a purchasable SKU. InventoryQuantity is changed by the order
// and refund flows through AdjustInventory.
type Variant struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"productId"`
	SKU               string    `json:"sku"`
	Title             string    `json:"title"`
	InventoryQuantity int       `json:"inventoryQuantity"`
	Prices            []Price   `json:"prices"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Price is the live catalog price of a variant in one currency. Orders copy
// it into their own snapshot and never read it again.
type Price struct {
	CurrencyID string          `json:"currencyId"`
	Price      decimal.Decimal `json:"price"`
}
