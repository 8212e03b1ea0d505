package shipping

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method is a shipping option offered by a store, priced per currency.
type Method struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	Prices    []Price   `json:"prices"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Price struct {
	CurrencyID string          `json:"currencyId"`
	Price      decimal.Decimal `json:"price"`
}
