package paymentprovider

import "time"

// Provider is a payment gateway configured for a store, e.g. a card
// processor or cash on delivery.
type Provider struct {
	ID         string    `json:"id"`
	StoreID    string    `json:"storeId"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	CurrencyID *string   `json:"currencyId,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
