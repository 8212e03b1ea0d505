package category

import "time"

// Category groups products for navigation. Coupons may be restricted to a
// set of categories.
type Category struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Collection is a curated product set, independent of categories. Coupons
// may be restricted to a set of collections.
type Collection struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
