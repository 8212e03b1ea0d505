package refund

import (
	"time"

	"github.com/shopspring/decimal"
)

// Refund returns money for some order items. It is pending until
// ProcessedAt is set; a processed refund is never changed again.
type Refund struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	StoreID     string          `json:"storeId"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
	ProcessedAt *time.Time      `json:"processedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	LineItems   []LineItem      `json:"lineItems"`
}

func (r Refund) Pending() bool {
	return r.ProcessedAt == nil
}

type LineItem struct {
	ID          string          `json:"id"`
	RefundID    string          `json:"refundId"`
	OrderItemID string          `json:"orderItemId"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Restocked   bool            `json:"restocked"`
}

// Statistics summarises the refunds of a store over a period.
type Statistics struct {
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AverageAmount decimal.Decimal `json:"averageAmount"`
	Recent        []Refund        `json:"recent"`
}

func sumLines(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}
