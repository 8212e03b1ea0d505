package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/order"
)

// Transaction is one payment attempt reported by a provider.
type Transaction struct {
	ID                string              `json:"id"`
	OrderID           string              `json:"orderId"`
	PaymentProviderID string              `json:"paymentProviderId"`
	CurrencyID        string              `json:"currencyId"`
	Amount            decimal.Decimal     `json:"amount"`
	Status            order.PaymentStatus `json:"status"`
	ExternalID        string              `json:"externalId"`
	PaymentMethod     string              `json:"paymentMethod"`
	ErrorMessage      string              `json:"errorMessage"`
	Metadata          map[string]any      `json:"metadata"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// FinancialStatus is the order status a transaction in status s implies.
func FinancialStatus(s order.PaymentStatus) order.FinancialStatus {
	switch s {
	case order.PaymentCompleted:
		return order.FinancialPaid
	case order.PaymentFailed:
		return order.FinancialVoided
	default:
		return order.FinancialPending
	}
}
