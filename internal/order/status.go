package order

import "github.com/shopspring/decimal"

type FinancialStatus string

const (
	FinancialPending           FinancialStatus = "PENDING"
	FinancialPaid              FinancialStatus = "PAID"
	FinancialPartiallyRefunded FinancialStatus = "PARTIALLY_REFUNDED"
	FinancialRefunded          FinancialStatus = "REFUNDED"
	FinancialVoided            FinancialStatus = "VOIDED"
)

func (s FinancialStatus) Valid() bool {
	switch s {
	case FinancialPending, FinancialPaid, FinancialPartiallyRefunded, FinancialRefunded, FinancialVoided:
		return true
	}
	return false
}

// RefundDerived reports whether the status was set from the refunded sum.
func (s FinancialStatus) RefundDerived() bool {
	return s == FinancialPartiallyRefunded || s == FinancialRefunded
}

// Holding reports whether an order in this status keeps its quantities
// deducted from variant stock.
func (s FinancialStatus) Holding() bool {
	return s == FinancialPaid || s == FinancialPartiallyRefunded
}

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled        FulfillmentStatus = "UNFULFILLED"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "PARTIALLY_FULFILLED"
	FulfillmentFulfilled          FulfillmentStatus = "FULFILLED"
	FulfillmentRestocked          FulfillmentStatus = "RESTOCKED"
)

func (s FulfillmentStatus) Valid() bool {
	switch s {
	case FulfillmentUnfulfilled, FulfillmentPartiallyFulfilled, FulfillmentFulfilled, FulfillmentRestocked:
		return true
	}
	return false
}

type ShippingStatus string

const (
	ShippingPending    ShippingStatus = "PENDING"
	ShippingProcessing ShippingStatus = "PROCESSING"
	ShippingShipped    ShippingStatus = "SHIPPED"
	ShippingDelivered  ShippingStatus = "DELIVERED"
	ShippingReturned   ShippingStatus = "RETURNED"
	ShippingCancelled  ShippingStatus = "CANCELLED"
)

func (s ShippingStatus) Valid() bool {
	switch s {
	case ShippingPending, ShippingProcessing, ShippingShipped, ShippingDelivered, ShippingReturned, ShippingCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// DeriveRefundStatus maps the sum of processed refunds onto a financial
// status. With nothing refunded the current status is kept.
func DeriveRefundStatus(current FinancialStatus, total, refunded decimal.Decimal) FinancialStatus {
	switch {
	case !refunded.IsPositive():
		return current
	case refunded.LessThan(total):
		return FinancialPartiallyRefunded
	default:
		return FinancialRefunded
	}
}
