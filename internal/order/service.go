package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/auth"
	"github.com/wichananm65/shop-admin-backend/internal/coupon"
	"github.com/wichananm65/shop-admin-backend/internal/currency"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/inventory"
	"github.com/wichananm65/shop-admin-backend/internal/paymentprovider"
	"github.com/wichananm65/shop-admin-backend/internal/product"
	"github.com/wichananm65/shop-admin-backend/internal/shipping"
	"github.com/wichananm65/shop-admin-backend/internal/store"
	"github.com/wichananm65/shop-admin-backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type StoreFinder interface {
	Get(ctx context.Context, id string) (store.Store, error)
}

type CurrencyFinder interface {
	Get(ctx context.Context, id string) (currency.Currency, error)
}

// CouponService is satisfied by *coupon.Service. Redeem enforces store,
// activity, validity window and the usage cap.
type CouponService interface {
	Get(ctx context.Context, id string) (coupon.Coupon, error)
	Redeem(ctx context.Context, id, storeID string, at time.Time) (coupon.Coupon, error)
}

type ProviderFinder interface {
	Get(ctx context.Context, id string) (paymentprovider.Provider, error)
}

type ShippingFinder interface {
	Get(ctx context.Context, id string) (shipping.Method, error)
}

type VariantFinder interface {
	GetVariant(ctx context.Context, id string) (product.Variant, error)
}

// Stock is the inventory protocol; *inventory.Service implements it.
type Stock interface {
	Commit(ctx context.Context, lines []inventory.Line) error
	Release(ctx context.Context, lines []inventory.Line) error
	CheckAvailability(ctx context.Context, lines []inventory.Line) error
}

// ItemRefund aggregates the refund lines of one order item.
type ItemRefund struct {
	Lines     int
	Quantity  int
	Amount    decimal.Decimal
	Restocked int
}

// RefundLedger is read from the refund tables. Quantity and Amount count
// every refund; Restocked only processed lines flagged restocked.
type RefundLedger interface {
	ItemRefunds(ctx context.Context, orderID string) (map[string]ItemRefund, error)
	ProcessedTotal(ctx context.Context, orderID string) (decimal.Decimal, error)
	CountByOrder(ctx context.Context, orderID string) (int, error)
}

type PaymentLedger interface {
	CountByOrder(ctx context.Context, orderID string) (int, error)
}

type Deps struct {
	Repo            Repository
	Tx              database.Transactor
	Stores          StoreFinder
	Currencies      CurrencyFinder
	Coupons         CouponService
	Providers       ProviderFinder
	ShippingMethods ShippingFinder
	Variants        VariantFinder
	Inventory       Stock
	Refunds         RefundLedger
	Payments        PaymentLedger
	Logger          *slog.Logger
	Metrics         *telemetry.Metrics
	Now             func() time.Time
}

type Service struct {
	Deps
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{Deps: d}
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	out, err := s.Repo.List(ctx, f)
	return out, database.MapError(err)
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	o, err := s.Repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Order{}, apperror.NotFound("order %s not found", id)
	}
	return o, database.MapError(err)
}

// Create validates every reference, persists the order with its items and
// commits inventory when it starts in a holding status.
func (s *Service) Create(ctx context.Context, in Order) (out Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.Create", attribute.String("store_id", in.StoreID))
	defer func() { telemetry.EndSpan(span, err) }()

	setDefaults(&in)
	// only a commit below may mark the order as holding stock
	in.InventoryCommitted = false
	in.LineItems = append([]Item(nil), in.LineItems...)
	if err := validateScalars(in); err != nil {
		return Order{}, err
	}
	if len(in.LineItems) == 0 {
		return Order{}, apperror.BadRequest("an order needs at least one line item")
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.Stores.Get(ctx, in.StoreID); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, in.CurrencyID, in.CouponID, in.PaymentProviderID, in.ShippingMethodID); err != nil {
			return err
		}

		now := s.Now().UTC()
		in.ID = uuid.NewString()
		in.CreatedAt, in.UpdatedAt = now, now
		for i := range in.LineItems {
			in.LineItems[i].ID = uuid.NewString()
			in.LineItems[i].OrderID = in.ID
		}
		if err := s.checkItems(ctx, in.LineItems); err != nil {
			return err
		}

		if in.OrderNumber == 0 {
			n, err := s.Repo.NextNumber(ctx, in.StoreID)
			if err != nil {
				return database.MapError(err)
			}
			in.OrderNumber = n
		} else {
			taken, err := s.Repo.NumberTaken(ctx, in.StoreID, in.OrderNumber)
			if err != nil {
				return database.MapError(err)
			}
			if taken {
				return apperror.Conflict("order number %d already exists in store %s", in.OrderNumber, in.StoreID)
			}
		}

		if err := s.Inventory.CheckAvailability(ctx, lines(in.LineItems, nil)); err != nil {
			return err
		}
		in.recomputeTotals()
		if in.FinancialStatus.Holding() {
			if err := s.Inventory.Commit(ctx, lines(in.LineItems, nil)); err != nil {
				return err
			}
			in.InventoryCommitted = true
		}

		created, err := s.Repo.Create(ctx, in)
		if errors.Is(err, ErrDuplicateNumber) {
			return apperror.Conflict("order number %d already exists in store %s", in.OrderNumber, in.StoreID)
		}
		if err != nil {
			return database.MapError(err)
		}
		if in.CouponID != nil {
			if _, err := s.Coupons.Redeem(ctx, *in.CouponID, in.StoreID, now); err != nil {
				return err
			}
		}
		out = created
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.Metrics.OrderCreated(ctx, out.StoreID)
	s.Logger.InfoContext(ctx, "order created",
		"order_id", out.ID, "store_id", out.StoreID, "order_number", out.OrderNumber,
		"financial_status", out.FinancialStatus, "total", out.TotalPrice.String(), "actor", auth.ActorFrom(ctx))
	return out, nil
}

// ItemInput is a line in an Update. An ID that matches an existing item
// updates it; anything else becomes a new item.
type ItemInput struct {
	ID        string  `json:"id"`
	VariantID *string `json:"variantId"`
	ItemSnapshot
}

type Patch struct {
	FinancialStatus   *FinancialStatus   `json:"financialStatus"`
	FulfillmentStatus *FulfillmentStatus `json:"fulfillmentStatus"`
	ShippingStatus    *ShippingStatus    `json:"shippingStatus"`
	PaymentStatus     *PaymentStatus     `json:"paymentStatus"`
	TotalTax          *decimal.Decimal   `json:"totalTax"`
	TotalDiscounts    *decimal.Decimal   `json:"totalDiscounts"`
	CurrencyID        *string            `json:"currencyId"`
	CouponID          *string            `json:"couponId"`
	PaymentProviderID *string            `json:"paymentProviderId"`
	ShippingMethodID  *string            `json:"shippingMethodId"`
	CustomerInfo      map[string]any     `json:"customerInfo"`
	ShippingAddress   map[string]any     `json:"shippingAddress"`
	BillingAddress    map[string]any     `json:"billingAddress"`
	TrackingNumber    *string            `json:"trackingNumber"`
	CustomerNotes     *string            `json:"customerNotes"`
	InternalNotes     *string            `json:"internalNotes"`
	Source            *string            `json:"source"`
	LineItems         *[]ItemInput       `json:"lineItems"`
}

// Update replaces the fields present in p. When LineItems is present the
// item list is replaced wholesale and totals are recomputed from it.
func (s *Service) Update(ctx context.Context, id string, p Patch) (out Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.Update", attribute.String("order_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		prevCoupon := cur.CouponID
		if err := s.checkReferences(ctx, deref(p.CurrencyID), p.CouponID, p.PaymentProviderID, p.ShippingMethodID); err != nil {
			return err
		}
		applyPatch(&cur, p)
		if err := validateScalars(cur); err != nil {
			return err
		}

		var refunds map[string]ItemRefund
		if s.Refunds != nil {
			if refunds, err = s.Refunds.ItemRefunds(ctx, id); err != nil {
				return database.MapError(err)
			}
		}

		var removed, before []Item
		if p.LineItems != nil {
			next, gone, err := s.replaceItems(ctx, cur, *p.LineItems, refunds)
			if err != nil {
				return err
			}
			before, removed = cur.LineItems, gone
			cur.LineItems = next
		}
		cur.recomputeTotals()
		if refunded := refundedAmount(refunds); cur.TotalPrice.LessThan(refunded) {
			return apperror.BadRequest("order total %s would fall below the %s already refunded",
				cur.TotalPrice.StringFixed(2), refunded.StringFixed(2))
		}

		target := cur.FinancialStatus
		if p.FinancialStatus != nil {
			target = *p.FinancialStatus
		}
		if err := s.transition(ctx, &cur, target, before, refunds); err != nil {
			return err
		}
		if p.FinancialStatus == nil && s.Refunds != nil && cur.FinancialStatus.RefundDerived() {
			processed, err := s.Refunds.ProcessedTotal(ctx, id)
			if err != nil {
				return database.MapError(err)
			}
			cur.FinancialStatus = DeriveRefundStatus(cur.FinancialStatus, cur.TotalPrice, processed)
		}
		cur.UpdatedAt = s.Now().UTC()

		if _, err := s.Repo.Update(ctx, cur); err != nil {
			return database.MapError(err)
		}
		if p.LineItems != nil {
			if err := s.Repo.SaveItems(ctx, id, cur.LineItems, itemIDs(removed)); err != nil {
				return database.MapError(err)
			}
		}
		if cur.CouponID != nil && deref(prevCoupon) != *cur.CouponID {
			if _, err := s.Coupons.Redeem(ctx, *cur.CouponID, cur.StoreID, cur.UpdatedAt); err != nil {
				return err
			}
		}
		out = cur
		return nil
	})
	return out, err
}

type StatusPatch struct {
	FinancialStatus   *FinancialStatus   `json:"financialStatus"`
	FulfillmentStatus *FulfillmentStatus `json:"fulfillmentStatus"`
	ShippingStatus    *ShippingStatus    `json:"shippingStatus"`
	PaymentStatus     *PaymentStatus     `json:"paymentStatus"`
}

// UpdateStatus writes status fields only; totals are left alone.
func (s *Service) UpdateStatus(ctx context.Context, id string, p StatusPatch) (out Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.UpdateStatus", attribute.String("order_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if p.FulfillmentStatus != nil {
			cur.FulfillmentStatus = *p.FulfillmentStatus
		}
		if p.ShippingStatus != nil {
			cur.ShippingStatus = *p.ShippingStatus
		}
		if p.PaymentStatus != nil {
			cur.PaymentStatus = *p.PaymentStatus
		}
		if err := validateScalars(cur); err != nil {
			return err
		}
		if p.FinancialStatus != nil {
			if err := s.transition(ctx, &cur, *p.FinancialStatus, nil, nil); err != nil {
				return err
			}
		}
		cur.UpdatedAt = s.Now().UTC()
		if out, err = s.Repo.Update(ctx, cur); err != nil {
			return database.MapError(err)
		}
		return nil
	})
	return out, err
}

// TransitionFinancialStatus moves the order to status and applies the
// inventory side effects of that move.
func (s *Service) TransitionFinancialStatus(ctx context.Context, id string, status FinancialStatus) (Order, error) {
	return s.UpdateStatus(ctx, id, StatusPatch{FinancialStatus: &status})
}

// ApplyRefunds recomputes the financial status from the processed refund
// total. Refund-driven moves never release inventory in bulk; restocking
// happens per refund line.
func (s *Service) ApplyRefunds(ctx context.Context, id string) (out Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.ApplyRefunds", attribute.String("order_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		refunded, err := s.Refunds.ProcessedTotal(ctx, id)
		if err != nil {
			return database.MapError(err)
		}
		next := DeriveRefundStatus(cur.FinancialStatus, cur.TotalPrice, refunded)
		if next == cur.FinancialStatus {
			out = cur
			return nil
		}
		s.Logger.InfoContext(ctx, "order financial status derived from refunds",
			"order_id", id, "from", cur.FinancialStatus, "to", next, "refunded", refunded.String())
		cur.FinancialStatus = next
		cur.UpdatedAt = s.Now().UTC()
		if out, err = s.Repo.Update(ctx, cur); err != nil {
			return database.MapError(err)
		}
		return nil
	})
	return out, err
}

// Remove deletes an order that has no financial history.
func (s *Service) Remove(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.Remove", attribute.String("order_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	return s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if s.Refunds != nil {
			n, err := s.Refunds.CountByOrder(ctx, id)
			if err != nil {
				return database.MapError(err)
			}
			if n > 0 {
				return apperror.BadRequest("cannot delete order %s: it has %d refunds", id, n)
			}
		}
		if s.Payments != nil {
			n, err := s.Payments.CountByOrder(ctx, id)
			if err != nil {
				return database.MapError(err)
			}
			if n > 0 {
				return apperror.BadRequest("cannot delete order %s: it has %d payment transactions", id, n)
			}
		}
		if cur.InventoryCommitted {
			if err := s.Inventory.Release(ctx, lines(cur.LineItems, nil)); err != nil {
				return err
			}
		}
		if err := s.Repo.Delete(ctx, id); err != nil {
			return database.MapError(err)
		}
		s.Logger.InfoContext(ctx, "order removed", "order_id", id, "actor", auth.ActorFrom(ctx))
		return nil
	})
}

// transition is the only place that changes FinancialStatus outside the
// refund path. Entering a holding status commits stock and leaving it
// releases whatever refunds have not already restocked. before holds the
// previous items when the item list was replaced in the same update.
func (s *Service) transition(ctx context.Context, o *Order, to FinancialStatus, before []Item, refunds map[string]ItemRefund) error {
	if !to.Valid() {
		return apperror.BadRequest("unknown financial status %q", to)
	}
	from := o.FinancialStatus
	replaced := before != nil
	if !replaced {
		before = o.LineItems
	}

	committed := o.InventoryCommitted
	if to != from {
		committed = to.Holding()
	}
	release := o.InventoryCommitted && (replaced || !committed)
	commit := committed && (replaced || !o.InventoryCommitted)

	if (release || commit) && refunds == nil && s.Refunds != nil {
		var err error
		if refunds, err = s.Refunds.ItemRefunds(ctx, o.ID); err != nil {
			return database.MapError(err)
		}
	}
	if release {
		if err := s.Inventory.Release(ctx, lines(before, refunds)); err != nil {
			return err
		}
	}
	if commit {
		if err := s.Inventory.Commit(ctx, lines(o.LineItems, refunds)); err != nil {
			return err
		}
	}
	o.InventoryCommitted = committed

	if to != from {
		o.FinancialStatus = to
		s.Logger.InfoContext(ctx, "order financial status changed",
			"order_id", o.ID, "from", from, "to", to, "inventory_committed", committed,
			"actor", auth.ActorFrom(ctx))
	}
	return nil
}

func (s *Service) replaceItems(ctx context.Context, cur Order, in []ItemInput, refunds map[string]ItemRefund) ([]Item, []Item, error) {
	if len(in) == 0 {
		return nil, nil, apperror.BadRequest("an order needs at least one line item")
	}
	next := make([]Item, 0, len(in))
	kept := map[string]bool{}
	for _, li := range in {
		it := Item{ID: li.ID, OrderID: cur.ID, VariantID: li.VariantID, ItemSnapshot: li.ItemSnapshot}
		if old, ok := cur.Item(li.ID); ok {
			if refunds[old.ID].Lines > 0 && !sameItem(old, it) {
				return nil, nil, apperror.BadRequest("order item %s has refunds and cannot be changed", old.ID)
			}
			kept[old.ID] = true
		} else {
			it.ID = uuid.NewString()
		}
		next = append(next, it)
	}
	if err := s.checkItems(ctx, next); err != nil {
		return nil, nil, err
	}

	var removed []Item
	for _, old := range cur.LineItems {
		if kept[old.ID] {
			continue
		}
		if refunds[old.ID].Lines > 0 {
			return nil, nil, apperror.BadRequest("order item %s has refunds and cannot be removed", old.ID)
		}
		removed = append(removed, old)
	}
	return next, removed, nil
}

func (s *Service) checkItems(ctx context.Context, items []Item) error {
	for _, it := range items {
		if it.Quantity <= 0 {
			return apperror.BadRequest("line item quantity must be positive")
		}
		if it.Price.IsNegative() {
			return apperror.BadRequest("line item price must not be negative")
		}
		if it.TotalDiscount.IsNegative() {
			return apperror.BadRequest("line item discount must not be negative")
		}
		if it.VariantID != nil {
			if _, err := s.Variants.GetVariant(ctx, *it.VariantID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) checkReferences(ctx context.Context, currencyID string, couponID, providerID, shippingID *string) error {
	if currencyID != "" {
		if _, err := s.Currencies.Get(ctx, currencyID); err != nil {
			return err
		}
	}
	if couponID != nil {
		if _, err := s.Coupons.Get(ctx, *couponID); err != nil {
			return err
		}
	}
	if providerID != nil {
		if _, err := s.Providers.Get(ctx, *providerID); err != nil {
			return err
		}
	}
	if shippingID != nil {
		if _, err := s.ShippingMethods.Get(ctx, *shippingID); err != nil {
			return err
		}
	}
	return nil
}

// refundedAmount sums every refund line, pending or processed.
func refundedAmount(refunds map[string]ItemRefund) decimal.Decimal {
	total := decimal.Zero
	for _, r := range refunds {
		total = total.Add(r.Amount)
	}
	return total
}

func setDefaults(o *Order) {
	if o.FinancialStatus == "" {
		o.FinancialStatus = FinancialPending
	}
	if o.FulfillmentStatus == "" {
		o.FulfillmentStatus = FulfillmentUnfulfilled
	}
	if o.ShippingStatus == "" {
		o.ShippingStatus = ShippingPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	if o.CustomerInfo == nil {
		o.CustomerInfo = map[string]any{}
	}
}

func validateScalars(o Order) error {
	switch {
	case o.CurrencyID == "":
		return apperror.BadRequest("currencyId is required")
	case !o.FinancialStatus.Valid():
		return apperror.BadRequest("unknown financial status %q", o.FinancialStatus)
	case !o.FulfillmentStatus.Valid():
		return apperror.BadRequest("unknown fulfillment status %q", o.FulfillmentStatus)
	case !o.ShippingStatus.Valid():
		return apperror.BadRequest("unknown shipping status %q", o.ShippingStatus)
	case !o.PaymentStatus.Valid():
		return apperror.BadRequest("unknown payment status %q", o.PaymentStatus)
	case o.OrderNumber < 0:
		return apperror.BadRequest("order number must not be negative")
	case o.TotalTax.IsNegative(), o.TotalDiscounts.IsNegative():
		return apperror.BadRequest("tax and discounts must not be negative")
	}
	return nil
}

func applyPatch(o *Order, p Patch) {
	if p.FulfillmentStatus != nil {
		o.FulfillmentStatus = *p.FulfillmentStatus
	}
	if p.ShippingStatus != nil {
		o.ShippingStatus = *p.ShippingStatus
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.TotalTax != nil {
		o.TotalTax = *p.TotalTax
	}
	if p.TotalDiscounts != nil {
		o.TotalDiscounts = *p.TotalDiscounts
	}
	if p.CurrencyID != nil {
		o.CurrencyID = *p.CurrencyID
	}
	if p.CouponID != nil {
		o.CouponID = p.CouponID
	}
	if p.PaymentProviderID != nil {
		o.PaymentProviderID = p.PaymentProviderID
	}
	if p.ShippingMethodID != nil {
		o.ShippingMethodID = p.ShippingMethodID
	}
	if p.CustomerInfo != nil {
		o.CustomerInfo = p.CustomerInfo
	}
	if p.ShippingAddress != nil {
		o.ShippingAddress = p.ShippingAddress
	}
	if p.BillingAddress != nil {
		o.BillingAddress = p.BillingAddress
	}
	if p.TrackingNumber != nil {
		o.TrackingNumber = *p.TrackingNumber
	}
	if p.CustomerNotes != nil {
		o.CustomerNotes = *p.CustomerNotes
	}
	if p.InternalNotes != nil {
		o.InternalNotes = *p.InternalNotes
	}
	if p.Source != nil {
		o.Source = *p.Source
	}
}

// lines turns items into inventory lines, net of restocked refund
// quantities when refunds is given.
func lines(items []Item, refunds map[string]ItemRefund) []inventory.Line {
	out := make([]inventory.Line, 0, len(items))
	for _, it := range items {
		if it.VariantID == nil {
			continue
		}
		qty := it.Quantity - refunds[it.ID].Restocked
		if qty <= 0 {
			continue
		}
		out = append(out, inventory.Line{VariantID: *it.VariantID, Quantity: qty})
	}
	return out
}

func itemIDs(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func sameItem(a, b Item) bool {
	return deref(a.VariantID) == deref(b.VariantID) &&
		a.Title == b.Title &&
		a.Quantity == b.Quantity &&
		a.Price.Equal(b.Price) &&
		a.TotalDiscount.Equal(b.TotalDiscount)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
