package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/clock"
)

type OrderStatus string

const (
	OrderStatusPendingPayment   OrderStatus = "PENDING_PAYMENT"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
	OrderStatusAwaitingShipment OrderStatus = "AWAITING_SHIPMENT"
	OrderStatusAwaitingReceipt  OrderStatus = "AWAITING_RECEIPT" // receipt folds into IN_LEASE
	OrderStatusInLease          OrderStatus = "IN_LEASE"
	OrderStatusReturnRequested  OrderStatus = "RETURN_REQUESTED"
	OrderStatusReturnInProgress OrderStatus = "RETURN_IN_PROGRESS"
	OrderStatusCompleted        OrderStatus = "COMPLETED"
	OrderStatusBuyoutRequested  OrderStatus = "BUYOUT_REQUESTED"
	OrderStatusBuyoutCompleted  OrderStatus = "BUYOUT_COMPLETED"
	OrderStatusExceptionClosed  OrderStatus = "EXCEPTION_CLOSED"
)

// OrderStatuses lists every status in lifecycle order
var OrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusCancelled,
	OrderStatusAwaitingShipment,
	OrderStatusAwaitingReceipt,
	OrderStatusInLease,
	OrderStatusReturnRequested,
	OrderStatusReturnInProgress,
	OrderStatusCompleted,
	OrderStatusBuyoutRequested,
	OrderStatusBuyoutCompleted,
	OrderStatusExceptionClosed,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusCompleted, OrderStatusBuyoutCompleted, OrderStatusExceptionClosed:
		return true
	}
	return false
}

type OrderItem struct {
	ID            uuid.UUID `json:"id"`
	SkuID         uuid.UUID `json:"sku_id"`
	ProductID     uuid.UUID `json:"product_id"`
	Quantity      int       `json:"quantity"`
	UnitRentCents int64     `json:"unit_rent_cents"`
}

// InventoryLine is one (sku, quantity) pair of an inventory command
type InventoryLine struct {
	SkuID    uuid.UUID `json:"sku_id"`
	Quantity int       `json:"quantity"`
}

type Order struct {
	ID       uuid.UUID   `json:"id"`
	OrderNo  string      `json:"order_no"`
	UserID   uuid.UUID   `json:"user_id"`
	VendorID uuid.UUID   `json:"vendor_id"`
	Status   OrderStatus `json:"status"`
	PlanType string      `json:"plan_type"`
	// Amounts are fixed at creation, except BuyoutCents during buyout negotiation.
	DepositCents       int64              `json:"deposit_cents"`
	RentCents          int64              `json:"rent_cents"`
	BuyoutCents        int64              `json:"buyout_cents"`
	TotalCents         int64              `json:"total_cents"`
	LeaseMonths        int                `json:"lease_months"`
	LeaseStartAt       *time.Time         `json:"lease_start_at,omitempty"`
	LeaseEndAt         *time.Time         `json:"lease_end_at,omitempty"`
	ExtensionCount     int                `json:"extension_count"`
	ShippingCarrier    string             `json:"shipping_carrier"`
	ShippingTrackingNo string             `json:"shipping_tracking_no"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Items              []OrderItem        `json:"items"`
	Events             []OrderEvent       `json:"events"`
	Disputes           []Dispute          `json:"disputes"`
	ExtensionRequests  []ExtensionRequest `json:"extension_requests"`
	ReturnRequests     []ReturnRequest    `json:"return_requests"`

	// savedEvents counts the leading Events already in storage
	savedEvents int
}

type NewOrderParams struct {
	UserID       uuid.UUID
	VendorID     uuid.UUID
	PlanType     string
	DepositCents int64
	RentCents    int64
	BuyoutCents  int64
	TotalCents   int64
	LeaseMonths  int
	Items        []OrderItem
}

// NewOrder validates params and returns an order in PENDING_PAYMENT with
// its creation event recorded.
func NewOrder(p NewOrderParams, now time.Time) (*Order, error) {
	if p.UserID == uuid.Nil || p.VendorID == uuid.Nil {
		return nil, Validationf("user and vendor are required")
	}
	if p.UserID == p.VendorID {
		return nil, Validationf("user and vendor must differ")
	}
	if len(p.Items) == 0 {
		return nil, Validationf("order requires at least one item")
	}
	if p.DepositCents < 0 || p.RentCents < 0 || p.BuyoutCents < 0 || p.TotalCents < 0 {
		return nil, Validationf("amounts must not be negative")
	}
	if p.LeaseMonths < 0 {
		return nil, Validationf("lease months must not be negative")
	}

	items := make([]OrderItem, 0, len(p.Items))
	for _, it := range p.Items {
		if it.SkuID == uuid.Nil || it.Quantity <= 0 {
			return nil, Validationf("item requires a sku and a positive quantity")
		}
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		items = append(items, it)
	}

	o := &Order{
		ID:           uuid.New(),
		OrderNo:      NewOrderNo(now),
		UserID:       p.UserID,
		VendorID:     p.VendorID,
		Status:       OrderStatusPendingPayment,
		PlanType:     p.PlanType,
		DepositCents: p.DepositCents,
		RentCents:    p.RentCents,
		BuyoutCents:  p.BuyoutCents,
		TotalCents:   p.TotalCents,
		LeaseMonths:  p.LeaseMonths,
		CreatedAt:    now,
		UpdatedAt:    now,
		Items:        items,
	}
	o.Record(EventOrderCreated, Actor{ID: p.UserID, Role: RoleUser}, "order created", nil, now)
	return o, nil
}

// NewOrderNo returns a timestamp followed by six random upper-case hex characters
func NewOrderNo(now time.Time) string {
	id := uuid.New()
	return now.UTC().Format("20060102150405") + strings.ToUpper(fmt.Sprintf("%x", id[:3]))
}

// InventoryLines aggregates the order items into one line per sku
func (o *Order) InventoryLines() []InventoryLine {
	var lines []InventoryLine
	index := make(map[uuid.UUID]int)
	for _, it := range o.Items {
		if i, ok := index[it.SkuID]; ok {
			lines[i].Quantity += it.Quantity
			continue
		}
		index[it.SkuID] = len(lines)
		lines = append(lines, InventoryLine{SkuID: it.SkuID, Quantity: it.Quantity})
	}
	return lines
}

// IsParty reports whether actor is the user or vendor of this order
func (o *Order) IsParty(actor Actor) bool {
	switch actor.Role {
	case RoleUser:
		return actor.ID == o.UserID
	case RoleVendor:
		return actor.ID == o.VendorID
	}
	return false
}

// Counterparty returns the id of the other party for a USER or VENDOR role
func (o *Order) Counterparty(role Role) (uuid.UUID, bool) {
	switch role {
	case RoleUser:
		return o.VendorID, true
	case RoleVendor:
		return o.UserID, true
	}
	return uuid.Nil, false
}

func (o *Order) MarkPaid(now time.Time) error {
	return o.apply(OrderActionMarkPaid, now)
}

func (o *Order) Cancel(now time.Time) error {
	return o.apply(OrderActionCancel, now)
}

func (o *Order) Ship(carrier, trackingNo string, now time.Time) error {
	if _, err := NextOrderStatus(OrderActionShip, o.Status); err != nil {
		return err
	}
	if strings.TrimSpace(carrier) == "" || strings.TrimSpace(trackingNo) == "" {
		return Validationf("carrier and tracking number are required")
	}
	if err := o.apply(OrderActionShip, now); err != nil {
		return err
	}
	o.ShippingCarrier = carrier
	o.ShippingTrackingNo = trackingNo
	if o.LeaseStartAt == nil {
		start := now
		o.LeaseStartAt = &start
	}
	if o.LeaseEndAt == nil && o.LeaseMonths > 0 {
		end := clock.AddMonths(*o.LeaseStartAt, o.LeaseMonths)
		o.LeaseEndAt = &end
	}
	return nil
}

func (o *Order) ConfirmReceive(now time.Time) error {
	return o.apply(OrderActionConfirmReceive, now)
}

func (o *Order) RequestReturn(now time.Time) error {
	return o.apply(OrderActionRequestReturn, now)
}

func (o *Order) MarkReturnInProgress(now time.Time) error {
	return o.apply(OrderActionMarkReturnInProgress, now)
}

func (o *Order) CompleteReturn(now time.Time) error {
	if err := o.apply(OrderActionCompleteReturn, now); err != nil {
		return err
	}
	end := now
	o.LeaseEndAt = &end
	return nil
}

func (o *Order) ResumeLease(now time.Time) error {
	return o.apply(OrderActionResumeLease, now)
}

func (o *Order) RequestBuyout(now time.Time) error {
	return o.apply(OrderActionRequestBuyout, now)
}

func (o *Order) ConfirmBuyout(now time.Time) error {
	if err := o.apply(OrderActionConfirmBuyout, now); err != nil {
		return err
	}
	end := now
	o.LeaseEndAt = &end
	return nil
}

func (o *Order) RejectBuyout(now time.Time) error {
	return o.apply(OrderActionRejectBuyout, now)
}

func (o *Order) ForceClose(now time.Time) error {
	return o.apply(OrderActionForceClose, now)
}

// IncreaseExtensionCount is valid in any status. The lease end moves only
// when one is already set.
func (o *Order) IncreaseExtensionCount(months int, now time.Time) error {
	if months <= 0 {
		return Validationf("extension months must be positive")
	}
	o.ExtensionCount++
	if o.LeaseEndAt != nil {
		end := clock.AddMonths(*o.LeaseEndAt, months)
		o.LeaseEndAt = &end
	}
	o.UpdatedAt = now
	return nil
}

// UpdateBuyoutAmount is the only amount change allowed after creation
func (o *Order) UpdateBuyoutAmount(cents int64, now time.Time) error {
	if err := o.ensureStatus("UPDATE_BUYOUT_AMOUNT", OrderStatusInLease, OrderStatusBuyoutRequested); err != nil {
		return err
	}
	if cents <= 0 {
		return Validationf("buyout amount must be positive")
	}
	o.BuyoutCents = cents
	o.UpdatedAt = now
	return nil
}

func (o *Order) ensureStatus(action string, allowed ...OrderStatus) error {
	for _, s := range allowed {
		if o.Status == s {
			return nil
		}
	}
	expected := make([]string, len(allowed))
	for i, s := range allowed {
		expected[i] = string(s)
	}
	return &InvalidStateTransitionError{Entity: "order", Action: action, Expected: expected, Actual: string(o.Status)}
}

// Record appends a timeline event and returns it
func (o *Order) Record(t EventType, actor Actor, description string, attrs map[string]string, now time.Time) OrderEvent {
	ev := OrderEvent{
		ID:          uuid.New(),
		OrderID:     o.ID,
		Type:        t,
		Description: description,
		ActorID:     actor.IDPtr(),
		ActorRole:   actor.Role,
		Attributes:  attrs,
		CreatedAt:   now,
	}
	o.Events = append(o.Events, ev)
	return ev
}

// UnsavedEvents returns the events recorded since the order was loaded or
// last saved. The timeline is append-only, so these are always a suffix.
func (o *Order) UnsavedEvents() []OrderEvent {
	if o.savedEvents >= len(o.Events) {
		return nil
	}
	return o.Events[o.savedEvents:]
}

// MarkEventsSaved records that every event up to now is in storage
func (o *Order) MarkEventsSaved() {
	o.savedEvents = len(o.Events)
}

// ActiveDispute returns the dispute that is not yet CLOSED, if any
func (o *Order) ActiveDispute() *Dispute {
	for i := range o.Disputes {
		if o.Disputes[i].IsActive() {
			return &o.Disputes[i]
		}
	}
	return nil
}

func (o *Order) DisputeByID(id uuid.UUID) (*Dispute, error) {
	for i := range o.Disputes {
		if o.Disputes[i].ID == id {
			return &o.Disputes[i], nil
		}
	}
	return nil, NotFoundf("dispute %s not found on order %s", id, o.ID)
}

// OpenDispute creates the single active dispute of this order
func (o *Order) OpenDispute(initiator Party, attachments []uuid.UUID, now time.Time) (*Dispute, error) {
	if o.ActiveDispute() != nil {
		return nil, Validationf("order %s already has an active dispute", o.ID)
	}
	d, err := NewDispute(o.ID, initiator, attachments, now)
	if err != nil {
		return nil, err
	}
	o.Disputes = append(o.Disputes, *d)
	o.UpdatedAt = now
	return &o.Disputes[len(o.Disputes)-1], nil
}
