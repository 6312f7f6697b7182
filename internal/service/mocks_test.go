package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-order-backend/internal/client"
	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/notify"
	"rental-order-backend/internal/repository/memory"
	"rental-order-backend/internal/service"
	"rental-order-backend/internal/storage"
)

type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) Reserve(ctx context.Context, ref string, lines []domain.InventoryLine) error {
	return m.Called(ctx, ref, lines).Error(0)
}
func (m *MockInventory) Release(ctx context.Context, ref string, lines []domain.InventoryLine) error {
	return m.Called(ctx, ref, lines).Error(0)
}
func (m *MockInventory) Outbound(ctx context.Context, ref string, lines []domain.InventoryLine) error {
	return m.Called(ctx, ref, lines).Error(0)
}
func (m *MockInventory) Inbound(ctx context.Context, ref string, lines []domain.InventoryLine) error {
	return m.Called(ctx, ref, lines).Error(0)
}

type MockCredit struct {
	mock.Mock
}

func (m *MockCredit) AdjustCredit(ctx context.Context, userID uuid.UUID, delta int, reason string) error {
	return m.Called(ctx, userID, delta, reason).Error(0)
}
func (m *MockCredit) RecordCreditEvent(ctx context.Context, userID uuid.UUID, eventType domain.CreditEventType, attrs map[string]string) error {
	return m.Called(ctx, userID, eventType, attrs).Error(0)
}
func (m *MockCredit) FreezeAccount(ctx context.Context, userID uuid.UUID, d time.Duration, reason string) error {
	return m.Called(ctx, userID, d, reason).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, req notify.Request) error {
	return m.Called(ctx, req).Error(0)
}

// sent lists the (recipient, template) pairs in call order
func (m *MockNotifier) sent() []sentNote {
	var out []sentNote
	for _, c := range m.Calls {
		req := c.Arguments.Get(1).(notify.Request)
		out = append(out, sentNote{req.RecipientID, req.TemplateCode})
	}
	return out
}

type sentNote struct {
	To       uuid.UUID
	Template string
}

type MockAdvisor struct {
	mock.Mock
}

func (m *MockAdvisor) Suggest(ctx context.Context, snapshot client.DisputeSnapshot) (*domain.Suggestion, error) {
	args := m.Called(ctx, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Suggestion), args.Error(1)
}

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	store     *memory.Store
	clock     *clock.Manual
	inventory *MockInventory
	credit    *MockCredit
	notifier  *MockNotifier
	advisor   *MockAdvisor
	orders    service.OrderService
	disputes  service.DisputeService
	proofs    service.ProofService
	files     *storage.LocalStore
	fileRoot  string

	user   domain.Actor
	vendor domain.Actor
	admin  domain.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     memory.NewStore(),
		clock:     clock.NewManual(t0),
		inventory: new(MockInventory),
		credit:    new(MockCredit),
		notifier:  new(MockNotifier),
		advisor:   new(MockAdvisor),
		user:      domain.Actor{ID: uuid.New(), Role: domain.RoleUser},
		vendor:    domain.Actor{ID: uuid.New(), Role: domain.RoleVendor},
		admin:     domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
	}
	for _, op := range []string{"Reserve", "Release", "Outbound", "Inbound"} {
		h.inventory.On(op, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	}
	h.credit.On("AdjustCredit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.credit.On("RecordCreditEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.credit.On("FreezeAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	coord := service.NewCoordinator(h.inventory, h.credit, h.notifier)
	h.orders = service.NewOrderService(h.store, h.store.OrderRepository, coord, h.clock)
	h.disputes = service.NewDisputeService(h.store, h.store.OrderRepository, h.store.DisputeRepository, h.store.ProofRepository, coord, h.advisor, h.clock)

	h.fileRoot = t.TempDir()
	files, err := storage.NewLocalStore(h.fileRoot, 64)
	require.NoError(t, err)
	h.files = files
	policy := storage.Policy{MaxBytes: 64, AllowedContentTypes: []string{"image/jpeg", "application/pdf"}}
	h.proofs = service.NewProofService(h.store, h.store.OrderRepository, h.store.ProofRepository, files, policy, coord, h.clock)
	return h
}

// reset forgets recorded calls so a test can assert on one step only
func (h *harness) reset() {
	h.inventory.Calls = nil
	h.credit.Calls = nil
	h.notifier.Calls = nil
}

func (h *harness) createOrder(t *testing.T) *domain.Order {
	t.Helper()
	o, err := h.orders.CreateOrder(context.Background(), h.user, service.CreateOrderInput{
		VendorID:     h.vendor.ID,
		PlanType:     "STANDARD",
		DepositCents: 50000,
		RentCents:    12000,
		BuyoutCents:  300000,
		TotalCents:   62000,
		LeaseMonths:  3,
		Items: []domain.OrderItem{
			{SkuID: uuid.New(), ProductID: uuid.New(), Quantity: 1, UnitRentCents: 8000},
			{SkuID: uuid.New(), ProductID: uuid.New(), Quantity: 2, UnitRentCents: 2000},
		},
	})
	require.NoError(t, err)
	return o
}

// leasedOrder returns an order that has been paid and shipped
func (h *harness) leasedOrder(t *testing.T) *domain.Order {
	t.Helper()
	ctx := context.Background()
	o := h.createOrder(t)
	_, err := h.orders.ConfirmPayment(ctx, h.user, o.ID)
	require.NoError(t, err)
	o, err = h.orders.ShipOrder(ctx, h.vendor, o.ID, service.ShipInput{Carrier: "SF", TrackingNo: "T1"})
	require.NoError(t, err)
	return o
}

func (h *harness) status(t *testing.T, orderID uuid.UUID) domain.OrderStatus {
	t.Helper()
	o, err := h.store.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	return o.Status
}
