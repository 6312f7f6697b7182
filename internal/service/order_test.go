package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/notify"
	"rental-order-backend/internal/service"
)

func TestOrderService_HappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	o := h.createOrder(t)
	assert.Equal(t, domain.OrderStatusPendingPayment, o.Status)
	h.inventory.AssertCalled(t, "Reserve", mock.Anything, o.OrderNo, o.InventoryLines())
	assert.Contains(t, h.notifier.sent(), sentNote{h.vendor.ID, notify.TemplateOrderCreated})

	h.clock.Advance(10 * time.Minute)
	paid, err := h.orders.ConfirmPayment(ctx, h.user, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusAwaitingShipment, paid.Status)
	h.credit.AssertCalled(t, "RecordCreditEvent", mock.Anything, h.user.ID, domain.CreditEventOnTimePayment, mock.Anything)

	h.clock.Advance(time.Hour)
	shipped, err := h.orders.ShipOrder(ctx, h.vendor, o.ID, service.ShipInput{Carrier: "SF", TrackingNo: "T1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInLease, shipped.Status)
	require.NotNil(t, shipped.LeaseStartAt)
	assert.Equal(t, h.clock.Now(), *shipped.LeaseStartAt)
	require.NotNil(t, shipped.LeaseEndAt)
	assert.Equal(t, h.clock.Now().AddDate(0, 3, 0), *shipped.LeaseEndAt)
	h.inventory.AssertNumberOfCalls(t, "Outbound", 1)
	assert.Contains(t, h.notifier.sent(), sentNote{h.user.ID, notify.TemplateOrderShipped})

	received, err := h.orders.ConfirmReceive(ctx, h.user, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInLease, received.Status)

	var types []domain.EventType
	for _, ev := range received.Events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []domain.EventType{
		domain.EventOrderCreated,
		domain.EventPaymentConfirmed,
		domain.EventOrderShipped,
		domain.EventOrderReceived,
	}, types)
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("OnlyUsers", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.orders.CreateOrder(ctx, h.vendor, service.CreateOrderInput{VendorID: uuid.New()})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		h.inventory.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ValidationError", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.orders.CreateOrder(ctx, h.user, service.CreateOrderInput{VendorID: h.vendor.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, h.notifier.Calls)
	})
}

func TestOrderService_Authorization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.createOrder(t)

	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleUser}
	_, err := h.orders.ConfirmPayment(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.orders.ConfirmPayment(ctx, h.vendor, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.orders.GetOrder(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := h.orders.GetOrder(ctx, h.admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = h.orders.ConfirmPayment(ctx, domain.SystemActor(), o.ID)
	require.NoError(t, err)

	otherVendor := domain.Actor{ID: uuid.New(), Role: domain.RoleVendor}
	_, err = h.orders.ShipOrder(ctx, otherVendor, o.ID, service.ShipInput{Carrier: "SF", TrackingNo: "T1"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.OrderStatusAwaitingShipment, h.status(t, o.ID))
}

func TestOrderService_InvalidTransitionHasNoEffects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.createOrder(t)
	h.reset()

	_, err := h.orders.ShipOrder(ctx, h.vendor, o.ID, service.ShipInput{Carrier: "SF", TrackingNo: "T1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	var ise *domain.InvalidStateTransitionError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, string(domain.OrderStatusPendingPayment), ise.Actual)

	assert.Equal(t, domain.OrderStatusPendingPayment, h.status(t, o.ID))
	assert.Empty(t, h.inventory.Calls)
	assert.Empty(t, h.notifier.Calls)

	stored, err := h.store.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Events, 1)
}

func TestOrderService_UnknownOrder(t *testing.T) {
	h := newHarness(t)
	_, err := h.orders.ConfirmPayment(context.Background(), h.user, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderService_SideEffectFailureKeepsTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.createOrder(t)

	h.inventory.ExpectedCalls = nil
	h.inventory.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("inventory down"))
	h.notifier.ExpectedCalls = nil
	h.notifier.On("Send", mock.Anything, mock.Anything).Panic("template exploded")

	cancelled, err := h.orders.CancelOrder(ctx, h.user, o.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.OrderStatusCancelled, h.status(t, o.ID))
	h.inventory.AssertNumberOfCalls(t, "Release", 1)
}

func TestOrderService_CancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminMayCancel", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		_, err := h.orders.CancelOrder(ctx, h.admin, o.ID, "fraud check")
		require.NoError(t, err)
		h.inventory.AssertCalled(t, "Release", mock.Anything, o.OrderNo, o.InventoryLines())
	})

	t.Run("PaidOrderCannotBeCancelled", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		_, err := h.orders.ConfirmPayment(ctx, h.user, o.ID)
		require.NoError(t, err)

		_, err = h.orders.CancelOrder(ctx, h.user, o.ID, "too late")
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		h.inventory.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderService_CancelExpiredOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("NotYetDue", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		applied, err := h.orders.CancelExpiredOrder(ctx, o.ID, o.CreatedAt)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, domain.OrderStatusPendingPayment, h.status(t, o.ID))
	})

	t.Run("Expired", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		h.reset()
		h.clock.Advance(31 * time.Minute)

		applied, err := h.orders.CancelExpiredOrder(ctx, o.ID, h.clock.Now().Add(-30*time.Minute))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, domain.OrderStatusCancelled, h.status(t, o.ID))
		h.inventory.AssertNumberOfCalls(t, "Release", 1)
		assert.ElementsMatch(t, []sentNote{
			{h.user.ID, notify.TemplateOrderExpired},
			{h.vendor.ID, notify.TemplateOrderExpired},
		}, h.notifier.sent())
	})

	t.Run("PaidInTheMeantime", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		_, err := h.orders.ConfirmPayment(ctx, h.user, o.ID)
		require.NoError(t, err)
		h.clock.Advance(time.Hour)

		applied, err := h.orders.CancelExpiredOrder(ctx, o.ID, h.clock.Now())
		assert.False(t, applied)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		assert.Equal(t, domain.OrderStatusAwaitingShipment, h.status(t, o.ID))
	})
}

func TestOrderService_ConcurrentPaymentAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.createOrder(t)
	h.reset()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.orders.ConfirmPayment(ctx, h.user, o.ID)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInvalidStateTransition):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	h.credit.AssertNumberOfCalls(t, "RecordCreditEvent", 1)
}

func TestOrderService_Extension(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.leasedOrder(t)
	end := *o.LeaseEndAt

	o, err := h.orders.ApplyExtension(ctx, h.user, o.ID, 2, "need longer")
	require.NoError(t, err)
	require.Len(t, o.ExtensionRequests, 1)
	reqID := o.ExtensionRequests[0].ID

	_, err = h.orders.ApplyExtension(ctx, h.user, o.ID, 1, "again")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.orders.DecideExtension(ctx, h.user, o.ID, reqID, true, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	o, err = h.orders.DecideExtension(ctx, h.vendor, o.ID, reqID, true, "ok")
	require.NoError(t, err)
	assert.Equal(t, 1, o.ExtensionCount)
	assert.Equal(t, end.AddDate(0, 2, 0), *o.LeaseEndAt)
	assert.Equal(t, domain.RequestStatusApproved, o.ExtensionRequests[0].Status)
	assert.Contains(t, h.notifier.sent(), sentNote{h.user.ID, notify.TemplateExtensionDecided})

	_, err = h.orders.DecideExtension(ctx, h.vendor, o.ID, reqID, false, "changed")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestOrderService_ReturnFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("EarlyReturnApproved", func(t *testing.T) {
		h := newHarness(t)
		o := h.leasedOrder(t)
		h.reset()
		h.clock.Advance(30 * 24 * time.Hour)

		o, err := h.orders.ApplyReturn(ctx, h.user, o.ID, service.ReturnInput{Reason: "done"})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusReturnRequested, o.Status)
		reqID := o.ReturnRequests[0].ID

		o, err = h.orders.MarkReturnInTransit(ctx, h.user, o.ID, service.ShipInput{Carrier: "SF", TrackingNo: "R1"})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusReturnInProgress, o.Status)

		o, err = h.orders.DecideReturn(ctx, h.vendor, o.ID, reqID, true, "received in good shape")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCompleted, o.Status)
		assert.Equal(t, h.clock.Now(), *o.LeaseEndAt)
		h.inventory.AssertNumberOfCalls(t, "Inbound", 1)
		h.credit.AssertCalled(t, "RecordCreditEvent", mock.Anything, h.user.ID, domain.CreditEventEarlyReturn, mock.Anything)
	})

	t.Run("LateReturnEarnsNoCredit", func(t *testing.T) {
		h := newHarness(t)
		o := h.leasedOrder(t)
		h.clock.Set(o.LeaseEndAt.Add(48 * time.Hour))
		h.reset()

		o, err := h.orders.ApplyReturn(ctx, h.user, o.ID, service.ReturnInput{Reason: "late"})
		require.NoError(t, err)
		_, err = h.orders.DecideReturn(ctx, h.admin, o.ID, o.ReturnRequests[0].ID, true, "")
		require.NoError(t, err)
		h.credit.AssertNotCalled(t, "RecordCreditEvent", mock.Anything, mock.Anything, domain.CreditEventEarlyReturn, mock.Anything)
	})

	t.Run("OpenEndedLeaseCountsAsOnTime", func(t *testing.T) {
		h := newHarness(t)
		o, err := h.orders.CreateOrder(ctx, h.user, service.CreateOrderInput{
			VendorID: h.vendor.ID,
			Items:    []domain.OrderItem{{SkuID: uuid.New(), Quantity: 1}},
		})
		require.NoError(t, err)
		_, err = h.orders.ConfirmPayment(ctx, h.user, o.ID)
		require.NoError(t, err)
		o, err = h.orders.ShipOrder(ctx, h.vendor, o.ID, service.ShipInput{Carrier: "SF", TrackingNo: "T1"})
		require.NoError(t, err)
		require.Nil(t, o.LeaseEndAt)

		h.clock.Advance(400 * 24 * time.Hour)
		h.reset()
		o, err = h.orders.ApplyReturn(ctx, h.user, o.ID, service.ReturnInput{Reason: "done"})
		require.NoError(t, err)
		_, err = h.orders.DecideReturn(ctx, h.vendor, o.ID, o.ReturnRequests[0].ID, true, "")
		require.NoError(t, err)
		h.credit.AssertCalled(t, "RecordCreditEvent", mock.Anything, h.user.ID, domain.CreditEventEarlyReturn, mock.Anything)
	})

	t.Run("RejectedResumesLease", func(t *testing.T) {
		h := newHarness(t)
		o := h.leasedOrder(t)

		o, err := h.orders.ApplyReturn(ctx, h.user, o.ID, service.ReturnInput{Reason: "meh"})
		require.NoError(t, err)
		o, err = h.orders.DecideReturn(ctx, h.vendor, o.ID, o.ReturnRequests[0].ID, false, "contract runs on")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusInLease, o.Status)
		assert.Equal(t, domain.RequestStatusRejected, o.ReturnRequests[0].Status)
		h.inventory.AssertNotCalled(t, "Inbound", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderService_Buyout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.leasedOrder(t)

	o, err := h.orders.ApplyBuyout(ctx, h.user, o.ID, 250000, "please")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusBuyoutRequested, o.Status)
	assert.Equal(t, int64(250000), o.BuyoutCents)

	o, err = h.orders.DecideBuyout(ctx, h.vendor, o.ID, false, "too low")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInLease, o.Status)

	o, err = h.orders.ApplyBuyout(ctx, h.user, o.ID, 0, "original price then")
	require.NoError(t, err)
	assert.Equal(t, int64(250000), o.BuyoutCents)

	o, err = h.orders.DecideBuyout(ctx, h.vendor, o.ID, true, "deal")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusBuyoutCompleted, o.Status)
	assert.Equal(t, h.clock.Now(), *o.LeaseEndAt)

	_, err = h.orders.ApplyBuyout(ctx, h.user, o.ID, 1000, "")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestOrderService_ForceClose(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminOnly", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		_, err := h.orders.ForceClose(ctx, h.vendor, o.ID, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("ReleasesStockBeforeShipment", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		_, err := h.orders.ConfirmPayment(ctx, h.user, o.ID)
		require.NoError(t, err)
		h.reset()

		o, err = h.orders.ForceClose(ctx, h.admin, o.ID, "vendor vanished")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusExceptionClosed, o.Status)
		h.inventory.AssertNumberOfCalls(t, "Release", 1)
		assert.Len(t, h.notifier.sent(), 2)
	})

	t.Run("KeepsStockAfterShipment", func(t *testing.T) {
		h := newHarness(t)
		o := h.leasedOrder(t)
		_, err := h.orders.ForceClose(ctx, h.admin, o.ID, "lost")
		require.NoError(t, err)
		h.inventory.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)

		_, err = h.orders.ForceClose(ctx, h.admin, o.ID, "again")
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.createOrder(t)
	h.clock.Advance(time.Minute)
	second := h.createOrder(t)
	_, err := h.orders.ConfirmPayment(ctx, h.user, second.ID)
	require.NoError(t, err)

	other := domain.Actor{ID: uuid.New(), Role: domain.RoleUser}
	_, err = h.orders.CreateOrder(ctx, other, service.CreateOrderInput{
		VendorID:    uuid.New(),
		LeaseMonths: 1,
		Items:       []domain.OrderItem{{SkuID: uuid.New(), Quantity: 1}},
	})
	require.NoError(t, err)

	t.Run("UserSeesOwnOrdersNewestFirst", func(t *testing.T) {
		page, err := h.orders.ListOrdersForUser(ctx, h.user, "", 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int32(2), page.Total)
		require.Len(t, page.Orders, 2)
		assert.Equal(t, second.ID, page.Orders[0].ID)
		assert.Equal(t, first.ID, page.Orders[1].ID)
		assert.Empty(t, page.Orders[0].Events)
	})

	t.Run("StatusFilterAndPaging", func(t *testing.T) {
		page, err := h.orders.ListOrdersForVendor(ctx, h.vendor, domain.OrderStatusPendingPayment, 1, 10)
		require.NoError(t, err)
		require.Len(t, page.Orders, 1)
		assert.Equal(t, first.ID, page.Orders[0].ID)

		page, err = h.orders.ListOrdersForUser(ctx, h.user, "", 2, 1)
		require.NoError(t, err)
		assert.Equal(t, int32(2), page.Total)
		require.Len(t, page.Orders, 1)
		assert.Equal(t, first.ID, page.Orders[0].ID)

		page, err = h.orders.ListOrdersForUser(ctx, h.user, "", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int32(1), page.Page)
		assert.Equal(t, int32(20), page.PageSize)
	})

	t.Run("AdminFilters", func(t *testing.T) {
		page, err := h.orders.ListOrdersForAdmin(ctx, h.admin, service.OrderQuery{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int32(3), page.Total)

		page, err = h.orders.ListOrdersForAdmin(ctx, h.admin, service.OrderQuery{UserID: &other.ID}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int32(1), page.Total)

		_, err = h.orders.ListOrdersForAdmin(ctx, h.admin, service.OrderQuery{UserID: &h.user.ID, VendorID: &h.vendor.ID}, 1, 10)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("RoleChecks", func(t *testing.T) {
		_, err := h.orders.ListOrdersForUser(ctx, h.vendor, "", 1, 10)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = h.orders.ListOrdersForVendor(ctx, h.user, "", 1, 10)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = h.orders.ListOrdersForAdmin(ctx, h.vendor, service.OrderQuery{}, 1, 10)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		_, err := h.orders.ListOrdersForUser(ctx, h.user, "SHIPPED", 1, 10)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("EmptyPage", func(t *testing.T) {
		page, err := h.orders.ListOrdersForUser(ctx, h.user, "", 5, 10)
		require.NoError(t, err)
		assert.NotNil(t, page.Orders)
		assert.Empty(t, page.Orders)
	})
}

func TestOrderService_PostConversationMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("UserMessageReachesVendor", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		h.reset()

		o, err := h.orders.PostConversationMessage(ctx, h.user, o.ID, "  is it in stock?  ")
		require.NoError(t, err)
		last := o.Events[len(o.Events)-1]
		assert.Equal(t, domain.EventCommunicationNote, last.Type)
		assert.Equal(t, "is it in stock?", last.Description)
		assert.Equal(t, domain.RoleUser, last.ActorRole)
		assert.Equal(t, domain.OrderStatusPendingPayment, o.Status)
		assert.Equal(t, []sentNote{{h.vendor.ID, notify.TemplateOrderMessage}}, h.notifier.sent())

		stored, err := h.store.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EventCommunicationNote, stored.Events[len(stored.Events)-1].Type)
	})

	t.Run("VendorMessageReachesUser", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		h.reset()

		_, err := h.orders.PostConversationMessage(ctx, h.vendor, o.ID, "ships tomorrow")
		require.NoError(t, err)
		assert.Equal(t, []sentNote{{h.user.ID, notify.TemplateOrderMessage}}, h.notifier.sent())
	})

	t.Run("StaffMessageReachesBothParties", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		h.reset()

		_, err := h.orders.PostConversationMessage(ctx, h.admin, o.ID, "please settle this")
		require.NoError(t, err)
		assert.ElementsMatch(t, []sentNote{
			{h.user.ID, notify.TemplateOrderMessage},
			{h.vendor.ID, notify.TemplateOrderMessage},
		}, h.notifier.sent())
	})

	t.Run("LongMessageIsTruncatedInNotification", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		h.reset()

		_, err := h.orders.PostConversationMessage(ctx, h.user, o.ID, strings.Repeat("é", 200))
		require.NoError(t, err)
		req := h.notifier.Calls[0].Arguments.Get(1).(notify.Request)
		assert.Equal(t, strings.Repeat("é", 120)+"...", req.Variables["snippet"])
	})

	t.Run("Rejected", func(t *testing.T) {
		h := newHarness(t)
		o := h.createOrder(t)
		h.reset()

		_, err := h.orders.PostConversationMessage(ctx, h.user, o.ID, "   ")
		assert.ErrorIs(t, err, domain.ErrValidation)

		stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleVendor}
		_, err = h.orders.PostConversationMessage(ctx, stranger, o.ID, "hello")
		assert.ErrorIs(t, err, domain.ErrForbidden)

		assert.Empty(t, h.notifier.Calls)
		stored, err := h.store.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Events, 1)
	})
}
