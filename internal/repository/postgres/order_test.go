package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/repository"
	"rental-order-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRowColumns = []string{"id", "order_no", "user_id", "vendor_id", "status", "plan_type", "deposit_cents", "rent_cents", "buyout_cents", "total_cents",
	"lease_months", "lease_start_at", "lease_end_at", "extension_count", "shipping_carrier", "shipping_tracking_no", "created_at", "updated_at"}

func newTestOrder(t *testing.T) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(domain.NewOrderParams{
		UserID:       uuid.New(),
		VendorID:     uuid.New(),
		PlanType:     "MONTHLY",
		DepositCents: 50000,
		RentCents:    12000,
		BuyoutCents:  300000,
		TotalCents:   62000,
		LeaseMonths:  3,
		Items:        []domain.OrderItem{{SkuID: uuid.New(), ProductID: uuid.New(), Quantity: 1, UnitRentCents: 12000}},
	}, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return o
}

func TestOrderRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		o := newTestOrder(t)
		it := o.Items[0]

		mock.ExpectExec("INSERT INTO orders").
			WithArgs(o.ID, o.OrderNo, o.UserID, o.VendorID, o.Status, o.PlanType,
				o.DepositCents, o.RentCents, o.BuyoutCents, o.TotalCents,
				o.LeaseMonths, sqlmock.AnyArg(), sqlmock.AnyArg(), o.ExtensionCount,
				"", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(it.ID, o.ID, it.SkuID, it.ProductID, it.Quantity, it.UnitRentCents).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO order_events").
			WithArgs(o.Events[0].ID, o.ID, domain.EventOrderCreated, sqlmock.AnyArg(), sqlmock.AnyArg(), domain.RoleUser, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(ctx, o)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.MarkPaid(o.CreatedAt.Add(time.Minute)))
		o.Events = nil

		mock.ExpectExec("UPDATE orders SET status=\\$1").
			WithArgs(domain.OrderStatusAwaitingShipment, o.BuyoutCents, sqlmock.AnyArg(), sqlmock.AnyArg(), 0,
				"", "", sqlmock.AnyArg(), o.ID, domain.OrderStatusPendingPayment).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Save(ctx, o, domain.OrderStatusPendingPayment)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsertsOnlyNewEvents", func(t *testing.T) {
		o := newTestOrder(t)
		o.MarkEventsSaved()
		now := o.CreatedAt.Add(time.Minute)
		require.NoError(t, o.MarkPaid(now))
		paid := o.Record(domain.EventPaymentConfirmed, domain.Actor{ID: o.UserID, Role: domain.RoleUser}, "paid", nil, now)

		mock.ExpectExec("UPDATE orders SET status=\\$1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO order_events").
			WithArgs(paid.ID, o.ID, domain.EventPaymentConfirmed, "paid", sqlmock.AnyArg(), domain.RoleUser, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Save(ctx, o, domain.OrderStatusPendingPayment))
		assert.Empty(t, o.UnsavedEvents())

		mock.ExpectExec("UPDATE orders SET status=\\$1").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Save(ctx, o, domain.OrderStatusAwaitingShipment))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StaleStatus", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Cancel(o.CreatedAt.Add(time.Minute)))

		mock.ExpectExec("UPDATE orders SET status=\\$1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(ctx, o, domain.OrderStatusPendingPayment)
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UpsertsDisputeAndRequests", func(t *testing.T) {
		o := newTestOrder(t)
		o.Status = domain.OrderStatusInLease
		o.Events = nil
		now := o.CreatedAt.Add(time.Hour)
		_, err := o.OpenDispute(domain.Party{Role: domain.RoleUser, ID: o.UserID, Option: domain.ResolutionRedeliver, Reason: "scratched"}, nil, now)
		require.NoError(t, err)
		_, err = o.OpenExtensionRequest(domain.Actor{ID: o.UserID, Role: domain.RoleUser}, 2, "", now)
		require.NoError(t, err)

		mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO disputes (.+) ON CONFLICT \\(id\\) DO UPDATE").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO extension_requests").
			WithArgs(o.ExtensionRequests[0].ID, o.ID, domain.RequestStatusPending, 2, o.UserID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Save(ctx, o, domain.OrderStatusInLease)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		id, userID, vendorID, skuID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
		disputeID, proofID := uuid.New(), uuid.New()
		created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		start := created.Add(24 * time.Hour)

		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1 FOR UPDATE").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(orderRowColumns).
				AddRow(id.String(), "20240601090000ABC123", userID.String(), vendorID.String(), "IN_LEASE", "MONTHLY", 50000, 12000, 300000, 62000,
					3, start, nil, 1, "SF", "T1", created, start))
		mock.ExpectQuery("SELECT (.+) FROM order_items WHERE order_id = \\$1").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sku_id", "product_id", "quantity", "unit_rent_cents"}).
				AddRow(uuid.NewString(), skuID.String(), uuid.NewString(), 2, 6000))
		mock.ExpectQuery("SELECT (.+) FROM order_events WHERE order_id = \\$1").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "type", "description", "actor_id", "actor_role", "attributes", "created_at"}).
				AddRow(uuid.NewString(), id.String(), "ORDER_SHIPPED", "shipped", vendorID.String(), "VENDOR", []byte(`{"carrier":"SF"}`), start).
				AddRow(uuid.NewString(), id.String(), "DISPUTE_ESCALATED", "escalated", nil, "INTERNAL", nil, start))
		mock.ExpectQuery("SELECT (.+) FROM disputes WHERE order_id = \\$1").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(disputeRowColumns).
				AddRow(disputeRow(disputeID, id, userID, proofID, start)...))
		mock.ExpectQuery("SELECT (.+) FROM extension_requests WHERE order_id = \\$1").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("SELECT (.+) FROM return_requests WHERE order_id = \\$1").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		o, err := repo.GetForUpdate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusInLease, o.Status)
		assert.Equal(t, 3, o.LeaseMonths)
		require.NotNil(t, o.LeaseStartAt)
		assert.Nil(t, o.LeaseEndAt)
		require.Len(t, o.Items, 1)
		assert.Equal(t, skuID, o.Items[0].SkuID)
		require.Len(t, o.Events, 2)
		assert.Empty(t, o.UnsavedEvents())
		assert.Equal(t, "SF", o.Events[0].Attributes["carrier"])
		require.NotNil(t, o.Events[0].ActorID)
		assert.Nil(t, o.Events[1].ActorID)
		require.Len(t, o.Disputes, 1)
		assert.Equal(t, []uuid.UUID{proofID}, o.Disputes[0].AttachmentProofIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1 FOR UPDATE").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetForUpdate(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOrderRepository_ListExpiredPendingPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()
	cutoff := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT id FROM orders WHERE status = \\$1 AND created_at < \\$2").
		WithArgs(domain.OrderStatusPendingPayment, cutoff, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(a.String()).AddRow(b.String()))

	ids, err := repo.ListExpiredPendingPayment(ctx, cutoff, 100)
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
}

func TestOrderRepository_ListOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	userID, vendorID := uuid.New(), uuid.New()

	t.Run("ByUserAndStatus", func(t *testing.T) {
		id := uuid.New()
		filter := repository.OrderFilter{UserID: &userID, Status: domain.OrderStatusInLease}
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM orders WHERE").
			WithArgs(uuid.NullUUID{UUID: userID, Valid: true}, uuid.NullUUID{}, domain.OrderStatusInLease).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE (.+) ORDER BY created_at DESC, id LIMIT \\$4 OFFSET \\$5").
			WithArgs(uuid.NullUUID{UUID: userID, Valid: true}, uuid.NullUUID{}, domain.OrderStatusInLease, int32(5), int32(5)).
			WillReturnRows(sqlmock.NewRows(orderRowColumns).
				AddRow(id.String(), "20240601090000ABC123", userID.String(), vendorID.String(), "IN_LEASE", "MONTHLY", 50000, 12000, 300000, 62000,
					3, created, nil, 0, "SF", "T1", created, created))

		orders, count, err := repo.ListOrders(ctx, filter, 5, 5)
		require.NoError(t, err)
		assert.Equal(t, int32(7), count)
		require.Len(t, orders, 1)
		assert.Equal(t, id, orders[0].ID)
		assert.Equal(t, domain.OrderStatusInLease, orders[0].Status)
		require.NotNil(t, orders[0].LeaseStartAt)
		assert.Nil(t, orders[0].LeaseEndAt)
		assert.Empty(t, orders[0].Events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unfiltered", func(t *testing.T) {
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM orders WHERE").
			WithArgs(uuid.NullUUID{}, uuid.NullUUID{}, domain.OrderStatus("")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE").
			WithArgs(uuid.NullUUID{}, uuid.NullUUID{}, domain.OrderStatus(""), int32(20), int32(0)).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		orders, count, err := repo.ListOrders(ctx, repository.OrderFilter{}, 20, 0)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Empty(t, orders)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
