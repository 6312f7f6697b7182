package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_no, user_id, vendor_id, status, plan_type, deposit_cents, rent_cents, buyout_cents, total_cents,
	lease_months, lease_start_at, lease_end_at, extension_count, shipping_carrier, shipping_tracking_no, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	q := conn(ctx, r.db)
	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	logger.DatabaseCall("INSERT", "orders", "orderID", o.ID, "orderNo", o.OrderNo)
	_, err := q.ExecContext(ctx, query,
		o.ID, o.OrderNo, o.UserID, o.VendorID, o.Status, o.PlanType,
		o.DepositCents, o.RentCents, o.BuyoutCents, o.TotalCents,
		o.LeaseMonths, o.LeaseStartAt, o.LeaseEndAt, o.ExtensionCount,
		o.ShippingCarrier, o.ShippingTrackingNo, o.CreatedAt, o.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "orderID", o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, sku_id, product_id, quantity, unit_rent_cents) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, it := range o.Items {
		if _, err := q.ExecContext(ctx, itemQuery, it.ID, o.ID, it.SkuID, it.ProductID, it.Quantity, it.UnitRentCents); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return saveChildren(ctx, q, o)
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return loadOrder(ctx, conn(ctx, r.db), id, false)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return loadOrder(ctx, conn(ctx, r.db), id, true)
}

func (r *orderRepository) Save(ctx context.Context, o *domain.Order, expected domain.OrderStatus) error {
	q := conn(ctx, r.db)
	query := `UPDATE orders SET status=$1, buyout_cents=$2, lease_start_at=$3, lease_end_at=$4, extension_count=$5,
	          shipping_carrier=$6, shipping_tracking_no=$7, updated_at=$8
	          WHERE id=$9 AND status=$10`
	logger.DatabaseCall("UPDATE", "orders", "orderID", o.ID, "from", expected, "to", o.Status)
	result, err := q.ExecContext(ctx, query,
		o.Status, o.BuyoutCents, o.LeaseStartAt, o.LeaseEndAt, o.ExtensionCount,
		o.ShippingCarrier, o.ShippingTrackingNo, o.UpdatedAt, o.ID, expected)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "orderID", o.ID)
		return fmt.Errorf("update order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil, "orderID", o.ID)
	if rows == 0 {
		return fmt.Errorf("order %s no longer %s: %w", o.ID, expected, domain.ErrConcurrentModification)
	}
	return saveChildren(ctx, q, o)
}

func (r *orderRepository) ListExpiredPendingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, domain.OrderStatusPendingPayment, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *orderRepository) ListOrders(ctx context.Context, filter repository.OrderFilter, limit, offset int32) ([]domain.Order, int32, error) {
	q := conn(ctx, r.db)
	where := ` WHERE ($1::uuid IS NULL OR user_id = $1) AND ($2::uuid IS NULL OR vendor_id = $2) AND ($3 = '' OR status = $3)`
	userID, vendorID := nullUUID(filter.UserID), nullUUID(filter.VendorID)

	var count int32
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM orders`+where, userID, vendorID, filter.Status).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, id LIMIT $4 OFFSET $5`
	logger.DatabaseCall("SELECT", "orders", "userID", filter.UserID, "vendorID", filter.VendorID, "status", filter.Status)
	rows, err := q.QueryContext(ctx, query, userID, vendorID, filter.Status, limit, offset)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	logger.DatabaseResult("SELECT", int64(len(orders)), nil, "total", count)
	return orders, count, nil
}

func loadOrder(ctx context.Context, q dbtx, id uuid.UUID, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	o, err := scanOrder(q.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if o.Items, err = loadItems(ctx, q, id); err != nil {
		return nil, err
	}
	if o.Events, err = loadEvents(ctx, q, id); err != nil {
		return nil, err
	}
	o.MarkEventsSaved()
	if o.Disputes, err = listDisputes(ctx, q, id); err != nil {
		return nil, err
	}
	if o.ExtensionRequests, err = loadExtensionRequests(ctx, q, id); err != nil {
		return nil, err
	}
	if o.ReturnRequests, err = loadReturnRequests(ctx, q, id); err != nil {
		return nil, err
	}
	return o, nil
}

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	o := &domain.Order{}
	var leaseStart, leaseEnd sql.NullTime
	err := scan(
		&o.ID, &o.OrderNo, &o.UserID, &o.VendorID, &o.Status, &o.PlanType,
		&o.DepositCents, &o.RentCents, &o.BuyoutCents, &o.TotalCents,
		&o.LeaseMonths, &leaseStart, &leaseEnd, &o.ExtensionCount,
		&o.ShippingCarrier, &o.ShippingTrackingNo, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.LeaseStartAt = timePtr(leaseStart)
	o.LeaseEndAt = timePtr(leaseEnd)
	return o, nil
}

func loadItems(ctx context.Context, q dbtx, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, sku_id, product_id, quantity, unit_rent_cents FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.SkuID, &it.ProductID, &it.Quantity, &it.UnitRentCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func loadEvents(ctx context.Context, q dbtx, orderID uuid.UUID) ([]domain.OrderEvent, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, order_id, type, description, actor_id, actor_role, attributes, created_at
	        FROM order_events WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order events: %w", err)
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var ev domain.OrderEvent
		var actorID uuid.NullUUID
		var attrs []byte
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.Type, &ev.Description, &actorID, &ev.ActorRole, &attrs, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.ActorID = uuidPtr(actorID)
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &ev.Attributes); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func loadExtensionRequests(ctx context.Context, q dbtx, orderID uuid.UUID) ([]domain.ExtensionRequest, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, order_id, status, additional_months, requested_by, requested_at, decision_by, decision_at, remark
	        FROM extension_requests WHERE order_id = $1 ORDER BY requested_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load extension requests: %w", err)
	}
	defer rows.Close()

	var reqs []domain.ExtensionRequest
	for rows.Next() {
		var req domain.ExtensionRequest
		var by uuid.NullUUID
		var at sql.NullTime
		if err := rows.Scan(&req.ID, &req.OrderID, &req.Status, &req.AdditionalMonths, &req.RequestedBy, &req.RequestedAt, &by, &at, &req.Remark); err != nil {
			return nil, err
		}
		req.DecisionBy = uuidPtr(by)
		req.DecisionAt = timePtr(at)
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func loadReturnRequests(ctx context.Context, q dbtx, orderID uuid.UUID) ([]domain.ReturnRequest, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, order_id, status, reason, logistics_company, tracking_number, requested_by, requested_at, decision_by, decision_at, remark
	        FROM return_requests WHERE order_id = $1 ORDER BY requested_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load return requests: %w", err)
	}
	defer rows.Close()

	var reqs []domain.ReturnRequest
	for rows.Next() {
		var req domain.ReturnRequest
		var by uuid.NullUUID
		var at sql.NullTime
		if err := rows.Scan(&req.ID, &req.OrderID, &req.Status, &req.Reason, &req.LogisticsCompany, &req.TrackingNumber, &req.RequestedBy, &req.RequestedAt, &by, &at, &req.Remark); err != nil {
			return nil, err
		}
		req.DecisionBy = uuidPtr(by)
		req.DecisionAt = timePtr(at)
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// saveChildren writes the owned collections. Only events recorded since the
// last load or save are inserted; the other children are keyed upserts.
func saveChildren(ctx context.Context, q dbtx, o *domain.Order) error {
	eventQuery := `INSERT INTO order_events (id, order_id, type, description, actor_id, actor_role, attributes, created_at)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`
	for _, ev := range o.UnsavedEvents() {
		attrs, err := json.Marshal(ev.Attributes)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, eventQuery, ev.ID, o.ID, ev.Type, ev.Description, ev.ActorID, ev.ActorRole, attrs, ev.CreatedAt); err != nil {
			return fmt.Errorf("insert order event: %w", err)
		}
	}

	for i := range o.Disputes {
		if err := upsertDispute(ctx, q, &o.Disputes[i]); err != nil {
			return err
		}
	}

	extQuery := `INSERT INTO extension_requests (id, order_id, status, additional_months, requested_by, requested_at, decision_by, decision_at, remark)
	             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	             ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, decision_by = EXCLUDED.decision_by,
	             decision_at = EXCLUDED.decision_at, remark = EXCLUDED.remark`
	for _, req := range o.ExtensionRequests {
		if _, err := q.ExecContext(ctx, extQuery, req.ID, o.ID, req.Status, req.AdditionalMonths, req.RequestedBy, req.RequestedAt, req.DecisionBy, req.DecisionAt, req.Remark); err != nil {
			return fmt.Errorf("save extension request: %w", err)
		}
	}

	retQuery := `INSERT INTO return_requests (id, order_id, status, reason, logistics_company, tracking_number, requested_by, requested_at, decision_by, decision_at, remark)
	             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	             ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, decision_by = EXCLUDED.decision_by,
	             decision_at = EXCLUDED.decision_at, remark = EXCLUDED.remark`
	for _, req := range o.ReturnRequests {
		if _, err := q.ExecContext(ctx, retQuery, req.ID, o.ID, req.Status, req.Reason, req.LogisticsCompany, req.TrackingNumber, req.RequestedBy, req.RequestedAt, req.DecisionBy, req.DecisionAt, req.Remark); err != nil {
			return fmt.Errorf("save return request: %w", err)
		}
	}
	o.MarkEventsSaved()
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(u uuid.NullUUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	v := u.UUID
	return &v
}
