package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/service"
)

type createOrderRequest struct {
	VendorID     uuid.UUID          `json:"vendor_id"`
	PlanType     string             `json:"plan_type"`
	DepositCents int64              `json:"deposit_cents"`
	RentCents    int64              `json:"rent_cents"`
	BuyoutCents  int64              `json:"buyout_cents"`
	TotalCents   int64              `json:"total_cents"`
	LeaseMonths  int                `json:"lease_months"`
	Items        []domain.OrderItem `json:"items"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type shipRequest struct {
	Carrier    string `json:"carrier"`
	TrackingNo string `json:"tracking_no"`
}

type extensionRequest struct {
	Months int    `json:"months"`
	Remark string `json:"remark"`
}

type decisionRequest struct {
	RequestID uuid.UUID `json:"request_id"`
	Approve   bool      `json:"approve"`
	Remark    string    `json:"remark"`
}

type returnRequest struct {
	Reason           string `json:"reason"`
	LogisticsCompany string `json:"logistics_company"`
	TrackingNumber   string `json:"tracking_number"`
}

type buyoutRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Remark      string `json:"remark"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type orderOp func(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error)

// orderAction decodes body (if any), then runs op against the order in the
// path and writes the resulting aggregate.
func (h *Handler) orderAction(w http.ResponseWriter, r *http.Request, body any, op orderOp) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if body != nil {
		if err := decodeJSON(w, r, body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	o, err := op(r.Context(), actorOf(r), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.CreateOrder(r.Context(), actorOf(r), service.CreateOrderInput{
		VendorID:     req.VendorID,
		PlanType:     req.PlanType,
		DepositCents: req.DepositCents,
		RentCents:    req.RentCents,
		BuyoutCents:  req.BuyoutCents,
		TotalCents:   req.TotalCents,
		LeaseMonths:  req.LeaseMonths,
		Items:        req.Items,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, nil, h.orders.GetOrder)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, nil, h.orders.ConfirmPayment)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.CancelOrder(ctx, actor, id, req.Reason)
	})
}

func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.ShipOrder(ctx, actor, id, service.ShipInput{Carrier: req.Carrier, TrackingNo: req.TrackingNo})
	})
}

func (h *Handler) ConfirmReceive(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, nil, h.orders.ConfirmReceive)
}

func (h *Handler) ApplyExtension(w http.ResponseWriter, r *http.Request) {
	var req extensionRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.ApplyExtension(ctx, actor, id, req.Months, req.Remark)
	})
}

func (h *Handler) DecideExtension(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.DecideExtension(ctx, actor, id, req.RequestID, req.Approve, req.Remark)
	})
}

func (h *Handler) ApplyReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.ApplyReturn(ctx, actor, id, service.ReturnInput{
			Reason:           req.Reason,
			LogisticsCompany: req.LogisticsCompany,
			TrackingNumber:   req.TrackingNumber,
		})
	})
}

func (h *Handler) MarkReturnInTransit(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.MarkReturnInTransit(ctx, actor, id, service.ShipInput{Carrier: req.Carrier, TrackingNo: req.TrackingNo})
	})
}

func (h *Handler) DecideReturn(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.DecideReturn(ctx, actor, id, req.RequestID, req.Approve, req.Remark)
	})
}

func (h *Handler) ApplyBuyout(w http.ResponseWriter, r *http.Request) {
	var req buyoutRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.ApplyBuyout(ctx, actor, id, req.AmountCents, req.Remark)
	})
}

func (h *Handler) DecideBuyout(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.DecideBuyout(ctx, actor, id, req.Approve, req.Remark)
	})
}

func (h *Handler) ForceClose(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.ForceClose(ctx, actor, id, req.Reason)
	})
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	h.orderAction(w, r, &req, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.orders.PostConversationMessage(ctx, actor, id, req.Message)
	})
}

// ListOrders scopes the listing by role: users see their own orders, vendors
// their own sales, and staff may filter by either side.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	userID, err := queryUUID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	vendorID, err := queryUUID(r, "vendor_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	page, pageSize := queryInt32(r, "page"), queryInt32(r, "page_size")

	var out *service.OrderPage
	switch {
	case actor.Role.IsStaff() || actor.IsSystem():
		out, err = h.orders.ListOrdersForAdmin(r.Context(), actor, service.OrderQuery{UserID: userID, VendorID: vendorID, Status: status}, page, pageSize)
	case actor.Role == domain.RoleVendor:
		if userID != nil || (vendorID != nil && *vendorID != actor.ID) {
			err = domain.Forbiddenf("vendors may only list their own orders")
			break
		}
		out, err = h.orders.ListOrdersForVendor(r.Context(), actor, status, page, pageSize)
	default:
		if vendorID != nil || (userID != nil && *userID != actor.ID) {
			err = domain.Forbiddenf("users may only list their own orders")
			break
		}
		out, err = h.orders.ListOrdersForUser(r.Context(), actor, status, page, pageSize)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
