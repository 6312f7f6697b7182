package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "rental-order-backend/internal/api/http"
	"rental-order-backend/internal/client"
	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/notify"
	"rental-order-backend/internal/repository/memory"
	"rental-order-backend/internal/security"
	"rental-order-backend/internal/service"
	"rental-order-backend/internal/storage"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	router http.Handler
	store  *memory.Store
	clock  *clock.Manual
	tm     security.TokenManager

	user, vendor, admin, arbitrator domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		clock:      clock.NewManual(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		tm:         security.NewTokenManager(secret, ""),
		user:       domain.Actor{ID: uuid.New(), Role: domain.RoleUser},
		vendor:     domain.Actor{ID: uuid.New(), Role: domain.RoleVendor},
		admin:      domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
		arbitrator: domain.Actor{ID: uuid.New(), Role: domain.RoleArbitrator},
	}

	dispatcher := notify.NewDispatcher(notify.DefaultCatalog(), notify.NewInAppChannel(f.store.NotificationRepository))
	coord := service.NewCoordinator(client.NewInventoryClient(client.Config{}), client.NewUserProfileClient(client.Config{}), dispatcher)

	files, err := storage.NewLocalStore(t.TempDir(), 1024)
	require.NoError(t, err)
	policy := storage.Policy{MaxBytes: 1024, AllowedContentTypes: []string{"image/jpeg"}}

	h := api.NewHandler(
		service.NewOrderService(f.store, f.store.OrderRepository, coord, f.clock),
		service.NewDisputeService(f.store, f.store.OrderRepository, f.store.DisputeRepository, f.store.ProofRepository, coord, client.NewAdvisoryClient(client.Config{}), f.clock),
		service.NewProofService(f.store, f.store.OrderRepository, f.store.ProofRepository, files, policy, coord, f.clock),
		service.NewNotificationService(f.store.NotificationRepository),
		1024,
	)
	f.router = api.NewRouter(h, f.tm)
	return f
}

func (f *fixture) token(t *testing.T, actor domain.Actor) string {
	t.Helper()
	tok, err := f.tm.GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)
	return tok
}

// call sends a JSON request as actor. A zero actor sends no token.
func (f *fixture) call(t *testing.T, actor domain.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, rd)
	if actor.Role != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, actor))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *fixture) createOrder(t *testing.T) domain.Order {
	t.Helper()
	rec := f.call(t, f.user, http.MethodPost, "/api/v1/orders", map[string]any{
		"vendor_id":     f.vendor.ID,
		"plan_type":     "STANDARD",
		"deposit_cents": 50000,
		"rent_cents":    12000,
		"buyout_cents":  300000,
		"total_cents":   62000,
		"lease_months":  3,
		"items": []map[string]any{
			{"sku_id": uuid.New(), "product_id": uuid.New(), "quantity": 1, "unit_rent_cents": 12000},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Order](t, rec)
}

func (f *fixture) leasedOrder(t *testing.T) domain.Order {
	t.Helper()
	o := f.createOrder(t)
	rec := f.call(t, f.user, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/payment", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.call(t, f.vendor, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/ship", map[string]string{"carrier": "SF", "tracking_no": "T1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[domain.Order](t, rec)
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t)
	rec := f.call(t, domain.Actor{}, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)
	path := "/api/v1/orders/" + uuid.NewString()

	t.Run("MissingToken", func(t *testing.T) {
		rec := f.call(t, domain.Actor{}, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHENTICATED", decode[map[string]string](t, rec)["code"])
	})

	t.Run("BadToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("StaffRoute", func(t *testing.T) {
		rec := f.call(t, f.user, http.MethodPost, path+"/force-close", map[string]string{"reason": "x"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ValidToken", func(t *testing.T) {
		rec := f.call(t, f.user, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decode[map[string]string](t, rec)["code"])
	})
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	o := f.leasedOrder(t)
	assert.Equal(t, domain.OrderStatusInLease, o.Status)
	require.NotNil(t, o.LeaseStartAt)

	base := "/api/v1/orders/" + o.ID.String()

	rec := f.call(t, f.user, http.MethodPost, base+"/payment", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", decode[map[string]string](t, rec)["code"])

	rec = f.call(t, f.user, http.MethodPost, base+"/return", map[string]string{"reason": "done", "logistics_company": "SF", "tracking_number": "R1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o = decode[domain.Order](t, rec)
	assert.Equal(t, domain.OrderStatusReturnRequested, o.Status)
	require.Len(t, o.ReturnRequests, 1)

	rec = f.call(t, f.vendor, http.MethodPost, base+"/return/decision", map[string]any{"request_id": o.ReturnRequests[0].ID, "approve": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderStatusCompleted, decode[domain.Order](t, rec).Status)

	rec = f.call(t, f.admin, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOrder_Rejected(t *testing.T) {
	f := newFixture(t)

	rec := f.call(t, f.user, http.MethodPost, "/api/v1/orders", map[string]any{"vendor_id": f.vendor.ID, "unknown": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, f.vendor, http.MethodPost, "/api/v1/orders", map[string]any{"vendor_id": f.vendor.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.call(t, f.user, http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisputeFlow(t *testing.T) {
	f := newFixture(t)
	o := f.leasedOrder(t)
	base := "/api/v1/orders/" + o.ID.String() + "/disputes"

	rec := f.call(t, f.user, http.MethodPost, base, map[string]any{"option": "PARTIAL_REFUND", "reason": "screen scratched on arrival"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	d := decode[domain.Dispute](t, rec)
	assert.Equal(t, domain.DisputeStatusOpen, d.Status)

	rec = f.call(t, f.user, http.MethodPost, base, map[string]any{"option": "PARTIAL_REFUND", "reason": "again"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, f.user, http.MethodPost, base+"/"+d.ID.String()+"/escalate", map[string]string{"reason": "no answer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.DisputeStatusPendingAdmin, decode[domain.Dispute](t, rec).Status)

	rec = f.call(t, f.arbitrator, http.MethodGet, base+"/"+d.ID.String()+"/suggestion", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.ResolutionPartialRefund, decode[domain.Suggestion](t, rec).Option)

	rec = f.call(t, f.arbitrator, http.MethodPost, base+"/"+d.ID.String()+"/resolve", map[string]any{"option": "PARTIAL_REFUND", "remark": "agreed", "credit_delta": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decode[domain.Dispute](t, rec)
	assert.Equal(t, domain.DisputeStatusClosed, resolved.Status)
	require.NotNil(t, resolved.Decision.CreditDelta)
	assert.Equal(t, -5, *resolved.Decision.CreditDelta)

	rec = f.call(t, f.vendor, http.MethodPost, base+"/"+d.ID.String()+"/appeal", map[string]string{"reason": "unfair"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.DisputeStatusPendingReviewPanel, decode[domain.Dispute](t, rec).Status)

	rec = f.call(t, f.vendor, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]domain.Dispute](t, rec)["disputes"]
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].AppealCount)
}

func multipartBody(t *testing.T, proofType, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("proof_type", proofType))
	require.NoError(t, mw.WriteField("description", "box on arrival"))
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="box.jpg"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, actor domain.Actor, orderID uuid.UUID, proofType, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, proofType, contentType, content)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/proofs", orderID), body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+f.token(t, actor))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestProofUploadAndDownload(t *testing.T) {
	f := newFixture(t)
	o := f.leasedOrder(t)

	rec := f.upload(t, f.user, o.ID, "RECEIVE", "image/jpeg", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[domain.Proof](t, rec)
	assert.Equal(t, int64(10), p.FileSize)
	assert.Equal(t, "box on arrival", p.Description)

	rec = f.call(t, f.vendor, http.MethodGet, fmt.Sprintf("/api/v1/orders/%s/proofs", o.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]domain.Proof](t, rec)["proofs"], 1)

	rec = f.call(t, f.vendor, http.MethodGet, fmt.Sprintf("/api/v1/orders/%s/proofs/%s/file", o.ID, p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg-bytes", rec.Body.String())

	rec = f.upload(t, f.user, o.ID, "RECEIVE", "text/html", []byte("<html>"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.upload(t, f.user, o.ID, "SHIPMENT", "image/jpeg", []byte("jpeg-bytes"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotificationInbox(t *testing.T) {
	f := newFixture(t)
	f.createOrder(t)

	rec := f.call(t, f.vendor, http.MethodGet, "/api/v1/notifications?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox struct {
		Notifications []domain.Notification `json:"notifications"`
		Total         int32                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inbox))
	require.Equal(t, int32(1), inbox.Total)
	assert.Equal(t, notify.TemplateOrderCreated, inbox.Notifications[0].TemplateCode)

	id := inbox.Notifications[0].ID
	rec = f.call(t, f.user, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.call(t, f.vendor, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.call(t, f.vendor, http.MethodPost, "/api/v1/notifications/abc/read", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	first := f.createOrder(t)
	f.clock.Advance(time.Minute)
	second := f.createOrder(t)

	type orderPage struct {
		Orders   []domain.Order `json:"orders"`
		Total    int32          `json:"total"`
		Page     int32          `json:"page"`
		PageSize int32          `json:"page_size"`
	}

	rec := f.call(t, f.user, http.MethodGet, "/api/v1/orders?page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[orderPage](t, rec)
	assert.Equal(t, int32(2), page.Total)
	assert.Equal(t, int32(1), page.PageSize)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, second.ID, page.Orders[0].ID)

	rec = f.call(t, f.vendor, http.MethodGet, "/api/v1/orders?status=PENDING_PAYMENT", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[orderPage](t, rec).Orders, 2)

	rec = f.call(t, f.admin, http.MethodGet, "/api/v1/orders?user_id="+f.user.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(2), decode[orderPage](t, rec).Total)

	rec = f.call(t, f.user, http.MethodGet, "/api/v1/orders?user_id="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.call(t, f.vendor, http.MethodGet, "/api/v1/orders?user_id="+first.UserID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.call(t, f.admin, http.MethodGet, "/api/v1/orders?user_id="+f.user.ID.String()+"&vendor_id="+f.vendor.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, f.admin, http.MethodGet, "/api/v1/orders?vendor_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, domain.Actor{}, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConversationMessage(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t)
	path := "/api/v1/orders/" + o.ID.String() + "/messages"

	rec := f.call(t, f.user, http.MethodPost, path, map[string]string{"message": "when will it ship?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[domain.Order](t, rec)
	last := got.Events[len(got.Events)-1]
	assert.Equal(t, domain.EventCommunicationNote, last.Type)
	assert.Equal(t, "when will it ship?", last.Description)

	notes, _, err := f.store.List(context.Background(), f.vendor.ID, 10, 0)
	require.NoError(t, err)
	var note *domain.Notification
	for i := range notes {
		if notes[i].TemplateCode == notify.TemplateOrderMessage {
			note = &notes[i]
		}
	}
	require.NotNil(t, note)
	assert.Contains(t, note.Message, "when will it ship?")

	rec = f.call(t, f.user, http.MethodPost, path, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleUser}
	rec = f.call(t, stranger, http.MethodPost, path, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
