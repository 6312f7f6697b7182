// Package http exposes the order, dispute, proof and notification services
// as a JSON API.
package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rental-order-backend/internal/security"
	"rental-order-backend/internal/service"
)

type Handler struct {
	orders         service.OrderService
	disputes       service.DisputeService
	proofs         service.ProofService
	notifications  service.NotificationService
	maxUploadBytes int64
}

func NewHandler(
	orders service.OrderService,
	disputes service.DisputeService,
	proofs service.ProofService,
	notifications service.NotificationService,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		orders:         orders,
		disputes:       disputes,
		proofs:         proofs,
		notifications:  notifications,
		maxUploadBytes: maxUploadBytes,
	}
}

// NewRouter registers every route under its security config name
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger, AuthMiddleware(tm))

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name("healthz")

	const order = "/api/v1/orders/{id}"
	r.HandleFunc("/api/v1/orders", h.CreateOrder).Methods(http.MethodPost).Name("orders.create")
	r.HandleFunc("/api/v1/orders", h.ListOrders).Methods(http.MethodGet).Name("orders.list")
	r.HandleFunc(order, h.GetOrder).Methods(http.MethodGet).Name("orders.get")
	r.HandleFunc(order+"/payment", h.ConfirmPayment).Methods(http.MethodPost).Name("orders.payment")
	r.HandleFunc(order+"/cancel", h.CancelOrder).Methods(http.MethodPost).Name("orders.cancel")
	r.HandleFunc(order+"/ship", h.ShipOrder).Methods(http.MethodPost).Name("orders.ship")
	r.HandleFunc(order+"/receive", h.ConfirmReceive).Methods(http.MethodPost).Name("orders.receive")
	r.HandleFunc(order+"/extension", h.ApplyExtension).Methods(http.MethodPost).Name("orders.extension")
	r.HandleFunc(order+"/extension/decision", h.DecideExtension).Methods(http.MethodPost).Name("orders.extension.decide")
	r.HandleFunc(order+"/return", h.ApplyReturn).Methods(http.MethodPost).Name("orders.return")
	r.HandleFunc(order+"/return/in-transit", h.MarkReturnInTransit).Methods(http.MethodPost).Name("orders.return.transit")
	r.HandleFunc(order+"/return/decision", h.DecideReturn).Methods(http.MethodPost).Name("orders.return.decide")
	r.HandleFunc(order+"/buyout", h.ApplyBuyout).Methods(http.MethodPost).Name("orders.buyout")
	r.HandleFunc(order+"/buyout/decision", h.DecideBuyout).Methods(http.MethodPost).Name("orders.buyout.decide")
	r.HandleFunc(order+"/force-close", h.ForceClose).Methods(http.MethodPost).Name("orders.force-close")
	r.HandleFunc(order+"/messages", h.PostMessage).Methods(http.MethodPost).Name("orders.message")

	const dispute = order + "/disputes/{did}"
	r.HandleFunc(order+"/disputes", h.ListDisputes).Methods(http.MethodGet).Name("disputes.list")
	r.HandleFunc(order+"/disputes", h.CreateDispute).Methods(http.MethodPost).Name("disputes.create")
	r.HandleFunc(dispute+"/respond", h.RespondDispute).Methods(http.MethodPost).Name("disputes.respond")
	r.HandleFunc(dispute+"/escalate", h.EscalateDispute).Methods(http.MethodPost).Name("disputes.escalate")
	r.HandleFunc(dispute+"/appeal", h.AppealDispute).Methods(http.MethodPost).Name("disputes.appeal")
	r.HandleFunc(dispute+"/resolve", h.ResolveDispute).Methods(http.MethodPost).Name("disputes.resolve")
	r.HandleFunc(dispute+"/suggestion", h.SuggestResolution).Methods(http.MethodGet).Name("disputes.suggestion")

	r.HandleFunc(order+"/proofs", h.ListProofs).Methods(http.MethodGet).Name("proofs.list")
	r.HandleFunc(order+"/proofs", h.UploadProof).Methods(http.MethodPost).Name("proofs.upload")
	r.HandleFunc(order+"/proofs/{pid}/file", h.DownloadProof).Methods(http.MethodGet).Name("proofs.file")

	r.HandleFunc("/api/v1/notifications", h.ListNotifications).Methods(http.MethodGet).Name("notifications.list")
	r.HandleFunc("/api/v1/notifications/{nid}/read", h.MarkNotificationRead).Methods(http.MethodPost).Name("notifications.read")

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
