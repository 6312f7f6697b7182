package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rental-order-backend/internal/domain"
)

func queryInt32(r *http.Request, name string) int32 {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	notes, total, err := h.notifications.GetNotifications(r.Context(), actor.ID, queryInt32(r, "page"), queryInt32(r, "page_size"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes, "total": total})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["nid"], 10, 64)
	if err != nil {
		writeError(w, r, domain.Validationf("invalid notification id"))
		return
	}
	if err := h.notifications.MarkAsRead(r.Context(), actorOf(r).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
