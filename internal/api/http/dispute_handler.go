package http

import (
	"net/http"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/service"
)

type createDisputeRequest struct {
	Option             domain.ResolutionOption `json:"option"`
	Reason             string                  `json:"reason"`
	Remark             string                  `json:"remark"`
	AttachmentProofIDs []uuid.UUID             `json:"attachment_proof_ids"`
}

type respondDisputeRequest struct {
	Option             domain.ResolutionOption `json:"option"`
	Remark             string                  `json:"remark"`
	Accept             bool                    `json:"accept"`
	AttachmentProofIDs []uuid.UUID             `json:"attachment_proof_ids"`
}

type resolveDisputeRequest struct {
	Option      domain.ResolutionOption `json:"option"`
	Remark      string                  `json:"remark"`
	CreditDelta *int                    `json:"credit_delta"`
	Malicious   bool                    `json:"malicious"`
}

// disputePath parses the order and dispute ids of a dispute route
func disputePath(r *http.Request) (orderID, disputeID uuid.UUID, err error) {
	if orderID, err = pathUUID(r, "id"); err != nil {
		return
	}
	disputeID, err = pathUUID(r, "did")
	return
}

func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	disputes, err := h.disputes.List(r.Context(), actorOf(r), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if disputes == nil {
		disputes = []domain.Dispute{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"disputes": disputes})
}

func (h *Handler) CreateDispute(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createDisputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.disputes.Create(r.Context(), actorOf(r), orderID, service.CreateDisputeInput{
		Option:             req.Option,
		Reason:             req.Reason,
		Remark:             req.Remark,
		AttachmentProofIDs: req.AttachmentProofIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) RespondDispute(w http.ResponseWriter, r *http.Request) {
	orderID, disputeID, err := disputePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req respondDisputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.disputes.Respond(r.Context(), actorOf(r), orderID, disputeID, service.RespondDisputeInput{
		Option:             req.Option,
		Remark:             req.Remark,
		Accept:             req.Accept,
		AttachmentProofIDs: req.AttachmentProofIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) EscalateDispute(w http.ResponseWriter, r *http.Request) {
	orderID, disputeID, err := disputePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reasonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.disputes.Escalate(r.Context(), actorOf(r), orderID, disputeID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) AppealDispute(w http.ResponseWriter, r *http.Request) {
	orderID, disputeID, err := disputePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reasonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.disputes.Appeal(r.Context(), actorOf(r), orderID, disputeID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	orderID, disputeID, err := disputePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req resolveDisputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.disputes.Resolve(r.Context(), actorOf(r), orderID, disputeID, service.ResolveDisputeInput{
		Option:      req.Option,
		Remark:      req.Remark,
		CreditDelta: req.CreditDelta,
		Malicious:   req.Malicious,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) SuggestResolution(w http.ResponseWriter, r *http.Request) {
	orderID, disputeID, err := disputePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.disputes.Suggest(r.Context(), actorOf(r), orderID, disputeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
