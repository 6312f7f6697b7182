package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/service"
)

// multipart overhead allowed on top of the file itself
const uploadFormSlack = 1 << 20

func (h *Handler) ListProofs(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	proofs, err := h.proofs.List(r.Context(), actorOf(r), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if proofs == nil {
		proofs = []domain.Proof{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"proofs": proofs})
}

// UploadProof accepts a multipart form with a "file" part plus the
// "proof_type" and "description" fields.
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+uploadFormSlack)
	if err := r.ParseMultipartForm(uploadFormSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Code: string(domain.CodeValidation), Message: "upload exceeds size limit"})
			return
		}
		writeError(w, r, domain.Validationf("malformed multipart form: %v", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Warn("Failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.Validationf("file part is required"))
		return
	}
	defer file.Close()

	proof, err := h.proofs.Upload(r.Context(), actorOf(r), orderID, service.UploadProofInput{
		ProofType:   domain.ProofType(r.FormValue("proof_type")),
		Description: r.FormValue("description"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, proof)
}

func (h *Handler) DownloadProof(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	proofID, err := pathUUID(r, "pid")
	if err != nil {
		writeError(w, r, err)
		return
	}

	proof, rc, err := h.proofs.Open(r.Context(), actorOf(r), orderID, proofID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", proof.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(proof.FileSize, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("Proof download interrupted", "proof_id", proofID, "error", err)
	}
}
