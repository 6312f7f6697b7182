package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProofType string

const (
	ProofTypeShipment   ProofType = "SHIPMENT"
	ProofTypeReceive    ProofType = "RECEIVE"
	ProofTypeReturn     ProofType = "RETURN"
	ProofTypeInspection ProofType = "INSPECTION"
	ProofTypeOther      ProofType = "OTHER"
)

func (t ProofType) Valid() bool {
	switch t {
	case ProofTypeShipment, ProofTypeReceive, ProofTypeReturn, ProofTypeInspection, ProofTypeOther:
		return true
	}
	return false
}

// AllowedFor reports whether role may upload this kind of evidence. Only
// the vendor documents shipment and only the user documents receipt.
func (t ProofType) AllowedFor(role Role) bool {
	switch role {
	case RoleUser:
		return t != ProofTypeShipment
	case RoleVendor:
		return t != ProofTypeReceive
	case RoleAdmin:
		return true
	}
	return false
}

// Proof is a reference to evidence uploaded against an order. The bytes
// live in the proof store under FileName.
type Proof struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProofType   ProofType `json:"proof_type"`
	Description string    `json:"description,omitempty"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	ActorRole   Role      `json:"actor_role"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
