package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/clock"
)

type DisputeStatus string

const (
	DisputeStatusOpen               DisputeStatus = "OPEN"
	DisputeStatusPendingAdmin       DisputeStatus = "PENDING_ADMIN"
	DisputeStatusPendingReviewPanel DisputeStatus = "PENDING_REVIEW_PANEL"
	DisputeStatusResolved           DisputeStatus = "RESOLVED"
	DisputeStatusClosed             DisputeStatus = "CLOSED"
)

var DisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusPendingAdmin,
	DisputeStatusPendingReviewPanel,
	DisputeStatusResolved,
	DisputeStatusClosed,
}

type ResolutionOption string

const (
	ResolutionRedeliver                  ResolutionOption = "REDELIVER"
	ResolutionPartialRefund              ResolutionOption = "PARTIAL_REFUND"
	ResolutionReturnWithDepositDeduction ResolutionOption = "RETURN_WITH_DEPOSIT_DEDUCTION"
	ResolutionDiscountedBuyout           ResolutionOption = "DISCOUNTED_BUYOUT"
	ResolutionCustom                     ResolutionOption = "CUSTOM"
)

func (o ResolutionOption) Valid() bool {
	switch o {
	case ResolutionRedeliver, ResolutionPartialRefund, ResolutionReturnWithDepositDeduction, ResolutionDiscountedBuyout, ResolutionCustom:
		return true
	}
	return false
}

const (
	NegotiationWindow       = 48 * time.Hour
	MaxAppeals              = 1
	MaxReminderLevel        = 3
	MaxCreditDelta          = 30
	MaliciousCreditDelta    = -30
	MaliciousFreezeDuration = 30 * 24 * time.Hour
	MaxDisputeAttachments   = 10
)

// Party is the initiator block of a dispute
type Party struct {
	Role   Role             `json:"role"`
	ID     uuid.UUID        `json:"id"`
	Option ResolutionOption `json:"option"`
	Reason string           `json:"reason"`
	Remark string           `json:"remark"`
}

// Response is the latest counter-response recorded on a dispute
type Response struct {
	Role        Role             `json:"role"`
	ID          uuid.UUID        `json:"id"`
	Option      ResolutionOption `json:"option"`
	Remark      string           `json:"remark"`
	RespondedAt time.Time        `json:"responded_at"`
}

type Escalation struct {
	By     *uuid.UUID `json:"by,omitempty"`
	At     time.Time  `json:"at"`
	Reason string     `json:"reason"`
}

type AdminDecision struct {
	Option ResolutionOption `json:"option"`
	Remark string           `json:"remark"`
	By     uuid.UUID        `json:"by"`
	Role   Role             `json:"role"`
	At     time.Time        `json:"at"`
	// CreditDelta is already in credit direction: a penalty is negative.
	CreditDelta *int `json:"credit_delta,omitempty"`
	Malicious   bool `json:"malicious"`
}

type Dispute struct {
	ID                 uuid.UUID      `json:"id"`
	OrderID            uuid.UUID      `json:"order_id"`
	Status             DisputeStatus  `json:"status"`
	Initiator          Party          `json:"initiator"`
	Respondent         *Response      `json:"respondent,omitempty"`
	DeadlineAt         time.Time      `json:"deadline_at"`
	Escalation         *Escalation    `json:"escalation,omitempty"`
	Decision           *AdminDecision `json:"decision,omitempty"`
	AppealCount        int            `json:"appeal_count"`
	ReminderLevel      int            `json:"reminder_level"`
	AttachmentProofIDs []uuid.UUID    `json:"attachment_proof_ids"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NewDispute returns an OPEN dispute whose negotiation deadline is now + 48h
func NewDispute(orderID uuid.UUID, initiator Party, attachments []uuid.UUID, now time.Time) (*Dispute, error) {
	if initiator.Role != RoleUser && initiator.Role != RoleVendor {
		return nil, Forbiddenf("only the user or vendor may open a dispute")
	}
	if !initiator.Option.Valid() {
		return nil, Validationf("unknown resolution option %q", initiator.Option)
	}
	if strings.TrimSpace(initiator.Reason) == "" {
		return nil, Validationf("dispute reason is required")
	}
	d := &Dispute{
		ID:         uuid.New(),
		OrderID:    orderID,
		Status:     DisputeStatusOpen,
		Initiator:  initiator,
		DeadlineAt: clock.Deadline(now, NegotiationWindow),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.AttachProofs(attachments); err != nil {
		return nil, err
	}
	return d, nil
}

// IsActive reports whether the dispute still blocks a new one on its order
func (d *Dispute) IsActive() bool {
	return d.Status != DisputeStatusClosed
}

// NegotiationOverdue reports whether the reconciler should escalate it
func (d *Dispute) NegotiationOverdue(now time.Time) bool {
	return d.Status == DisputeStatusOpen && clock.Breached(d.DeadlineAt, now)
}

// RecordResponse registers a counter-response. Accepting settles the
// dispute; otherwise negotiation restarts with a fresh deadline. Turn-taking
// is by role: nobody answers their own side's last word.
func (d *Dispute) RecordResponse(resp Response, accept bool, now time.Time) error {
	action := DisputeActionCounter
	if accept {
		action = DisputeActionAccept
	}
	to, err := NextDisputeStatus(action, d.Status)
	if err != nil {
		return err
	}
	if resp.Role != RoleUser && resp.Role != RoleVendor {
		return Forbiddenf("only the user or vendor may respond to a dispute")
	}
	last := d.Initiator.Role
	if d.Respondent != nil {
		last = d.Respondent.Role
	}
	if resp.Role == last {
		return Forbiddenf("waiting for the counterparty to respond")
	}
	if !accept && !resp.Option.Valid() {
		return Validationf("unknown resolution option %q", resp.Option)
	}

	resp.RespondedAt = now
	d.Respondent = &resp
	d.Status = to
	if !accept {
		d.DeadlineAt = clock.Deadline(now, NegotiationWindow)
	}
	d.UpdatedAt = now
	return nil
}

// Escalate hands the dispute to platform staff. by is nil for the system.
func (d *Dispute) Escalate(by *uuid.UUID, reason string, now time.Time) error {
	to, err := NextDisputeStatus(DisputeActionEscalate, d.Status)
	if err != nil {
		return err
	}
	d.Status = to
	d.Escalation = &Escalation{By: by, At: now, Reason: reason}
	d.UpdatedAt = now
	return nil
}

type AdminResolution struct {
	Option ResolutionOption
	Remark string
	By     uuid.UUID
	Role   Role
	// CreditDelta is caller-facing: positive means "penalize N points".
	CreditDelta *int
	Malicious   bool
}

// ResolveByAdmin closes the dispute with a staff ruling and returns the
// credit delta to apply, if any.
func (d *Dispute) ResolveByAdmin(r AdminResolution, now time.Time) (*int, error) {
	to, err := NextDisputeStatus(DisputeActionResolve, d.Status)
	if err != nil {
		return nil, err
	}
	allowed := r.Role == RoleArbitrator
	if d.Status == DisputeStatusPendingReviewPanel {
		allowed = allowed || r.Role == RoleReviewPanel
	}
	if !allowed {
		return nil, Forbiddenf("role %s may not resolve a %s dispute", r.Role, d.Status)
	}
	if !r.Option.Valid() {
		return nil, Validationf("unknown resolution option %q", r.Option)
	}

	var delta *int
	switch {
	case r.Malicious:
		v := MaliciousCreditDelta
		delta = &v
	case r.CreditDelta != nil:
		if *r.CreditDelta < -MaxCreditDelta || *r.CreditDelta > MaxCreditDelta {
			return nil, Validationf("credit delta %d out of range [-%d, %d]", *r.CreditDelta, MaxCreditDelta, MaxCreditDelta)
		}
		v := -*r.CreditDelta
		delta = &v
	}

	d.Status = to
	d.Decision = &AdminDecision{
		Option:      r.Option,
		Remark:      r.Remark,
		By:          r.By,
		Role:        r.Role,
		At:          now,
		CreditDelta: delta,
		Malicious:   r.Malicious,
	}
	d.UpdatedAt = now
	return delta, nil
}

// Appeal reopens a closed dispute for the review panel. It is usable once.
func (d *Dispute) Appeal(by uuid.UUID, reason string, now time.Time) error {
	if d.AppealCount >= MaxAppeals {
		return Validationf("dispute %s has already been appealed", d.ID)
	}
	to, err := NextDisputeStatus(DisputeActionAppeal, d.Status)
	if err != nil {
		return err
	}
	d.Status = to
	d.Decision = nil
	d.AppealCount++
	appellant := by
	d.Escalation = &Escalation{By: &appellant, At: now, Reason: reason}
	d.UpdatedAt = now
	return nil
}

// AdvanceReminderLevel is a one-way ratchet. It returns true only when
// target is above the current level and within the ladder.
func (d *Dispute) AdvanceReminderLevel(target int) bool {
	if target <= d.ReminderLevel || target > MaxReminderLevel {
		return false
	}
	d.ReminderLevel = target
	return true
}

// AttachProofs merges ids into the attachment list, dropping duplicates
func (d *Dispute) AttachProofs(ids []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(d.AttachmentProofIDs))
	merged := make([]uuid.UUID, 0, len(d.AttachmentProofIDs)+len(ids))
	for _, id := range append(append([]uuid.UUID{}, d.AttachmentProofIDs...), ids...) {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, id)
	}
	if len(merged) > MaxDisputeAttachments {
		return Validationf("a dispute may cite at most %d attachments", MaxDisputeAttachments)
	}
	d.AttachmentProofIDs = merged
	return nil
}
