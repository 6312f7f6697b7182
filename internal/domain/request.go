package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Decision holds who decided a request, when, and why. Set once.
type Decision struct {
	DecisionBy *uuid.UUID `json:"decision_by,omitempty"`
	DecisionAt *time.Time `json:"decision_at,omitempty"`
	Remark     string     `json:"remark"`
}

type ExtensionRequest struct {
	ID               uuid.UUID     `json:"id"`
	OrderID          uuid.UUID     `json:"order_id"`
	Status           RequestStatus `json:"status"`
	AdditionalMonths int           `json:"additional_months"`
	RequestedBy      uuid.UUID     `json:"requested_by"`
	RequestedAt      time.Time     `json:"requested_at"`
	Decision
}

type ReturnRequest struct {
	ID               uuid.UUID     `json:"id"`
	OrderID          uuid.UUID     `json:"order_id"`
	Status           RequestStatus `json:"status"`
	Reason           string        `json:"reason"`
	LogisticsCompany string        `json:"logistics_company"`
	TrackingNumber   string        `json:"tracking_number"`
	RequestedBy      uuid.UUID     `json:"requested_by"`
	RequestedAt      time.Time     `json:"requested_at"`
	Decision
}

func ensurePending(entity string, status RequestStatus, approve bool) error {
	if status == RequestStatusPending {
		return nil
	}
	action := "REJECT"
	if approve {
		action = "APPROVE"
	}
	return &InvalidStateTransitionError{
		Entity:   entity,
		Action:   action,
		Expected: []string{string(RequestStatusPending)},
		Actual:   string(status),
	}
}

func decide(status *RequestStatus, d *Decision, approve bool, actor Actor, remark string, now time.Time) {
	if approve {
		*status = RequestStatusApproved
	} else {
		*status = RequestStatusRejected
	}
	at := now
	d.DecisionBy = actor.IDPtr()
	d.DecisionAt = &at
	d.Remark = remark
}

// PendingExtension returns the undecided extension request, if any
func (o *Order) PendingExtension() *ExtensionRequest {
	for i := range o.ExtensionRequests {
		if o.ExtensionRequests[i].Status == RequestStatusPending {
			return &o.ExtensionRequests[i]
		}
	}
	return nil
}

// PendingReturn returns the undecided return request, if any
func (o *Order) PendingReturn() *ReturnRequest {
	for i := range o.ReturnRequests {
		if o.ReturnRequests[i].Status == RequestStatusPending {
			return &o.ReturnRequests[i]
		}
	}
	return nil
}

// OpenExtensionRequest files a new extension request. The order must be in
// lease and have no other pending extension request.
func (o *Order) OpenExtensionRequest(actor Actor, months int, remark string, now time.Time) (*ExtensionRequest, error) {
	if err := o.ensureStatus("REQUEST_EXTENSION", OrderStatusInLease); err != nil {
		return nil, err
	}
	if months <= 0 {
		return nil, Validationf("extension months must be positive")
	}
	if o.PendingExtension() != nil {
		return nil, Validationf("an extension request is already pending")
	}
	o.ExtensionRequests = append(o.ExtensionRequests, ExtensionRequest{
		ID:               uuid.New(),
		OrderID:          o.ID,
		Status:           RequestStatusPending,
		AdditionalMonths: months,
		RequestedBy:      actor.ID,
		RequestedAt:      now,
		Decision:         Decision{Remark: remark},
	})
	o.UpdatedAt = now
	return &o.ExtensionRequests[len(o.ExtensionRequests)-1], nil
}

// DecideExtension approves or rejects a pending extension request. Approval
// extends the lease.
func (o *Order) DecideExtension(requestID uuid.UUID, approve bool, actor Actor, remark string, now time.Time) (*ExtensionRequest, error) {
	var req *ExtensionRequest
	for i := range o.ExtensionRequests {
		if o.ExtensionRequests[i].ID == requestID {
			req = &o.ExtensionRequests[i]
		}
	}
	if req == nil {
		return nil, NotFoundf("extension request %s not found", requestID)
	}
	if approve {
		if err := o.ensureStatus("APPROVE_EXTENSION", OrderStatusInLease); err != nil {
			return nil, err
		}
	}
	if err := ensurePending("extension_request", req.Status, approve); err != nil {
		return nil, err
	}
	decide(&req.Status, &req.Decision, approve, actor, remark, now)
	if approve {
		if err := o.IncreaseExtensionCount(req.AdditionalMonths, now); err != nil {
			return nil, err
		}
	}
	o.UpdatedAt = now
	return req, nil
}

type ReturnDetails struct {
	Reason           string
	LogisticsCompany string
	TrackingNumber   string
}

// OpenReturnRequest files a return request and moves the order to RETURN_REQUESTED
func (o *Order) OpenReturnRequest(actor Actor, details ReturnDetails, now time.Time) (*ReturnRequest, error) {
	if o.PendingReturn() != nil {
		return nil, Validationf("a return request is already pending")
	}
	if err := o.RequestReturn(now); err != nil {
		return nil, err
	}
	o.ReturnRequests = append(o.ReturnRequests, ReturnRequest{
		ID:               uuid.New(),
		OrderID:          o.ID,
		Status:           RequestStatusPending,
		Reason:           details.Reason,
		LogisticsCompany: details.LogisticsCompany,
		TrackingNumber:   details.TrackingNumber,
		RequestedBy:      actor.ID,
		RequestedAt:      now,
	})
	return &o.ReturnRequests[len(o.ReturnRequests)-1], nil
}

// DecideReturn approves (completing the return) or rejects (resuming the
// lease) a pending return request.
func (o *Order) DecideReturn(requestID uuid.UUID, approve bool, actor Actor, remark string, now time.Time) (*ReturnRequest, error) {
	var req *ReturnRequest
	for i := range o.ReturnRequests {
		if o.ReturnRequests[i].ID == requestID {
			req = &o.ReturnRequests[i]
		}
	}
	if req == nil {
		return nil, NotFoundf("return request %s not found", requestID)
	}
	if err := ensurePending("return_request", req.Status, approve); err != nil {
		return nil, err
	}

	var err error
	if approve {
		err = o.CompleteReturn(now)
	} else {
		err = o.ResumeLease(now)
	}
	if err != nil {
		return nil, err
	}
	decide(&req.Status, &req.Decision, approve, actor, remark, now)
	return req, nil
}
