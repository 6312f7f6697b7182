package domain

import "time"

type OrderAction string

const (
	OrderActionMarkPaid             OrderAction = "MARK_PAID"
	OrderActionCancel               OrderAction = "CANCEL"
	OrderActionShip                 OrderAction = "SHIP"
	OrderActionConfirmReceive       OrderAction = "CONFIRM_RECEIVE"
	OrderActionRequestReturn        OrderAction = "REQUEST_RETURN"
	OrderActionMarkReturnInProgress OrderAction = "MARK_RETURN_IN_PROGRESS"
	OrderActionCompleteReturn       OrderAction = "COMPLETE_RETURN"
	OrderActionResumeLease          OrderAction = "RESUME_LEASE"
	OrderActionRequestBuyout        OrderAction = "REQUEST_BUYOUT"
	OrderActionConfirmBuyout        OrderAction = "CONFIRM_BUYOUT"
	OrderActionRejectBuyout         OrderAction = "REJECT_BUYOUT"
	OrderActionForceClose           OrderAction = "FORCE_CLOSE"
)

// orderTransitions is the complete action x from-status table. Any pair not
// listed is a guard violation.
var orderTransitions = map[OrderAction]map[OrderStatus]OrderStatus{
	OrderActionMarkPaid: {
		OrderStatusPendingPayment: OrderStatusAwaitingShipment,
	},
	OrderActionCancel: {
		OrderStatusPendingPayment: OrderStatusCancelled,
	},
	OrderActionShip: {
		OrderStatusAwaitingShipment: OrderStatusInLease,
	},
	OrderActionConfirmReceive: {
		OrderStatusInLease: OrderStatusInLease,
	},
	OrderActionRequestReturn: {
		OrderStatusInLease:          OrderStatusReturnRequested,
		OrderStatusReturnInProgress: OrderStatusReturnRequested,
	},
	OrderActionMarkReturnInProgress: {
		OrderStatusReturnRequested: OrderStatusReturnInProgress,
	},
	OrderActionCompleteReturn: {
		OrderStatusReturnInProgress: OrderStatusCompleted,
		OrderStatusReturnRequested:  OrderStatusCompleted,
	},
	OrderActionResumeLease: {
		OrderStatusReturnRequested: OrderStatusInLease,
	},
	OrderActionRequestBuyout: {
		OrderStatusInLease: OrderStatusBuyoutRequested,
	},
	OrderActionConfirmBuyout: {
		OrderStatusBuyoutRequested: OrderStatusBuyoutCompleted,
	},
	OrderActionRejectBuyout: {
		OrderStatusBuyoutRequested: OrderStatusInLease,
	},
	OrderActionForceClose: {
		OrderStatusPendingPayment:   OrderStatusExceptionClosed,
		OrderStatusAwaitingShipment: OrderStatusExceptionClosed,
		OrderStatusAwaitingReceipt:  OrderStatusExceptionClosed,
		OrderStatusInLease:          OrderStatusExceptionClosed,
		OrderStatusReturnRequested:  OrderStatusExceptionClosed,
		OrderStatusReturnInProgress: OrderStatusExceptionClosed,
		OrderStatusBuyoutRequested:  OrderStatusExceptionClosed,
	},
}

// NextOrderStatus looks up the target of action from status
func NextOrderStatus(action OrderAction, from OrderStatus) (OrderStatus, error) {
	edges, ok := orderTransitions[action]
	if !ok {
		return "", Validationf("unknown order action %s", action)
	}
	if to, ok := edges[from]; ok {
		return to, nil
	}
	expected := make([]string, 0, len(edges))
	for _, s := range OrderStatuses {
		if _, ok := edges[s]; ok {
			expected = append(expected, string(s))
		}
	}
	return "", &InvalidStateTransitionError{Entity: "order", Action: string(action), Expected: expected, Actual: string(from)}
}

func (o *Order) apply(action OrderAction, now time.Time) error {
	to, err := NextOrderStatus(action, o.Status)
	if err != nil {
		return err
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}
