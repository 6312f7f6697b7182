package domain

type DisputeAction string

const (
	DisputeActionCounter  DisputeAction = "RESPOND"
	DisputeActionAccept   DisputeAction = "ACCEPT"
	DisputeActionEscalate DisputeAction = "ESCALATE"
	DisputeActionResolve  DisputeAction = "RESOLVE"
	DisputeActionAppeal   DisputeAction = "APPEAL"
)

var disputeTransitions = map[DisputeAction]map[DisputeStatus]DisputeStatus{
	DisputeActionCounter: {
		DisputeStatusOpen: DisputeStatusOpen,
	},
	DisputeActionAccept: {
		DisputeStatusOpen: DisputeStatusResolved,
	},
	DisputeActionEscalate: {
		DisputeStatusOpen:               DisputeStatusPendingAdmin,
		DisputeStatusPendingAdmin:       DisputeStatusPendingAdmin,
		DisputeStatusPendingReviewPanel: DisputeStatusPendingAdmin,
		DisputeStatusResolved:           DisputeStatusPendingAdmin,
	},
	DisputeActionResolve: {
		DisputeStatusOpen:               DisputeStatusClosed,
		DisputeStatusPendingAdmin:       DisputeStatusClosed,
		DisputeStatusPendingReviewPanel: DisputeStatusClosed,
	},
	DisputeActionAppeal: {
		DisputeStatusClosed: DisputeStatusPendingReviewPanel,
	},
}

// NextDisputeStatus looks up the target of action from status
func NextDisputeStatus(action DisputeAction, from DisputeStatus) (DisputeStatus, error) {
	edges, ok := disputeTransitions[action]
	if !ok {
		return "", Validationf("unknown dispute action %s", action)
	}
	if to, ok := edges[from]; ok {
		return to, nil
	}
	expected := make([]string, 0, len(edges))
	for _, s := range DisputeStatuses {
		if _, ok := edges[s]; ok {
			expected = append(expected, string(s))
		}
	}
	return "", &InvalidStateTransitionError{Entity: "dispute", Action: string(action), Expected: expected, Actual: string(from)}
}
