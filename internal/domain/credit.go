package domain

type CreditEventType string

const (
	CreditEventOnTimePayment     CreditEventType = "ON_TIME_PAYMENT"
	CreditEventEarlyReturn       CreditEventType = "EARLY_RETURN"
	CreditEventFriendlyDispute   CreditEventType = "FRIENDLY_DISPUTE"
	CreditEventMaliciousBehavior CreditEventType = "MALICIOUS_BEHAVIOR"
	CreditEventDisputeRuling     CreditEventType = "DISPUTE_RULING"
)

// Suggestion is what the advisory generator proposes for a dispute. It is
// never applied automatically.
type Suggestion struct {
	Option      ResolutionOption `json:"option"`
	CreditDelta int              `json:"credit_delta"`
	Rationale   string           `json:"rationale"`
}
