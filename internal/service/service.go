package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/client"
	"rental-order-backend/internal/domain"
)

type CreateOrderInput struct {
	VendorID     uuid.UUID
	PlanType     string
	DepositCents int64
	RentCents    int64
	BuyoutCents  int64
	TotalCents   int64
	LeaseMonths  int
	Items        []domain.OrderItem
}

type ShipInput struct {
	Carrier    string
	TrackingNo string
}

type ReturnInput struct {
	Reason           string
	LogisticsCompany string
	TrackingNumber   string
}

// OrderQuery narrows a staff listing. UserID and VendorID are exclusive.
type OrderQuery struct {
	UserID   *uuid.UUID
	VendorID *uuid.UUID
	Status   domain.OrderStatus
}

type OrderPage struct {
	Orders   []domain.Order `json:"orders"`
	Total    int32          `json:"total"`
	Page     int32          `json:"page"`
	PageSize int32          `json:"page_size"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, actor domain.Actor, in CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error)
	ListOrdersForUser(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int32) (*OrderPage, error)
	ListOrdersForVendor(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int32) (*OrderPage, error)
	ListOrdersForAdmin(ctx context.Context, actor domain.Actor, q OrderQuery, page, pageSize int32) (*OrderPage, error)
	// PostConversationMessage appends a note to the order timeline and
	// notifies the other side.
	PostConversationMessage(ctx context.Context, actor domain.Actor, orderID uuid.UUID, message string) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error)
	CancelOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID, reason string) (*domain.Order, error)
	ShipOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in ShipInput) (*domain.Order, error)
	ConfirmReceive(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error)
	ApplyExtension(ctx context.Context, actor domain.Actor, orderID uuid.UUID, months int, remark string) (*domain.Order, error)
	DecideExtension(ctx context.Context, actor domain.Actor, orderID, requestID uuid.UUID, approve bool, remark string) (*domain.Order, error)
	ApplyReturn(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in ReturnInput) (*domain.Order, error)
	MarkReturnInTransit(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in ShipInput) (*domain.Order, error)
	DecideReturn(ctx context.Context, actor domain.Actor, orderID, requestID uuid.UUID, approve bool, remark string) (*domain.Order, error)
	ApplyBuyout(ctx context.Context, actor domain.Actor, orderID uuid.UUID, amountCents int64, remark string) (*domain.Order, error)
	DecideBuyout(ctx context.Context, actor domain.Actor, orderID uuid.UUID, approve bool, remark string) (*domain.Order, error)
	ForceClose(ctx context.Context, actor domain.Actor, orderID uuid.UUID, reason string) (*domain.Order, error)
	// CancelExpiredOrder cancels an unpaid order created before cutoff. It
	// returns false when the order is no longer due.
	CancelExpiredOrder(ctx context.Context, orderID uuid.UUID, cutoff time.Time) (bool, error)
}

type CreateDisputeInput struct {
	Option             domain.ResolutionOption
	Reason             string
	Remark             string
	AttachmentProofIDs []uuid.UUID
}

type RespondDisputeInput struct {
	Option             domain.ResolutionOption
	Remark             string
	Accept             bool
	AttachmentProofIDs []uuid.UUID
}

type ResolveDisputeInput struct {
	Option      domain.ResolutionOption
	Remark      string
	CreditDelta *int
	Malicious   bool
}

type DisputeService interface {
	List(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]domain.Dispute, error)
	Create(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in CreateDisputeInput) (*domain.Dispute, error)
	Respond(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, in RespondDisputeInput) (*domain.Dispute, error)
	Escalate(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, reason string) (*domain.Dispute, error)
	Appeal(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, reason string) (*domain.Dispute, error)
	Resolve(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, in ResolveDisputeInput) (*domain.Dispute, error)
	Suggest(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID) (*domain.Suggestion, error)
	// EscalateDueToTimeout hands an OPEN dispute past its deadline to the
	// platform. It returns false when the dispute is no longer due.
	EscalateDueToTimeout(ctx context.Context, disputeID uuid.UUID) (bool, error)
	// SendCountdownReminder notifies both parties when the dispute crossed a
	// new reminder level. It returns false when nothing was sent.
	SendCountdownReminder(ctx context.Context, disputeID uuid.UUID) (bool, error)
}

type UploadProofInput struct {
	ProofType   domain.ProofType
	Description string
	FileName    string
	ContentType string
	Body        io.Reader
}

// ProofService manages evidence files attached to an order
type ProofService interface {
	Upload(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in UploadProofInput) (*domain.Proof, error)
	List(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]domain.Proof, error)
	// Open returns the proof metadata and its content. The caller closes the
	// reader.
	Open(ctx context.Context, actor domain.Actor, orderID, proofID uuid.UUID) (*domain.Proof, io.ReadCloser, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, notificationID int64) error
}

// Inventory is the stock side of the catalog service
type Inventory interface {
	Reserve(ctx context.Context, referenceID string, lines []domain.InventoryLine) error
	Release(ctx context.Context, referenceID string, lines []domain.InventoryLine) error
	Outbound(ctx context.Context, referenceID string, lines []domain.InventoryLine) error
	Inbound(ctx context.Context, referenceID string, lines []domain.InventoryLine) error
}

type CreditProfile interface {
	AdjustCredit(ctx context.Context, userID uuid.UUID, delta int, reason string) error
	RecordCreditEvent(ctx context.Context, userID uuid.UUID, eventType domain.CreditEventType, attrs map[string]string) error
	FreezeAccount(ctx context.Context, userID uuid.UUID, d time.Duration, reason string) error
}

type Advisor interface {
	Suggest(ctx context.Context, snapshot client.DisputeSnapshot) (*domain.Suggestion, error)
}
