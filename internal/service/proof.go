package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/notify"
	"rental-order-backend/internal/repository"
	"rental-order-backend/internal/storage"
)

const maxProofDescription = 500

type proofService struct {
	aggregateTx
	proofs repository.ProofRepository
	store  storage.ObjectStore
	policy storage.Policy
}

func NewProofService(
	tx repository.Transactor,
	orders repository.OrderRepository,
	proofs repository.ProofRepository,
	store storage.ObjectStore,
	policy storage.Policy,
	coord *Coordinator,
	clk clock.Clock,
) ProofService {
	return &proofService{
		aggregateTx: aggregateTx{tx: tx, orders: orders, coord: coord, clock: clk},
		proofs:      proofs,
		store:       store,
		policy:      policy,
	}
}

func (s *proofService) Upload(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in UploadProofInput) (*domain.Proof, error) {
	if !in.ProofType.Valid() {
		return nil, domain.Validationf("unknown proof type %q", in.ProofType)
	}
	if !in.ProofType.AllowedFor(actor.Role) {
		return nil, domain.Forbiddenf("%s may not upload %s evidence", actor.Role, in.ProofType)
	}
	if !s.policy.Allows(in.ContentType) {
		return nil, domain.Validationf("content type %q is not accepted", in.ContentType)
	}
	if len(in.Description) > maxProofDescription {
		return nil, domain.Validationf("description exceeds %d characters", maxProofDescription)
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(o, actor, domain.RoleUser, domain.RoleVendor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	proof := &domain.Proof{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProofType:   in.ProofType,
		Description: in.Description,
		UploadedBy:  actor.ID,
		ActorRole:   actor.Role,
		ContentType: in.ContentType,
	}
	proof.FileName = fmt.Sprintf("%s/%s%s", orderID, proof.ID, storage.Extension(in.ContentType, in.FileName))

	logger.ExternalServiceCall("ProofStore", "Save", "key", proof.FileName)
	size, err := s.store.Save(ctx, proof.FileName, in.Body)
	logger.ExternalServiceResult("ProofStore", "Save", err, "bytes", size)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, domain.Validationf("file exceeds %d bytes", s.policy.MaxBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("store proof file: %w", err)
	}
	if size == 0 {
		s.discard(ctx, proof.FileName)
		return nil, domain.Validationf("file is empty")
	}
	proof.FileSize = size

	_, err = s.mutate(ctx, orderID, "proofService.Upload", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		proof.UploadedAt = now
		if err := s.proofs.Create(ctx, proof); err != nil {
			return err
		}
		vars := map[string]string{"proof_id": proof.ID.String(), "proof_type": string(proof.ProofType)}
		o.Record(domain.EventProofUploaded, actor, "evidence uploaded", vars, now)
		if other, ok := o.Counterparty(actor.Role); ok {
			s.coord.Notify(fx, other, notify.TemplateProofUploaded, domain.NotificationContextOrder, o.ID.String(), o, vars)
		} else {
			s.coord.NotifyParties(fx, notify.TemplateProofUploaded, domain.NotificationContextOrder, o.ID.String(), o, vars)
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, proof.FileName)
		return nil, err
	}
	return proof, nil
}

// discard removes a stored file whose metadata never committed
func (s *proofService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("Failed to remove orphaned proof file", "key", key, "error", err)
	}
}

func (s *proofService) List(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]domain.Proof, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(o, actor, viewerRoles...); err != nil {
		return nil, err
	}
	return s.proofs.ListByOrder(ctx, orderID)
}

func (s *proofService) Open(ctx context.Context, actor domain.Actor, orderID, proofID uuid.UUID) (*domain.Proof, io.ReadCloser, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(o, actor, viewerRoles...); err != nil {
		return nil, nil, err
	}
	proof, err := s.proofs.FindByIDAndOrder(ctx, proofID, orderID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, proof.FileName)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, domain.NotFoundf("file of proof %s is missing", proofID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open proof file: %w", err)
	}
	return proof, rc, nil
}
