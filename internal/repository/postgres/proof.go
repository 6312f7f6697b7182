package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/repository"
)

type proofRepository struct {
	db *sql.DB
}

func NewProofRepository(db *sql.DB) repository.ProofRepository {
	return &proofRepository{db: db}
}

const proofColumns = `id, order_id, proof_type, description, file_name, content_type, file_size, uploaded_by, actor_role, uploaded_at`

func (r *proofRepository) Create(ctx context.Context, p *domain.Proof) error {
	query := `INSERT INTO order_proofs (` + proofColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.OrderID, p.ProofType, p.Description, p.FileName, p.ContentType, p.FileSize, p.UploadedBy, p.ActorRole, p.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert proof %s: %w", p.ID, err)
	}
	return nil
}

func (r *proofRepository) FindByIDAndOrder(ctx context.Context, id, orderID uuid.UUID) (*domain.Proof, error) {
	query := `SELECT ` + proofColumns + ` FROM order_proofs WHERE id = $1 AND order_id = $2`
	p, err := scanProof(conn(ctx, r.db).QueryRowContext(ctx, query, id, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("proof %s not found on order %s", id, orderID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *proofRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Proof, error) {
	query := `SELECT ` + proofColumns + ` FROM order_proofs WHERE order_id = $1 ORDER BY uploaded_at`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []domain.Proof
	for rows.Next() {
		p, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, *p)
	}
	return proofs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProof(row scanner) (*domain.Proof, error) {
	p := &domain.Proof{}
	err := row.Scan(&p.ID, &p.OrderID, &p.ProofType, &p.Description, &p.FileName, &p.ContentType, &p.FileSize, &p.UploadedBy, &p.ActorRole, &p.UploadedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
