package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/repository"
)

type disputeRepository struct {
	db *sql.DB
}

func NewDisputeRepository(db *sql.DB) repository.DisputeRepository {
	return &disputeRepository{db: db}
}

const disputeColumns = `id, order_id, status,
	initiator_role, initiator_id, initiator_option, initiator_reason, initiator_remark,
	respondent_role, respondent_id, respondent_option, respondent_remark, responded_at,
	deadline_at, escalated_by, escalated_at, escalation_reason,
	decision_option, decision_remark, decision_by, decision_role, decided_at, credit_delta, malicious,
	appeal_count, reminder_level, attachment_proof_ids, created_at, updated_at`

func (r *disputeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Dispute, error) {
	return listDisputes(ctx, conn(ctx, r.db), orderID)
}

func (r *disputeRepository) GetRef(ctx context.Context, id uuid.UUID) (*repository.DisputeRef, error) {
	ref := &repository.DisputeRef{}
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id, order_id FROM disputes WHERE id = $1`, id).Scan(&ref.ID, &ref.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("dispute %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *disputeRepository) ListOverdueOpen(ctx context.Context, now time.Time, limit int) ([]repository.DisputeRef, error) {
	query := `SELECT id, order_id FROM disputes WHERE status = $1 AND deadline_at < $2 ORDER BY deadline_at LIMIT $3`
	return r.listRefs(ctx, query, domain.DisputeStatusOpen, now, limit)
}

func (r *disputeRepository) ListDueForReminder(ctx context.Context, now time.Time, window time.Duration, level, limit int) ([]repository.DisputeRef, error) {
	query := `SELECT id, order_id FROM disputes
	          WHERE status = $1 AND deadline_at >= $2 AND deadline_at <= $3 AND reminder_level < $4
	          ORDER BY deadline_at LIMIT $5`
	return r.listRefs(ctx, query, domain.DisputeStatusOpen, now, now.Add(window), level, limit)
}

func (r *disputeRepository) listRefs(ctx context.Context, query string, args ...any) ([]repository.DisputeRef, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []repository.DisputeRef
	for rows.Next() {
		var ref repository.DisputeRef
		if err := rows.Scan(&ref.ID, &ref.OrderID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func listDisputes(ctx context.Context, q dbtx, orderID uuid.UUID) ([]domain.Dispute, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load disputes: %w", err)
	}
	defer rows.Close()

	var disputes []domain.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, *d)
	}
	return disputes, rows.Err()
}

func scanDispute(rows *sql.Rows) (*domain.Dispute, error) {
	d := &domain.Dispute{}
	var (
		respRole, respOption, respRemark sql.NullString
		respID                           uuid.NullUUID
		respondedAt                      sql.NullTime
		escalatedBy                      uuid.NullUUID
		escalatedAt                      sql.NullTime
		escalationReason                 sql.NullString
		decOption, decRemark, decRole    sql.NullString
		decBy                            uuid.NullUUID
		decidedAt                        sql.NullTime
		creditDelta                      sql.NullInt64
		malicious                        bool
		attachments                      pq.StringArray
	)
	err := rows.Scan(
		&d.ID, &d.OrderID, &d.Status,
		&d.Initiator.Role, &d.Initiator.ID, &d.Initiator.Option, &d.Initiator.Reason, &d.Initiator.Remark,
		&respRole, &respID, &respOption, &respRemark, &respondedAt,
		&d.DeadlineAt, &escalatedBy, &escalatedAt, &escalationReason,
		&decOption, &decRemark, &decBy, &decRole, &decidedAt, &creditDelta, &malicious,
		&d.AppealCount, &d.ReminderLevel, &attachments, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan dispute: %w", err)
	}

	if respRole.Valid {
		d.Respondent = &domain.Response{
			Role:        domain.Role(respRole.String),
			ID:          respID.UUID,
			Option:      domain.ResolutionOption(respOption.String),
			Remark:      respRemark.String,
			RespondedAt: respondedAt.Time,
		}
	}
	if escalatedAt.Valid {
		d.Escalation = &domain.Escalation{
			By:     uuidPtr(escalatedBy),
			At:     escalatedAt.Time,
			Reason: escalationReason.String,
		}
	}
	if decOption.Valid {
		d.Decision = &domain.AdminDecision{
			Option:    domain.ResolutionOption(decOption.String),
			Remark:    decRemark.String,
			By:        decBy.UUID,
			Role:      domain.Role(decRole.String),
			At:        decidedAt.Time,
			Malicious: malicious,
		}
		if creditDelta.Valid {
			v := int(creditDelta.Int64)
			d.Decision.CreditDelta = &v
		}
	}
	for _, raw := range attachments {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("dispute %s attachment %q: %w", d.ID, raw, err)
		}
		d.AttachmentProofIDs = append(d.AttachmentProofIDs, id)
	}
	return d, nil
}

// disputeArgs flattens a dispute into the column order of disputeColumns
func disputeArgs(d *domain.Dispute) []any {
	var (
		respRole, respOption, respRemark sql.NullString
		respID                           uuid.NullUUID
		respondedAt                      sql.NullTime
		escalatedBy                      uuid.NullUUID
		escalatedAt                      sql.NullTime
		escalationReason                 sql.NullString
		decOption, decRemark, decRole    sql.NullString
		decBy                            uuid.NullUUID
		decidedAt                        sql.NullTime
		creditDelta                      sql.NullInt64
		malicious                        bool
	)
	if r := d.Respondent; r != nil {
		respRole = sql.NullString{String: string(r.Role), Valid: true}
		respID = uuid.NullUUID{UUID: r.ID, Valid: true}
		respOption = sql.NullString{String: string(r.Option), Valid: true}
		respRemark = sql.NullString{String: r.Remark, Valid: true}
		respondedAt = sql.NullTime{Time: r.RespondedAt, Valid: true}
	}
	if e := d.Escalation; e != nil {
		if e.By != nil {
			escalatedBy = uuid.NullUUID{UUID: *e.By, Valid: true}
		}
		escalatedAt = sql.NullTime{Time: e.At, Valid: true}
		escalationReason = sql.NullString{String: e.Reason, Valid: true}
	}
	if dec := d.Decision; dec != nil {
		decOption = sql.NullString{String: string(dec.Option), Valid: true}
		decRemark = sql.NullString{String: dec.Remark, Valid: true}
		decBy = uuid.NullUUID{UUID: dec.By, Valid: dec.By != uuid.Nil}
		decRole = sql.NullString{String: string(dec.Role), Valid: true}
		decidedAt = sql.NullTime{Time: dec.At, Valid: true}
		if dec.CreditDelta != nil {
			creditDelta = sql.NullInt64{Int64: int64(*dec.CreditDelta), Valid: true}
		}
		malicious = dec.Malicious
	}
	attachments := make(pq.StringArray, len(d.AttachmentProofIDs))
	for i, id := range d.AttachmentProofIDs {
		attachments[i] = id.String()
	}

	return []any{
		d.ID, d.OrderID, d.Status,
		d.Initiator.Role, d.Initiator.ID, d.Initiator.Option, d.Initiator.Reason, d.Initiator.Remark,
		respRole, respID, respOption, respRemark, respondedAt,
		d.DeadlineAt, escalatedBy, escalatedAt, escalationReason,
		decOption, decRemark, decBy, decRole, decidedAt, creditDelta, malicious,
		d.AppealCount, d.ReminderLevel, attachments, d.CreatedAt, d.UpdatedAt,
	}
}

// upsertDispute inserts a new dispute or rewrites its mutable columns. The
// initiator block and creation time never change.
func upsertDispute(ctx context.Context, q dbtx, d *domain.Dispute) error {
	query := `INSERT INTO disputes (` + disputeColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	                  $21, $22, $23, $24, $25, $26, $27, $28, $29)
	          ON CONFLICT (id) DO UPDATE SET
	              status = EXCLUDED.status,
	              respondent_role = EXCLUDED.respondent_role,
	              respondent_id = EXCLUDED.respondent_id,
	              respondent_option = EXCLUDED.respondent_option,
	              respondent_remark = EXCLUDED.respondent_remark,
	              responded_at = EXCLUDED.responded_at,
	              deadline_at = EXCLUDED.deadline_at,
	              escalated_by = EXCLUDED.escalated_by,
	              escalated_at = EXCLUDED.escalated_at,
	              escalation_reason = EXCLUDED.escalation_reason,
	              decision_option = EXCLUDED.decision_option,
	              decision_remark = EXCLUDED.decision_remark,
	              decision_by = EXCLUDED.decision_by,
	              decision_role = EXCLUDED.decision_role,
	              decided_at = EXCLUDED.decided_at,
	              credit_delta = EXCLUDED.credit_delta,
	              malicious = EXCLUDED.malicious,
	              appeal_count = EXCLUDED.appeal_count,
	              reminder_level = EXCLUDED.reminder_level,
	              attachment_proof_ids = EXCLUDED.attachment_proof_ids,
	              updated_at = EXCLUDED.updated_at`
	if _, err := q.ExecContext(ctx, query, disputeArgs(d)...); err != nil {
		return fmt.Errorf("save dispute %s: %w", d.ID, err)
	}
	return nil
}
