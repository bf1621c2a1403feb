package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var paymentSchema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(64) PRIMARY KEY,
		request_id VARCHAR(64) NOT NULL UNIQUE,
		property_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		amount NUMERIC(18,2) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		status VARCHAR(16) NOT NULL,
		gateway_reference VARCHAR(128) NOT NULL UNIQUE,
		checkout_url TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		approved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_pending_created_at ON payments(created_at) WHERE status = 'PENDING'`,
}

const paymentColumns = `id, request_id, property_id, user_id, amount, currency, status, gateway_reference, checkout_url, failure_reason, created_at, updated_at, approved_at`

// PaymentPostgresRepository persists Payment entities in PostgreSQL.
type PaymentPostgresRepository struct {
	db *sql.DB
}

var _ interfaces.IPaymentRepository = (*PaymentPostgresRepository)(nil)

func NewPaymentPostgresRepository(db *sql.DB) *PaymentPostgresRepository {
	return &PaymentPostgresRepository{db: db}
}

// InitSchema creates the payments table and indexes when missing.
func (r *PaymentPostgresRepository) InitSchema(ctx context.Context) error {
	for _, query := range paymentSchema {
		if _, err := r.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (r *PaymentPostgresRepository) Create(ctx context.Context, p entities.Payment) (entities.Payment, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.RequestID, p.PropertyID, p.UserID, p.Amount, p.Currency, string(p.Status),
		p.GatewayReference, p.CheckoutURL, p.FailureReason, p.CreatedAt.UTC(), p.UpdatedAt.UTC(), nullTime(p.ApprovedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return entities.Payment{}, interfaces.ErrDuplicatePayment
		}
		return entities.Payment{}, err
	}
	return p, nil
}

func (r *PaymentPostgresRepository) GetByID(ctx context.Context, id string) (entities.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *PaymentPostgresRepository) GetByRequestID(ctx context.Context, requestID string) (entities.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE request_id = $1`, requestID)
}

func (r *PaymentPostgresRepository) GetByGatewayReference(ctx context.Context, reference string) (entities.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_reference = $1`, reference)
}

func (r *PaymentPostgresRepository) getOne(ctx context.Context, query string, arg string) (entities.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Payment{}, nil
	}
	return p, err
}

func (r *PaymentPostgresRepository) TransitionFromPending(ctx context.Context, id string, t entities.StatusTransition) (entities.Payment, bool, error) {
	var approvedAt *time.Time
	reason := t.FailureReason
	if t.Status == entities.PaymentStatusSuccess {
		at := t.At
		approvedAt = &at
		reason = ""
	}

	updated, err := scanPayment(r.db.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $2, failure_reason = $3, approved_at = $4, updated_at = $5
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+paymentColumns,
		id, string(t.Status), reason, nullTime(approvedAt), t.At.UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		current, err := r.GetByID(ctx, id)
		return current, false, err
	}
	if err != nil {
		return entities.Payment{}, false, err
	}
	return updated, true, nil
}

func (r *PaymentPostgresRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]entities.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = 'PENDING' AND created_at < $1 ORDER BY created_at`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]entities.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const paymentStatsQuery = `
	SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'PENDING'),
		COUNT(*) FILTER (WHERE status = 'SUCCESS'),
		COUNT(*) FILTER (WHERE status = 'FAILED'),
		COALESCE(SUM(amount) FILTER (WHERE status = 'SUCCESS'), 0)
	FROM payments`

func (r *PaymentPostgresRepository) Stats(ctx context.Context) (entities.PaymentStats, error) {
	var s entities.PaymentStats
	err := r.db.QueryRowContext(ctx, paymentStatsQuery).Scan(&s.Total, &s.Pending, &s.Success, &s.Failed, &s.Revenue)
	if err != nil {
		return entities.PaymentStats{}, err
	}
	return s, nil
}

func (r *PaymentPostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (entities.Payment, error) {
	var (
		p          entities.Payment
		status     string
		approvedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.RequestID, &p.PropertyID, &p.UserID, &p.Amount, &p.Currency, &status,
		&p.GatewayReference, &p.CheckoutURL, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &approvedAt,
	)
	if err != nil {
		return entities.Payment{}, err
	}
	p.Status = entities.PaymentStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if approvedAt.Valid {
		at := approvedAt.Time.UTC()
		p.ApprovedAt = &at
	}
	return p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
