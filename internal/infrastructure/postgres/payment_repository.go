package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo implementación de PaymentRepository. Los pagos solo se insertan.
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `
	id, invoice_id, company_id, payment_date, amount, method, reference, notes, idempotency_key,
	balance_after, invoice_status_after, invoice_version_after, created_at, created_by`

// Create inserta el pago; el índice único (invoice_id, idempotency_key) convierte un
// reintento concurrente en domain.ErrDuplicate.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.InvoiceID, p.CompanyID, p.PaymentDate, p.Amount, string(p.Method), p.Reference,
		nullIfEmpty(p.Notes), nullIfEmpty(p.IdempotencyKey),
		p.BalanceAfter, string(p.InvoiceStatusAfter), p.InvoiceVersionAfter, p.CreatedAt, nullIfEmpty(p.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: pago con llave %s", domain.ErrDuplicate, p.IdempotencyKey)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// LockIdempotencyKey toma un advisory lock de transacción sobre (factura, llave). Se libera
// en el commit, cuando el pago del ganador ya es visible para quien espera.
func (r *PaymentRepo) LockIdempotencyKey(ctx context.Context, invoiceID, key string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, invoiceID+":"+key); err != nil {
		return fmt.Errorf("lock idempotency key: %w", err)
	}
	return nil
}

// GetByIdempotencyKey busca el pago previo con la misma llave para la factura.
func (r *PaymentRepo) GetByIdempotencyKey(ctx context.Context, invoiceID, key string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 AND idempotency_key = $2`
	p, err := scanPayment(r.q.QueryRow(ctx, query, invoiceID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by idempotency key: %w", err)
	}
	return p, nil
}

// ListByInvoice pagos de la factura en orden de registro.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	var method, status string
	var notes, key, createdBy *string
	err := row.Scan(
		&p.ID, &p.InvoiceID, &p.CompanyID, &p.PaymentDate, &p.Amount, &method, &p.Reference, &notes, &key,
		&p.BalanceAfter, &status, &p.InvoiceVersionAfter, &p.CreatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	p.Method = entity.PaymentMethod(method)
	p.InvoiceStatusAfter = entity.InvoiceStatus(status)
	p.Notes = derefStr(notes)
	p.IdempotencyKey = derefStr(key)
	p.CreatedBy = derefStr(createdBy)
	return &p, nil
}
