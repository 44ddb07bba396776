package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Cabecera en invoices, líneas en invoice_line_items ordenadas por position.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, company_id, customer_id, number, status, issue_date, due_date, payment_terms, notes,
	subtotal, total_discount, total_tax, total_amount, amount_paid, balance,
	version, created_by, created_at, updated_at, sent_at, paid_at`

// invoiceSelectColumns omite los totales guardados: RestoreInvoice los recalcula desde las líneas.
const invoiceSelectColumns = `
	id, company_id, customer_id, number, status, issue_date, due_date, payment_terms, notes,
	amount_paid, version, created_by, created_at, updated_at, sent_at, paid_at`

// Create persiste cabecera y líneas.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.CompanyID, invoice.CustomerID, invoice.Number, string(invoice.Status()),
		invoice.IssueDate, invoice.DueDate, invoice.PaymentTerms, nullIfEmpty(invoice.Notes),
		invoice.Subtotal(), invoice.TotalDiscount(), invoice.TotalTax(), invoice.TotalAmount(), invoice.AmountPaid(), invoice.Balance(),
		invoice.Version(), nullIfEmpty(invoice.CreatedBy), invoice.CreatedAt, invoice.UpdatedAt, invoice.SentAt(), invoice.PaidAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, invoice.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return r.insertLines(ctx, invoice)
}

// Update compara y reemplaza la versión en una sola sentencia. Las líneas solo se
// reescriben mientras la factura sigue en DRAFT.
func (r *InvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	const query = `
		UPDATE invoices
		SET customer_id    = $3,
		    status         = $4,
		    issue_date     = $5,
		    due_date       = $6,
		    payment_terms  = $7,
		    notes          = $8,
		    subtotal       = $9,
		    total_discount = $10,
		    total_tax      = $11,
		    total_amount   = $12,
		    amount_paid    = $13,
		    balance        = $14,
		    updated_at     = $15,
		    sent_at        = $16,
		    paid_at        = $17,
		    version        = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`
	var version int64
	err := r.q.QueryRow(ctx, query,
		invoice.ID, invoice.Version(),
		invoice.CustomerID, string(invoice.Status()), invoice.IssueDate, invoice.DueDate,
		invoice.PaymentTerms, nullIfEmpty(invoice.Notes),
		invoice.Subtotal(), invoice.TotalDiscount(), invoice.TotalTax(), invoice.TotalAmount(),
		invoice.AmountPaid(), invoice.Balance(), invoice.UpdatedAt, invoice.SentAt(), invoice.PaidAt(),
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: factura %s versión %d", domain.ErrConcurrentModification, invoice.ID, invoice.Version())
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	invoice.Persisted()
	if version != invoice.Version() {
		return fmt.Errorf("update invoice: versión %d tras guardar, se esperaba %d", version, invoice.Version())
	}

	if invoice.Status().IsEditable() {
		if _, err := r.q.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, invoice.ID); err != nil {
			return fmt.Errorf("delete invoice lines: %w", err)
		}
		return r.insertLines(ctx, invoice)
	}
	return nil
}

// GetByID obtiene la factura con sus líneas; (nil, nil) si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceSelectColumns + ` FROM invoices WHERE id = $1`
	snap, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	lines, err := r.loadLines(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	snap.Lines = lines[id]
	return entity.RestoreInvoice(snap)
}

// List filtra por empresa, cliente y estado; más recientes primero.
func (r *InvoiceRepo) List(ctx context.Context, filter repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	where := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY created_at DESC, number DESC LIMIT $%d OFFSET $%d`,
		invoiceSelectColumns, cond, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var headers []entity.InvoiceSnapshot
	for rows.Next() {
		h, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	list := make([]*entity.Invoice, 0, len(headers))
	for _, h := range headers {
		h.Lines = lines[h.ID]
		inv, err := entity.RestoreInvoice(h)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, inv)
	}
	return list, total, nil
}

// insertLines guarda las líneas con sus montos derivados (para reportes SQL); al leer se recalculan.
func (r *InvoiceRepo) insertLines(ctx context.Context, invoice *entity.Invoice) error {
	items := invoice.LineItems()
	if len(items) == 0 {
		return nil
	}
	const query = `
		INSERT INTO invoice_line_items (invoice_id, position, description, quantity, unit_price, discount_percent, tax_rate,
		                                subtotal, discount_amount, taxable_amount, tax_amount, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	batch := &pgx.Batch{}
	for i, item := range items {
		a := item.Amounts()
		batch.Queue(query,
			invoice.ID, i, item.Description, item.Quantity, item.UnitPrice, item.DiscountPercent, item.TaxRate,
			a.Subtotal, a.DiscountAmount, a.TaxableAmount, a.TaxAmount, a.Total,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	for range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}
	return br.Close()
}

func (r *InvoiceRepo) loadLines(ctx context.Context, invoiceIDs []string) (map[string][]entity.LineItemInput, error) {
	out := make(map[string][]entity.LineItemInput, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return out, nil
	}
	const query = `
		SELECT invoice_id, description, quantity, unit_price, discount_percent, tax_rate
		FROM invoice_line_items WHERE invoice_id = ANY($1) ORDER BY invoice_id, position`
	rows, err := r.q.Query(ctx, query, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var invoiceID string
		var l entity.LineItemInput
		if err := rows.Scan(&invoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.DiscountPercent, &l.TaxRate); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		out[invoiceID] = append(out[invoiceID], l)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (entity.InvoiceSnapshot, error) {
	var snap entity.InvoiceSnapshot
	var status string
	var notes, createdBy *string
	err := row.Scan(
		&snap.ID, &snap.CompanyID, &snap.CustomerID, &snap.Number, &status,
		&snap.IssueDate, &snap.DueDate, &snap.PaymentTerms, &notes,
		&snap.AmountPaid, &snap.Version, &createdBy, &snap.CreatedAt, &snap.UpdatedAt, &snap.SentAt, &snap.PaidAt,
	)
	if err != nil {
		return entity.InvoiceSnapshot{}, err
	}
	snap.Status = entity.InvoiceStatus(status)
	snap.Notes = derefStr(notes)
	snap.CreatedBy = derefStr(createdBy)
	return snap, nil
}
