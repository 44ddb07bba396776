package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Invorya-api/internal/domain/repository"
)

var _ repository.InvoiceSequenceRepository = (*InvoiceSequenceRepo)(nil)

// InvoiceSequenceRepo contador de consecutivos por año (tabla invoice_sequences).
type InvoiceSequenceRepo struct {
	q Querier
}

// NewInvoiceSequenceRepository construye el adaptador. Debe recibir la tx del comando.
func NewInvoiceSequenceRepository(q Querier) *InvoiceSequenceRepo {
	return &InvoiceSequenceRepo{q: q}
}

// Next incrementa el contador del año en una sola sentencia. La fila queda bloqueada hasta
// el fin de la transacción, así dos facturas concurrentes nunca reciben el mismo número.
func (r *InvoiceSequenceRepo) Next(ctx context.Context, year int) (int64, error) {
	const query = `
		INSERT INTO invoice_sequences (year, last_value, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (year) DO UPDATE
		SET last_value = invoice_sequences.last_value + 1,
		    updated_at = now()
		RETURNING last_value`
	var value int64
	if err := r.q.QueryRow(ctx, query, year).Scan(&value); err != nil {
		return 0, fmt.Errorf("next invoice sequence %d: %w", year, err)
	}
	return value, nil
}
