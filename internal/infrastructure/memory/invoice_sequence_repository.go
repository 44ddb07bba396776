package memory

import "context"

// InvoiceSequenceRepository contador por año en memoria.
type InvoiceSequenceRepository struct {
	store *Store
	tx    *txState
}

// NewInvoiceSequenceRepository repositorio sin transacción.
func NewInvoiceSequenceRepository(store *Store) *InvoiceSequenceRepository {
	return &InvoiceSequenceRepository{store: store}
}

// Next incrementa el contador del año al instante, como una secuencia. Si la transacción
// se descarta el valor se devuelve cuando nadie más lo avanzó.
func (r *InvoiceSequenceRepository) Next(ctx context.Context, year int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[year]++
	value := s.sequences[year]
	if r.tx != nil {
		r.tx.sequences = append(r.tx.sequences, sequenceAlloc{year: year, value: value})
	}
	return value, nil
}
