package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
)

// InvoiceRepository implementación en memoria de repository.InvoiceRepository.
type InvoiceRepository struct {
	store *Store
	tx    *txState // nil fuera de transacción: cada escritura se publica sola
}

// NewInvoiceRepository repositorio sin transacción.
func NewInvoiceRepository(store *Store) *InvoiceRepository {
	return &InvoiceRepository{store: store}
}

func (r *InvoiceRepository) write(fn func(tx *txState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	tx := newTxState()
	if err := fn(tx); err != nil {
		return err
	}
	return r.store.commit(tx)
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	return r.write(func(tx *txState) error {
		s := r.store
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.invoice(tx, invoice.ID); ok {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, invoice.ID)
		}
		if _, ok := s.numbers[invoice.Number]; ok {
			return fmt.Errorf("%w: número %s", domain.ErrDuplicate, invoice.Number)
		}
		for _, p := range tx.invoices {
			if p.created && p.snap.Number == invoice.Number {
				return fmt.Errorf("%w: número %s", domain.ErrDuplicate, invoice.Number)
			}
		}
		tx.invoices[invoice.ID] = &pendingInvoice{snap: invoice.Snapshot(), created: true}
		return nil
	})
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	return r.write(func(tx *txState) error {
		s := r.store
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.invoice(tx, invoice.ID)
		if !ok || cur.Version != invoice.Version() {
			return fmt.Errorf("%w: factura %s versión %d", domain.ErrConcurrentModification, invoice.ID, invoice.Version())
		}
		next := invoice.Snapshot()
		next.Version = cur.Version + 1
		if !cur.Status.IsEditable() {
			next.Lines = cur.Lines
		}
		pending, buffered := tx.invoices[invoice.ID]
		if !buffered {
			pending = &pendingInvoice{base: cur.Version}
			tx.invoices[invoice.ID] = pending
		}
		pending.snap = next
		invoice.Persisted()
		return nil
	})
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	s := r.store
	s.mu.Lock()
	snap, ok := s.invoice(r.tx, id)
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return entity.RestoreInvoice(snap)
}

func (r *InvoiceRepository) List(ctx context.Context, filter repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	s := r.store
	s.mu.Lock()
	visible := make(map[string]entity.InvoiceSnapshot, len(s.invoices))
	for id, snap := range s.invoices {
		visible[id] = snap
	}
	if r.tx != nil {
		for id, p := range r.tx.invoices {
			visible[id] = p.snap
		}
	}
	s.mu.Unlock()

	matched := make([]entity.InvoiceSnapshot, 0)
	for _, h := range visible {
		if h.CompanyID != filter.CompanyID {
			continue
		}
		if filter.CustomerID != "" && h.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && h.Status != filter.Status {
			continue
		}
		matched = append(matched, h)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Number > b.Number
	})
	total := len(matched)
	if filter.Offset >= total {
		return []*entity.Invoice{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	out := make([]*entity.Invoice, 0, end-filter.Offset)
	for _, snap := range matched[filter.Offset:end] {
		inv, err := entity.RestoreInvoice(snap)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, nil
}
