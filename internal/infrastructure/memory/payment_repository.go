package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
)

// PaymentRepository implementación en memoria de repository.PaymentRepository.
type PaymentRepository struct {
	store *Store
	tx    *txState
}

// NewPaymentRepository repositorio sin transacción.
func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	tx := r.tx
	if tx == nil {
		tx = newTxState()
	}
	s := r.store
	s.mu.Lock()
	k := idempotencyKey{invoiceID: payment.InvoiceID, key: payment.IdempotencyKey}
	if payment.IdempotencyKey != "" {
		if _, ok := s.paymentKeys[k]; ok || tx.hasPaymentKey(k) {
			s.mu.Unlock()
			return fmt.Errorf("%w: llave de idempotencia %s", domain.ErrDuplicate, payment.IdempotencyKey)
		}
	}
	tx.payments = append(tx.payments, clonePayment(payment))
	s.mu.Unlock()
	if r.tx == nil {
		return s.commit(tx)
	}
	return nil
}

// LockIdempotencyKey espera hasta que ninguna otra transacción tenga la llave. El candado se
// suelta cuando termina RunBilling, después del commit. Fuera de transacción no hace nada.
func (r *PaymentRepository) LockIdempotencyKey(ctx context.Context, invoiceID, key string) error {
	if r.tx == nil {
		return nil
	}
	k := idempotencyKey{invoiceID: invoiceID, key: key}
	if r.tx.holds(k) {
		return nil
	}
	s := r.store
	for {
		s.mu.Lock()
		held, busy := s.keyLocks[k]
		if !busy {
			s.keyLocks[k] = make(chan struct{})
			s.mu.Unlock()
			r.tx.locks = append(r.tx.locks, k)
			return nil
		}
		s.mu.Unlock()
		select {
		case <-held:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, invoiceID, key string) (*entity.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.tx != nil {
		for _, p := range r.tx.payments {
			if p.InvoiceID == invoiceID && p.IdempotencyKey == key {
				return clonePayment(p), nil
			}
		}
	}
	p, ok := s.paymentKeys[idempotencyKey{invoiceID: invoiceID, key: key}]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r *PaymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Payment, 0)
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, clonePayment(p))
		}
	}
	if r.tx != nil {
		for _, p := range r.tx.payments {
			if p.InvoiceID == invoiceID {
				out = append(out, clonePayment(p))
			}
		}
	}
	return out, nil
}
