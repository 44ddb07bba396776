package memory

import (
	"context"

	"github.com/jhoicas/Invorya-api/internal/domain/repository"
)

// TxRunner implementa billing.BillingTxRunner sobre Store.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// RunBilling ejecuta fn sobre un buffer propio y lo publica al terminar sin error.
// Si fn falla, el contexto se cancela o el commit detecta un conflicto, nada se publica.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	sequenceRepo repository.InvoiceSequenceRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newTxState()
	defer r.store.release(tx)

	err := fn(
		&InvoiceRepository{store: r.store, tx: tx},
		&PaymentRepository{store: r.store, tx: tx},
		&InvoiceSequenceRepository{store: r.store, tx: tx},
	)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = r.store.commit(tx)
	}
	if err != nil {
		r.store.discard(tx)
		return err
	}
	return nil
}
