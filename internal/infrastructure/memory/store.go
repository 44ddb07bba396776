// Package memory adaptador en memoria de los puertos de facturación. Aplica las mismas
// reglas que PostgreSQL: compare-and-swap de versión, llaves únicas y consecutivo por año.
// Dentro de RunBilling las escrituras quedan en un buffer de la transacción y solo se
// publican en el commit, bajo Store.mu y después de volver a comparar versiones y llaves.
package memory

import (
	"fmt"
	"sync"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
)

type idempotencyKey struct {
	invoiceID string
	key       string
}

type taxIDKey struct {
	companyID string
	taxID     string
}

// Store estado compartido por los repositorios en memoria.
type Store struct {
	mu sync.Mutex

	invoices     map[string]entity.InvoiceSnapshot
	numbers      map[string]string // número -> id
	payments     []*entity.Payment
	paymentKeys  map[idempotencyKey]*entity.Payment
	sequences    map[int]int64
	customers    map[string]*entity.Customer
	customerTaxs map[taxIDKey]string
	keyLocks     map[idempotencyKey]chan struct{} // se cierra al liberar
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		invoices:     make(map[string]entity.InvoiceSnapshot),
		numbers:      make(map[string]string),
		paymentKeys:  make(map[idempotencyKey]*entity.Payment),
		sequences:    make(map[int]int64),
		customers:    make(map[string]*entity.Customer),
		customerTaxs: make(map[taxIDKey]string),
		keyLocks:     make(map[idempotencyKey]chan struct{}),
	}
}

// pendingInvoice escritura de factura aún no publicada.
type pendingInvoice struct {
	snap    entity.InvoiceSnapshot
	base    int64 // versión publicada sobre la que se escribió; 0 si es nueva
	created bool
}

type sequenceAlloc struct {
	year  int
	value int64
}

// txState buffer de una transacción. Solo lo usa la goroutine que ejecuta RunBilling.
type txState struct {
	invoices  map[string]*pendingInvoice
	payments  []*entity.Payment
	sequences []sequenceAlloc
	locks     []idempotencyKey
}

func newTxState() *txState {
	return &txState{invoices: make(map[string]*pendingInvoice)}
}

func (tx *txState) hasPaymentKey(k idempotencyKey) bool {
	for _, p := range tx.payments {
		if p.IdempotencyKey != "" && p.InvoiceID == k.invoiceID && p.IdempotencyKey == k.key {
			return true
		}
	}
	return false
}

func (tx *txState) holds(k idempotencyKey) bool {
	for _, held := range tx.locks {
		if held == k {
			return true
		}
	}
	return false
}

// invoice devuelve la versión que ve la transacción: primero su buffer, luego lo publicado.
// Llamar con s.mu tomado.
func (s *Store) invoice(tx *txState, id string) (entity.InvoiceSnapshot, bool) {
	if tx != nil {
		if p, ok := tx.invoices[id]; ok {
			return p.snap, true
		}
	}
	snap, ok := s.invoices[id]
	return snap, ok
}

// commit publica el buffer completo o nada.
func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range tx.invoices {
		cur, exists := s.invoices[id]
		switch {
		case p.created && exists:
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, id)
		case p.created:
			if _, taken := s.numbers[p.snap.Number]; taken {
				return fmt.Errorf("%w: número %s", domain.ErrDuplicate, p.snap.Number)
			}
		case !exists || cur.Version != p.base:
			return fmt.Errorf("%w: factura %s versión %d", domain.ErrConcurrentModification, id, p.base)
		}
	}
	for _, p := range tx.payments {
		if p.IdempotencyKey == "" {
			continue
		}
		if _, ok := s.paymentKeys[idempotencyKey{invoiceID: p.InvoiceID, key: p.IdempotencyKey}]; ok {
			return fmt.Errorf("%w: llave de idempotencia %s", domain.ErrDuplicate, p.IdempotencyKey)
		}
	}

	for id, p := range tx.invoices {
		s.invoices[id] = p.snap
		if p.created {
			s.numbers[p.snap.Number] = id
		}
	}
	for _, p := range tx.payments {
		s.payments = append(s.payments, p)
		if p.IdempotencyKey != "" {
			s.paymentKeys[idempotencyKey{invoiceID: p.InvoiceID, key: p.IdempotencyKey}] = p
		}
	}
	tx.invoices = nil
	tx.payments = nil
	tx.sequences = nil
	return nil
}

// discard descarta el buffer. Un consecutivo se devuelve solo si nadie más lo avanzó;
// si no, queda un hueco, nunca un número repetido.
func (s *Store) discard(tx *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(tx.sequences) - 1; i >= 0; i-- {
		a := tx.sequences[i]
		if s.sequences[a.year] == a.value {
			s.sequences[a.year] = a.value - 1
		}
	}
	tx.invoices = nil
	tx.payments = nil
	tx.sequences = nil
}

// release libera los candados de llave tomados por la transacción.
func (s *Store) release(tx *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range tx.locks {
		if ch, ok := s.keyLocks[k]; ok {
			delete(s.keyLocks, k)
			close(ch)
		}
	}
	tx.locks = nil
}

func clonePayment(p *entity.Payment) *entity.Payment {
	c := *p
	return &c
}

func cloneCustomer(c *entity.Customer) *entity.Customer {
	cc := *c
	return &cc
}
