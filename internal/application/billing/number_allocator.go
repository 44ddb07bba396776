package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
)

// DefaultNumberPrefix prefijo de los números de factura.
const DefaultNumberPrefix = "INV"

// InvoiceNumberAllocator asigna números INV-{año}-{consecutivo de 4 dígitos} a partir de un
// contador durable por año. No reintenta: un fallo de almacenamiento es AllocationError
// y el caller decide si repetir el comando.
type InvoiceNumberAllocator struct {
	prefix string
}

// NewInvoiceNumberAllocator construye el asignador; prefijo vacío usa DefaultNumberPrefix.
func NewInvoiceNumberAllocator(prefix string) *InvoiceNumberAllocator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return &InvoiceNumberAllocator{prefix: prefix}
}

// Allocate incrementa el contador del año de now usando sequenceRepo (el de la transacción del caller).
func (a *InvoiceNumberAllocator) Allocate(ctx context.Context, sequenceRepo repository.InvoiceSequenceRepository, now time.Time) (string, error) {
	year := now.Year()
	seq, err := sequenceRepo.Next(ctx, year)
	if err != nil {
		return "", &domain.AllocationError{Year: year, Err: err}
	}
	if seq <= 0 {
		return "", &domain.AllocationError{Year: year, Err: fmt.Errorf("consecutivo inválido %d", seq)}
	}
	return FormatInvoiceNumber(a.prefix, year, seq), nil
}

// FormatInvoiceNumber arma el número: INV-2026-0007. Pasado 9999 el consecutivo crece a 5 dígitos.
func FormatInvoiceNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}
