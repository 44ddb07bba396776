package repository

import (
	"context"

	"github.com/jhoicas/Invorya-api/internal/domain/entity"
)

// InvoiceFilter filtros del listado de facturas. CompanyID es obligatorio.
type InvoiceFilter struct {
	CompanyID  string
	CustomerID string
	Status     entity.InvoiceStatus
	Limit      int
	Offset     int
}

// InvoiceRepository define el puerto de persistencia para el agregado Invoice (cabecera + líneas).
type InvoiceRepository interface {
	// Create inserta cabecera y líneas. Un número repetido es domain.ErrDuplicate.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update persiste el agregado comparando y reemplazando la versión en una sola sentencia:
	// UPDATE ... SET version = version + 1 WHERE id = $1 AND version = $2.
	// Si no afecta filas devuelve domain.ErrConcurrentModification. Al persistir avanza la versión con invoice.Persisted().
	// Las líneas solo se reescriben cuando la factura está en DRAFT.
	Update(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// List devuelve una página de facturas (cabecera y líneas) y el total de filas del filtro.
	// Orden: más recientes primero.
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, int, error)
}
