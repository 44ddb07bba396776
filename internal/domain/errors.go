package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// ErrValidation agrupa toda entrada mal formada; el caller corrige y reintenta.
	ErrValidation = errors.New("datos inválidos")
	// ErrInvalidLineItem es un ErrValidation específico de las líneas de factura.
	ErrInvalidLineItem = fmt.Errorf("%w: línea de factura inválida", ErrValidation)

	// Reglas de negocio ligadas al estado de la factura.
	ErrInvoiceNotEditable     = errors.New("la factura no es editable en su estado actual")
	ErrInvalidStateTransition = errors.New("transición de estado no permitida")
	ErrEmptyInvoice           = errors.New("la factura no tiene líneas")

	// Reglas de negocio de pagos. Deben seguir siendo distinguibles hasta el borde HTTP.
	ErrInvoiceNotSent        = errors.New("la factura no está enviada")
	ErrPaymentExceedsBalance = errors.New("el pago excede el saldo de la factura")

	ErrInvoiceNotFound        = fmt.Errorf("%w: factura", ErrNotFound)
	ErrCustomerNotFound       = fmt.Errorf("%w: cliente", ErrNotFound)
	ErrConcurrentModification = errors.New("la factura fue modificada por otra operación")
	ErrAllocation             = errors.New("no se pudo asignar el número de factura")
)

// ValidationError describe el campo que falló la validación.
type ValidationError struct {
	Field   string
	Message string
	kind    error
}

// NewValidationError construye un error de validación genérico.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, kind: ErrValidation}
}

// NewInvalidLineItemError construye un error de validación de línea (Field: "items[i].campo").
func NewInvalidLineItemError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, kind: ErrInvalidLineItem}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	if e.kind == nil {
		return ErrValidation
	}
	return e.kind
}

// InvoiceStateError es una violación de regla de negocio ligada al estado actual.
// Kind es uno de ErrInvoiceNotEditable, ErrInvalidStateTransition, ErrEmptyInvoice o ErrInvoiceNotSent.
type InvoiceStateError struct {
	Kind      error
	InvoiceID string
	Status    string
	Balance   decimal.Decimal
}

func (e *InvoiceStateError) Error() string {
	return fmt.Sprintf("%s (factura %s, estado %s)", e.Kind.Error(), e.InvoiceID, e.Status)
}

func (e *InvoiceStateError) Unwrap() error { return e.Kind }

// PaymentExceedsBalanceError incluye el saldo vigente para que el caller muestre un mensaje exacto.
type PaymentExceedsBalanceError struct {
	InvoiceID string
	Status    string
	Amount    decimal.Decimal
	Balance   decimal.Decimal
}

func (e *PaymentExceedsBalanceError) Error() string {
	return fmt.Sprintf("%s: pago %s, saldo %s (factura %s)",
		ErrPaymentExceedsBalance.Error(), e.Amount.StringFixed(2), e.Balance.StringFixed(2), e.InvoiceID)
}

func (e *PaymentExceedsBalanceError) Unwrap() error { return ErrPaymentExceedsBalance }

// AllocationError es el único fallo inesperado del núcleo: el almacenamiento del consecutivo falló.
type AllocationError struct {
	Year int
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%s (año %d): %v", ErrAllocation.Error(), e.Year, e.Err)
}

func (e *AllocationError) Unwrap() []error { return []error{ErrAllocation, e.Err} }

// IsBusinessRule indica si err es un resultado esperado de la ejecución de un comando
// (validación o regla de negocio), es decir, no debe registrarse como fallo interno.
func IsBusinessRule(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrInvoiceNotEditable, ErrInvalidStateTransition, ErrEmptyInvoice,
		ErrInvoiceNotSent, ErrPaymentExceedsBalance, ErrNotFound, ErrConcurrentModification,
		ErrDuplicate, ErrForbidden, ErrUnauthorized,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
