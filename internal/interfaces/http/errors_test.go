package http

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Invorya-api/internal/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validación", domain.NewValidationError("amount", "debe ser mayor que cero"), fiber.StatusBadRequest, "VALIDATION"},
		{"línea inválida", domain.NewInvalidLineItemError("items[0].quantity", "debe ser mayor que cero"), fiber.StatusBadRequest, "VALIDATION"},
		{"no editable", &domain.InvoiceStateError{Kind: domain.ErrInvoiceNotEditable, Status: "SENT"}, fiber.StatusConflict, "INVOICE_NOT_EDITABLE"},
		{"transición", &domain.InvoiceStateError{Kind: domain.ErrInvalidStateTransition, Status: "PAID"}, fiber.StatusConflict, "INVALID_STATE_TRANSITION"},
		{"vacía", &domain.InvoiceStateError{Kind: domain.ErrEmptyInvoice, Status: "DRAFT"}, fiber.StatusUnprocessableEntity, "EMPTY_INVOICE"},
		{"no enviada", &domain.InvoiceStateError{Kind: domain.ErrInvoiceNotSent, Status: "DRAFT"}, fiber.StatusConflict, "INVOICE_NOT_SENT"},
		{"excede saldo", &domain.PaymentExceedsBalanceError{Amount: decimal.NewFromInt(150), Balance: decimal.RequireFromString("97.20")}, fiber.StatusUnprocessableEntity, "PAYMENT_EXCEEDS_BALANCE"},
		{"factura inexistente", domain.ErrInvoiceNotFound, fiber.StatusNotFound, "INVOICE_NOT_FOUND"},
		{"cliente inexistente", domain.ErrCustomerNotFound, fiber.StatusNotFound, "CUSTOMER_NOT_FOUND"},
		{"concurrencia envuelta", fmt.Errorf("update invoice: %w", domain.ErrConcurrentModification), fiber.StatusConflict, "CONCURRENT_MODIFICATION"},
		{"duplicado", domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
		{"prohibido", domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
		{"no autorizado", domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"consecutivo", &domain.AllocationError{Year: 2026, Err: errors.New("timeout")}, fiber.StatusInternalServerError, "INTERNAL"},
		{"desconocido", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestMapError_DetallesDelPago(t *testing.T) {
	_, body := mapError(&domain.PaymentExceedsBalanceError{
		InvoiceID: "inv-1",
		Status:    "SENT",
		Amount:    decimal.RequireFromString("150"),
		Balance:   decimal.RequireFromString("97.2"),
	})
	assert.Equal(t, "150.00", body.Details["amount"])
	assert.Equal(t, "97.20", body.Details["balance"])
	assert.Equal(t, "SENT", body.Details["status"])
}
