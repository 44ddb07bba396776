package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// errInvalidBody el cuerpo no es JSON válido para el DTO.
var errInvalidBody = errors.New("cuerpo inválido")

// writeError traduce err a status y código estables. Cada regla de negocio conserva su
// propio código; los fallos inesperados se registran y salen como INTERNAL sin detalles.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, body := mapError(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("company_id", GetCompanyID(c)).
			Msg("error inesperado")
	}
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	var (
		vErr   *domain.ValidationError
		pErr   *domain.PaymentExceedsBalanceError
		sErr   *domain.InvoiceStateError
		aErr   *domain.AllocationError
		status int
		code   string
	)
	switch {
	case errors.Is(err, errInvalidBody):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()}

	case errors.As(err, &vErr):
		return fiber.StatusBadRequest, dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: vErr.Error(),
			Details: map[string]any{"field": vErr.Field},
		}
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}

	case errors.As(err, &pErr):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{
			Code:    "PAYMENT_EXCEEDS_BALANCE",
			Message: domain.ErrPaymentExceedsBalance.Error(),
			Details: map[string]any{
				"invoice_id": pErr.InvoiceID,
				"status":     pErr.Status,
				"amount":     pErr.Amount.StringFixed(2),
				"balance":    pErr.Balance.StringFixed(2),
			},
		}

	case errors.As(err, &sErr):
		switch {
		case errors.Is(sErr.Kind, domain.ErrInvoiceNotEditable):
			status, code = fiber.StatusConflict, "INVOICE_NOT_EDITABLE"
		case errors.Is(sErr.Kind, domain.ErrInvalidStateTransition):
			status, code = fiber.StatusConflict, "INVALID_STATE_TRANSITION"
		case errors.Is(sErr.Kind, domain.ErrEmptyInvoice):
			status, code = fiber.StatusUnprocessableEntity, "EMPTY_INVOICE"
		case errors.Is(sErr.Kind, domain.ErrInvoiceNotSent):
			status, code = fiber.StatusConflict, "INVOICE_NOT_SENT"
		default:
			status, code = fiber.StatusConflict, "INVALID_STATE"
		}
		return status, dto.ErrorResponse{
			Code:    code,
			Message: sErr.Kind.Error(),
			Details: map[string]any{
				"invoice_id": sErr.InvoiceID,
				"status":     sErr.Status,
				"balance":    sErr.Balance.StringFixed(2),
			},
		}

	case errors.Is(err, domain.ErrInvoiceNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "INVOICE_NOT_FOUND", Message: "factura no encontrada"}
	case errors.Is(err, domain.ErrCustomerNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "CUSTOMER_NOT_FOUND", Message: "cliente no encontrado"}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}

	case errors.Is(err, domain.ErrConcurrentModification):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "CONCURRENT_MODIFICATION",
			Message: "la factura cambió desde que se leyó; recargue y reintente",
		}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"}

	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"}

	case errors.As(err, &aErr):
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "no se pudo asignar el número de factura, reintente"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}
