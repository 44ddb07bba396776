package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Invorya-api/internal/application/billing"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// HeaderIdempotencyKey alternativa al campo idempotency_key del cuerpo.
const HeaderIdempotencyKey = "Idempotency-Key"

// PaymentHandler pagos de facturas (protegido).
type PaymentHandler struct {
	svc *billing.PaymentReconciliationService
	log *logger.Logger
}

// NewPaymentHandler construye el handler.
func NewPaymentHandler(svc *billing.PaymentReconciliationService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log}
}

// Record godoc
// @Summary      Registrar pago de una factura
// @Description  201 si el pago se aplicó; 200 si repite una llave de idempotencia ya usada (mismo resultado).
// @Tags         payments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string                    true   "ID de la factura"
// @Param        Idempotency-Key  header  string                    false  "llave de idempotencia"
// @Param        body             body    dto.RecordPaymentRequest  true   "payment_date, amount, method, reference"
// @Success      201  {object}  dto.RecordPaymentResponse
// @Success      200  {object}  dto.RecordPaymentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/payments [post]
func (h *PaymentHandler) Record(c *fiber.Ctx) error {
	companyID, userID, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.RecordPaymentRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		in.IdempotencyKey = strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	}
	res, err := h.svc.RecordPayment(c.UserContext(), companyID, userID, c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if res.Replayed {
		return c.JSON(res)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// List pagos de la factura.
// GET /api/invoices/:id/payments
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListPayments(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}
