package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Invorya-api/internal/application/billing"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// InvoiceHandler maneja las peticiones HTTP de facturación (protegido).
type InvoiceHandler struct {
	uc  *billing.InvoiceUseCase
	log *logger.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.InvoiceUseCase, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear factura en borrador
// @Description  El número (INV-AAAA-NNNN) lo asigna el servidor.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInvoiceRequest  true  "customer_id, issue_date, due_date, items"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	companyID, userID, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateInvoiceRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	invoice, err := h.uc.CreateInvoice(c.UserContext(), companyID, userID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// List lista facturas de la empresa.
// GET /api/invoices?status=SENT&customer_id=...&limit=20&offset=0
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var q dto.ListInvoicesQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.uc.ListInvoices(c.UserContext(), companyID, q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// GetByID obtiene el detalle completo de una factura.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	invoice, err := h.uc.GetInvoice(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(invoice)
}

// Update reemplaza cabecera y líneas de un borrador.
// PUT /api/invoices/:id
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.UpdateInvoiceRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	invoice, err := h.uc.UpdateInvoice(c.UserContext(), companyID, c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(invoice)
}

// AddItem agrega una línea.
// POST /api/invoices/:id/items
func (h *InvoiceHandler) AddItem(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.LineItemRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	invoice, err := h.uc.AddLineItem(c.UserContext(), companyID, c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// UpdateItem reemplaza la línea en :index.
// PUT /api/invoices/:id/items/:index
func (h *InvoiceHandler) UpdateItem(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return writeError(c, h.log, domain.NewValidationError("index", "debe ser un entero"))
	}
	var in dto.LineItemRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	invoice, err := h.uc.UpdateLineItem(c.UserContext(), companyID, c.Params("id"), index, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(invoice)
}

// RemoveItem elimina la línea en :index.
// DELETE /api/invoices/:id/items/:index
func (h *InvoiceHandler) RemoveItem(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return writeError(c, h.log, domain.NewValidationError("index", "debe ser un entero"))
	}
	invoice, err := h.uc.RemoveLineItem(c.UserContext(), companyID, c.Params("id"), index)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(invoice)
}

// Send pasa la factura a SENT.
// POST /api/invoices/:id/send
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	invoice, err := h.uc.SendInvoice(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(invoice)
}

// identity devuelve company y user del token; ok=false si faltan.
func identity(c *fiber.Ctx) (companyID, userID string, ok bool) {
	companyID = GetCompanyID(c)
	userID = GetUserID(c)
	return companyID, userID, companyID != "" && userID != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
