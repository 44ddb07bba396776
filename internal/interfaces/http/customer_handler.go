package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Invorya-api/internal/application/billing"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// CustomerHandler maneja las peticiones HTTP de clientes (facturación, protegido).
type CustomerHandler struct {
	uc  *billing.CustomerUseCase
	log *logger.Logger
}

// NewCustomerHandler construye el handler.
func NewCustomerHandler(uc *billing.CustomerUseCase, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{uc: uc, log: log}
}

// Create POST /api/customers
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateCustomerRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	customer, err := h.uc.Create(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// List GET /api/customers?limit=20&offset=0
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.uc.List(c.UserContext(), companyID, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}
