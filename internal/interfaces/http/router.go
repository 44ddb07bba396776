package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Invorya-api/internal/application/billing"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CustomerUC *billing.CustomerUseCase
	InvoiceUC  *billing.InvoiceUseCase
	PaymentSvc *billing.PaymentReconciliationService
	Tokens     TokenParser
	Log        *logger.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token; las mutaciones además
// exigen rol: facturas admin/facturador, pagos también tesorero.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api", AuthMiddleware(deps.Tokens))

	billingRoles := RequireRole(RoleAdmin, RoleFacturador)
	paymentRoles := RequireRole(RoleAdmin, RoleFacturador, RoleTesorero)

	// Customers
	customers := api.Group("/customers")
	customerHandler := NewCustomerHandler(deps.CustomerUC, log)
	customers.Post("/", billingRoles, customerHandler.Create)
	customers.Get("/", customerHandler.List)

	// Invoices
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, log)
	invoices.Post("/", billingRoles, invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id", billingRoles, invoiceHandler.Update)
	invoices.Post("/:id/items", billingRoles, invoiceHandler.AddItem)
	invoices.Put("/:id/items/:index", billingRoles, invoiceHandler.UpdateItem)
	invoices.Delete("/:id/items/:index", billingRoles, invoiceHandler.RemoveItem)
	invoices.Post("/:id/send", billingRoles, invoiceHandler.Send)

	// Payments
	paymentHandler := NewPaymentHandler(deps.PaymentSvc, log)
	invoices.Post("/:id/payments", paymentRoles, paymentHandler.Record)
	invoices.Get("/:id/payments", paymentHandler.List)
}
