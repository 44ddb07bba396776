package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCustomerRequest body para POST /api/customers.
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	TaxID string `json:"tax_id" validate:"required,max=30"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"max=30"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	TaxID     string `json:"tax_id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LineItemRequest línea de factura. Los montos derivados no se reciben: se calculan.
type LineItemRequest struct {
	Description     string          `json:"description" validate:"required,max=500"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"` // 0..1
	TaxRate         decimal.Decimal `json:"tax_rate"`         // 0.19 = 19%
}

// CreateInvoiceRequest body para POST /api/invoices. Fechas en formato YYYY-MM-DD.
// El número de factura no se recibe: lo asigna el servidor.
type CreateInvoiceRequest struct {
	CustomerID   string            `json:"customer_id" validate:"required"`
	IssueDate    string            `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate      string            `json:"due_date" validate:"required,datetime=2006-01-02"`
	PaymentTerms string            `json:"payment_terms,omitempty" validate:"max=100"`
	Notes        string            `json:"notes,omitempty" validate:"max=2000"`
	Items        []LineItemRequest `json:"items" validate:"dive"`
}

// UpdateInvoiceRequest body para PUT /api/invoices/:id (solo en DRAFT).
// Version es opcional: si se envía debe coincidir con la versión vigente.
type UpdateInvoiceRequest struct {
	CustomerID   string            `json:"customer_id" validate:"required"`
	IssueDate    string            `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate      string            `json:"due_date" validate:"required,datetime=2006-01-02"`
	PaymentTerms string            `json:"payment_terms,omitempty" validate:"max=100"`
	Notes        string            `json:"notes,omitempty" validate:"max=2000"`
	Items        []LineItemRequest `json:"items" validate:"dive"`
	Version      *int64            `json:"version,omitempty" validate:"omitempty,min=1"`
}

// ListInvoicesQuery filtros de GET /api/invoices.
type ListInvoicesQuery struct {
	PageRequest
	Status     string `query:"status" validate:"omitempty,oneof=DRAFT SENT PAID"`
	CustomerID string `query:"customer_id"`
}

// LineItemResponse línea con sus montos derivados.
type LineItemResponse struct {
	Index           int             `json:"index"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Subtotal        Money           `json:"subtotal"`
	DiscountAmount  Money           `json:"discount_amount"`
	TaxableAmount   Money           `json:"taxable_amount"`
	TaxAmount       Money           `json:"tax_amount"`
	Total           Money           `json:"total"`
}

// InvoiceResponse proyección completa de la factura para GET /api/invoices/:id y comandos.
type InvoiceResponse struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	CustomerID    string             `json:"customer_id"`
	Number        string             `json:"number"`
	Status        string             `json:"status"`
	IssueDate     string             `json:"issue_date"`
	DueDate       string             `json:"due_date"`
	PaymentTerms  string             `json:"payment_terms"`
	Notes         string             `json:"notes,omitempty"`
	Items         []LineItemResponse `json:"items"`
	Subtotal      Money              `json:"subtotal"`
	TotalDiscount Money              `json:"total_discount"`
	TotalTax      Money              `json:"total_tax"`
	TotalAmount   Money              `json:"total_amount"`
	AmountPaid    Money              `json:"amount_paid"`
	Balance       Money              `json:"balance"`
	Version       int64              `json:"version"`
	CreatedBy     string             `json:"created_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	PaidAt        *time.Time         `json:"paid_at,omitempty"`
}

// InvoiceSummaryResponse fila del listado de facturas (sin líneas).
type InvoiceSummaryResponse struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customer_id"`
	Number      string `json:"number"`
	Status      string `json:"status"`
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date"`
	TotalAmount Money  `json:"total_amount"`
	Balance     Money  `json:"balance"`
	Version     int64  `json:"version"`
}

// InvoiceListResponse respuesta paginada de GET /api/invoices.
type InvoiceListResponse struct {
	Items []InvoiceSummaryResponse `json:"items"`
	Page  PageResponse             `json:"page"`
}

// RecordPaymentRequest body para POST /api/invoices/:id/payments.
// IdempotencyKey también puede llegar en el header Idempotency-Key.
type RecordPaymentRequest struct {
	PaymentDate    string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method" validate:"required,oneof=CREDIT_CARD BANK_TRANSFER CHECK CASH"`
	Reference      string          `json:"reference" validate:"required,max=120"`
	Notes          string          `json:"notes,omitempty" validate:"max=2000"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=120"`
}

// PaymentResponse pago registrado.
type PaymentResponse struct {
	ID             string    `json:"id"`
	InvoiceID      string    `json:"invoice_id"`
	PaymentDate    string    `json:"payment_date"`
	Amount         Money     `json:"amount"`
	Method         string    `json:"method"`
	Reference      string    `json:"reference"`
	Notes          string    `json:"notes,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedBy      string    `json:"created_by,omitempty"`
}

// PaymentListResponse pagos de una factura en orden de registro.
type PaymentListResponse struct {
	InvoiceID string            `json:"invoice_id"`
	Items     []PaymentResponse `json:"items"`
}

// RecordPaymentResponse pago creado más el saldo y estado resultantes de la factura.
// Replayed indica que la respuesta corresponde a un pago previo con la misma llave.
type RecordPaymentResponse struct {
	Payment       PaymentResponse `json:"payment"`
	InvoiceID     string          `json:"invoice_id"`
	InvoiceStatus string          `json:"invoice_status"`
	Balance       Money           `json:"balance"`
	Version       int64           `json:"version"`
	Replayed      bool            `json:"replayed"`
}
