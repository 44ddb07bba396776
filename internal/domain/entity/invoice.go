package entity

import (
	"strings"
	"time"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceStatus estado de la factura. Enum cerrado: solo avanza DRAFT → SENT → PAID.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "DRAFT" // Editable; aún no se entrega al cliente
	InvoiceStatusSent  InvoiceStatus = "SENT"  // Enviada; líneas inmutables, acepta pagos
	InvoiceStatusPaid  InvoiceStatus = "PAID"  // Saldo en cero; estado terminal
)

// DefaultPaymentTerms condiciones de pago cuando el caller no las envía.
const DefaultPaymentTerms = "NET 30"

// invoiceTransitions única tabla de transiciones permitidas.
var invoiceTransitions = map[InvoiceStatus]InvoiceStatus{
	InvoiceStatusDraft: InvoiceStatusSent,
	InvoiceStatusSent:  InvoiceStatusPaid,
}

// IsValid indica si s es un estado conocido.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid:
		return true
	}
	return false
}

// CanTransitionTo indica si la transición s → next está en la tabla.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	allowed, ok := invoiceTransitions[s]
	return ok && allowed == next
}

// IsEditable solo un borrador admite cambios de líneas y cabecera.
func (s InvoiceStatus) IsEditable() bool { return s == InvoiceStatusDraft }

// AcceptsPayments solo una factura enviada (no pagada) recibe pagos.
func (s InvoiceStatus) AcceptsPayments() bool { return s == InvoiceStatusSent }

func (s InvoiceStatus) String() string { return string(s) }

// Invoice agregado raíz: dueño de las líneas, el estado y los totales.
// Estado, totales, saldo y versión no son exportados: solo los métodos del agregado los cambian.
// La versión es el token de concurrencia leído al cargar; el repositorio la avanza con Persisted.
type Invoice struct {
	ID           string
	CompanyID    string
	CustomerID   string
	Number       string // INV-2026-0001; inmutable
	IssueDate    time.Time
	DueDate      time.Time
	PaymentTerms string
	Notes        string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	status        InvoiceStatus
	subtotal      decimal.Decimal
	totalDiscount decimal.Decimal
	totalTax      decimal.Decimal
	totalAmount   decimal.Decimal
	amountPaid    decimal.Decimal
	balance       decimal.Decimal
	version       int64
	sentAt        *time.Time
	paidAt        *time.Time

	items []LineItem
}

// InvoiceSnapshot estado persistible de la factura. Los totales no viajan: se recalculan al restaurar.
type InvoiceSnapshot struct {
	ID           string
	CompanyID    string
	CustomerID   string
	Number       string
	Status       InvoiceStatus
	IssueDate    time.Time
	DueDate      time.Time
	PaymentTerms string
	Notes        string
	AmountPaid   decimal.Decimal
	Version      int64
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SentAt       *time.Time
	PaidAt       *time.Time
	Lines        []LineItemInput
}

// InvoiceHeader campos de cabecera editables mientras la factura es borrador.
type InvoiceHeader struct {
	CustomerID   string
	IssueDate    time.Time
	DueDate      time.Time
	PaymentTerms string
	Notes        string
}

// NewInvoiceParams datos para crear una factura. Number viene del asignador de consecutivos.
type NewInvoiceParams struct {
	ID        string
	CompanyID string
	Number    string
	Header    InvoiceHeader
	Items     []LineItemInput
	CreatedBy string
	Now       time.Time
}

// NewInvoice crea una factura en DRAFT con los totales calculados.
func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, domain.NewValidationError("id", "es obligatorio")
	}
	if strings.TrimSpace(p.CompanyID) == "" {
		return nil, domain.NewValidationError("company_id", "es obligatorio")
	}
	if strings.TrimSpace(p.Number) == "" {
		return nil, domain.NewValidationError("number", "es obligatorio")
	}
	header, err := normalizeHeader(p.Header)
	if err != nil {
		return nil, err
	}
	items, err := buildLineItems(p.Items)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		ID:           p.ID,
		CompanyID:    p.CompanyID,
		Number:       p.Number,
		status:       InvoiceStatusDraft,
		CustomerID:   header.CustomerID,
		IssueDate:    header.IssueDate,
		DueDate:      header.DueDate,
		PaymentTerms: header.PaymentTerms,
		Notes:        header.Notes,
		amountPaid:   decimal.Zero,
		version:      1,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    p.Now,
		UpdatedAt:    p.Now,
		items:        items,
	}
	inv.recalculate()
	return inv, nil
}

// RestoreInvoice reconstruye el agregado desde el almacenamiento.
// Los montos de las líneas y los totales se recalculan; no se confía en los valores guardados.
func RestoreInvoice(snap InvoiceSnapshot) (*Invoice, error) {
	if !snap.Status.IsValid() {
		return nil, domain.NewValidationError("status", "estado desconocido: "+string(snap.Status))
	}
	if snap.Version < 1 {
		return nil, domain.NewValidationError("version", "debe ser al menos 1")
	}
	items, err := buildLineItems(snap.Lines)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{
		ID:           snap.ID,
		CompanyID:    snap.CompanyID,
		CustomerID:   snap.CustomerID,
		Number:       snap.Number,
		IssueDate:    snap.IssueDate,
		DueDate:      snap.DueDate,
		PaymentTerms: snap.PaymentTerms,
		Notes:        snap.Notes,
		CreatedBy:    snap.CreatedBy,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
		status:       snap.Status,
		amountPaid:   snap.AmountPaid,
		version:      snap.Version,
		sentAt:       copyTime(snap.SentAt),
		paidAt:       copyTime(snap.PaidAt),
		items:        items,
	}
	inv.recalculate()
	if inv.balance.IsNegative() {
		return nil, domain.NewValidationError("amount_paid", "excede el total de la factura "+snap.ID)
	}
	return inv, nil
}

// Snapshot devuelve una copia del estado persistible.
func (inv *Invoice) Snapshot() InvoiceSnapshot {
	return InvoiceSnapshot{
		ID:           inv.ID,
		CompanyID:    inv.CompanyID,
		CustomerID:   inv.CustomerID,
		Number:       inv.Number,
		Status:       inv.status,
		IssueDate:    inv.IssueDate,
		DueDate:      inv.DueDate,
		PaymentTerms: inv.PaymentTerms,
		Notes:        inv.Notes,
		AmountPaid:   inv.amountPaid,
		Version:      inv.version,
		CreatedBy:    inv.CreatedBy,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		SentAt:       copyTime(inv.sentAt),
		PaidAt:       copyTime(inv.paidAt),
		Lines:        inv.LineItemInputs(),
	}
}

// Lecturas del estado; los cambios pasan por Send, ApplyPayment y las operaciones de líneas.
func (inv *Invoice) Status() InvoiceStatus { return inv.status }
func (inv *Invoice) Subtotal() decimal.Decimal { return inv.subtotal }
func (inv *Invoice) TotalDiscount() decimal.Decimal { return inv.totalDiscount }
func (inv *Invoice) TotalTax() decimal.Decimal { return inv.totalTax }
func (inv *Invoice) TotalAmount() decimal.Decimal { return inv.totalAmount }
func (inv *Invoice) AmountPaid() decimal.Decimal { return inv.amountPaid }
func (inv *Invoice) Balance() decimal.Decimal { return inv.balance }
func (inv *Invoice) Version() int64 { return inv.version }
func (inv *Invoice) SentAt() *time.Time { return copyTime(inv.sentAt) }
func (inv *Invoice) PaidAt() *time.Time { return copyTime(inv.paidAt) }

// Persisted avanza la versión tras un compare-and-swap exitoso. Solo lo llaman los repositorios.
func (inv *Invoice) Persisted() { inv.version++ }

// LineItems devuelve una copia de las líneas en orden de inserción.
func (inv *Invoice) LineItems() []LineItem {
	out := make([]LineItem, len(inv.items))
	copy(out, inv.items)
	return out
}

// LineItemInputs devuelve los datos editables de las líneas (para persistencia).
func (inv *Invoice) LineItemInputs() []LineItemInput {
	out := make([]LineItemInput, len(inv.items))
	for i, item := range inv.items {
		out[i] = item.Input()
	}
	return out
}

// UpdateHeader cambia cliente, fechas, condiciones y notas. Solo en DRAFT.
func (inv *Invoice) UpdateHeader(h InvoiceHeader, now time.Time) error {
	if err := inv.requireEditable(); err != nil {
		return err
	}
	header, err := normalizeHeader(h)
	if err != nil {
		return err
	}
	inv.CustomerID = header.CustomerID
	inv.IssueDate = header.IssueDate
	inv.DueDate = header.DueDate
	inv.PaymentTerms = header.PaymentTerms
	inv.Notes = header.Notes
	inv.UpdatedAt = now
	return nil
}

// ReplaceLineItems reemplaza todas las líneas. Solo en DRAFT.
func (inv *Invoice) ReplaceLineItems(inputs []LineItemInput, now time.Time) error {
	if err := inv.requireEditable(); err != nil {
		return err
	}
	items, err := buildLineItems(inputs)
	if err != nil {
		return err
	}
	inv.items = items
	inv.touch(now)
	return nil
}

// AddLineItem agrega una línea al final. Solo en DRAFT.
func (inv *Invoice) AddLineItem(in LineItemInput, now time.Time) error {
	if err := inv.requireEditable(); err != nil {
		return err
	}
	item, err := NewLineItem(in)
	if err != nil {
		return withItemIndex(err, len(inv.items))
	}
	inv.items = append(inv.items, item)
	inv.touch(now)
	return nil
}

// UpdateLineItem reemplaza la línea en index. Solo en DRAFT.
func (inv *Invoice) UpdateLineItem(index int, in LineItemInput, now time.Time) error {
	if err := inv.requireEditable(); err != nil {
		return err
	}
	if err := inv.checkIndex(index); err != nil {
		return err
	}
	item, err := NewLineItem(in)
	if err != nil {
		return withItemIndex(err, index)
	}
	inv.items[index] = item
	inv.touch(now)
	return nil
}

// RemoveLineItem elimina la línea en index conservando el orden de las demás. Solo en DRAFT.
func (inv *Invoice) RemoveLineItem(index int, now time.Time) error {
	if err := inv.requireEditable(); err != nil {
		return err
	}
	if err := inv.checkIndex(index); err != nil {
		return err
	}
	inv.items = append(inv.items[:index:index], inv.items[index+1:]...)
	inv.touch(now)
	return nil
}

// Send pasa la factura de DRAFT a SENT. A partir de aquí las líneas son inmutables.
func (inv *Invoice) Send(now time.Time) error {
	if !inv.status.CanTransitionTo(InvoiceStatusSent) {
		return inv.stateError(domain.ErrInvalidStateTransition)
	}
	if len(inv.items) == 0 {
		return inv.stateError(domain.ErrEmptyInvoice)
	}
	if err := inv.transition(InvoiceStatusSent, now); err != nil {
		return err
	}
	inv.sentAt = &now
	return nil
}

// ApplyPayment descuenta amount del saldo; si el saldo llega exactamente a cero pasa a PAID.
// No crea el pago: es mutación pura que el servicio de conciliación invoca dentro de su transacción.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, now time.Time) error {
	if !inv.status.AcceptsPayments() {
		return inv.stateError(domain.ErrInvoiceNotSent)
	}
	if !amount.GreaterThan(decimal.Zero) {
		return domain.NewValidationError("amount", "debe ser mayor que cero")
	}
	if !amount.Equal(billing.RoundMoney(amount)) {
		return domain.NewValidationError("amount", "admite máximo 2 decimales")
	}
	if amount.GreaterThan(inv.balance) {
		return &domain.PaymentExceedsBalanceError{
			InvoiceID: inv.ID,
			Status:    inv.status.String(),
			Amount:    amount,
			Balance:   inv.balance,
		}
	}

	inv.amountPaid = inv.amountPaid.Add(amount)
	inv.balance = inv.totalAmount.Sub(inv.amountPaid)
	inv.UpdatedAt = now
	if inv.balance.IsZero() {
		if err := inv.transition(InvoiceStatusPaid, now); err != nil {
			return err
		}
		inv.paidAt = &now
	}
	return nil
}

// transition es la única puerta para cambiar el estado.
func (inv *Invoice) transition(next InvoiceStatus, now time.Time) error {
	if !inv.status.CanTransitionTo(next) {
		return inv.stateError(domain.ErrInvalidStateTransition)
	}
	inv.status = next
	inv.UpdatedAt = now
	return nil
}

func (inv *Invoice) requireEditable() error {
	if !inv.status.IsEditable() {
		return inv.stateError(domain.ErrInvoiceNotEditable)
	}
	return nil
}

func (inv *Invoice) checkIndex(index int) error {
	if index < 0 || index >= len(inv.items) {
		return domain.NewValidationError("index", "línea inexistente")
	}
	return nil
}

func (inv *Invoice) stateError(kind error) *domain.InvoiceStateError {
	return &domain.InvoiceStateError{
		Kind:      kind,
		InvoiceID: inv.ID,
		Status:    inv.status.String(),
		Balance:   inv.balance,
	}
}

func (inv *Invoice) touch(now time.Time) {
	inv.recalculate()
	inv.UpdatedAt = now
}

// recalculate mantiene totalAmount = Σ total de líneas y balance = totalAmount − amountPaid.
func (inv *Invoice) recalculate() {
	lines := make([]billing.LineAmounts, len(inv.items))
	for i, item := range inv.items {
		lines[i] = item.Amounts()
	}
	totals := billing.SumLines(lines)
	inv.subtotal = totals.Subtotal
	inv.totalDiscount = totals.TotalDiscount
	inv.totalTax = totals.TotalTax
	inv.totalAmount = totals.TotalAmount
	inv.balance = inv.totalAmount.Sub(inv.amountPaid)
}

func normalizeHeader(h InvoiceHeader) (InvoiceHeader, error) {
	h.CustomerID = strings.TrimSpace(h.CustomerID)
	if h.CustomerID == "" {
		return h, domain.NewValidationError("customer_id", "es obligatorio")
	}
	if h.IssueDate.IsZero() {
		return h, domain.NewValidationError("issue_date", "es obligatoria")
	}
	if h.DueDate.IsZero() {
		return h, domain.NewValidationError("due_date", "es obligatoria")
	}
	if DateOnly(h.DueDate).Before(DateOnly(h.IssueDate)) {
		return h, domain.NewValidationError("due_date", "no puede ser anterior a issue_date")
	}
	h.PaymentTerms = strings.TrimSpace(h.PaymentTerms)
	if h.PaymentTerms == "" {
		h.PaymentTerms = DefaultPaymentTerms
	}
	h.Notes = strings.TrimSpace(h.Notes)
	return h, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// DateOnly trunca t a la fecha calendario (00:00 UTC del mismo año/mes/día de t).
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
