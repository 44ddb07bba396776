package billing

import (
	"time"

	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
)

const dateLayout = "2006-01-02"

func toInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	lines := inv.LineItems()
	items := make([]dto.LineItemResponse, 0, len(lines))
	for i, line := range lines {
		amounts := line.Amounts()
		items = append(items, dto.LineItemResponse{
			Index:           i,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			TaxRate:         line.TaxRate,
			Subtotal:        dto.NewMoney(amounts.Subtotal),
			DiscountAmount:  dto.NewMoney(amounts.DiscountAmount),
			TaxableAmount:   dto.NewMoney(amounts.TaxableAmount),
			TaxAmount:       dto.NewMoney(amounts.TaxAmount),
			Total:           dto.NewMoney(amounts.Total),
		})
	}
	return &dto.InvoiceResponse{
		ID:            inv.ID,
		CompanyID:     inv.CompanyID,
		CustomerID:    inv.CustomerID,
		Number:        inv.Number,
		Status:        inv.Status().String(),
		IssueDate:     inv.IssueDate.Format(dateLayout),
		DueDate:       inv.DueDate.Format(dateLayout),
		PaymentTerms:  inv.PaymentTerms,
		Notes:         inv.Notes,
		Items:         items,
		Subtotal:      dto.NewMoney(inv.Subtotal()),
		TotalDiscount: dto.NewMoney(inv.TotalDiscount()),
		TotalTax:      dto.NewMoney(inv.TotalTax()),
		TotalAmount:   dto.NewMoney(inv.TotalAmount()),
		AmountPaid:    dto.NewMoney(inv.AmountPaid()),
		Balance:       dto.NewMoney(inv.Balance()),
		Version:       inv.Version(),
		CreatedBy:     inv.CreatedBy,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		SentAt:        inv.SentAt(),
		PaidAt:        inv.PaidAt(),
	}
}

func toInvoiceSummary(inv *entity.Invoice) dto.InvoiceSummaryResponse {
	return dto.InvoiceSummaryResponse{
		ID:          inv.ID,
		CustomerID:  inv.CustomerID,
		Number:      inv.Number,
		Status:      inv.Status().String(),
		IssueDate:   inv.IssueDate.Format(dateLayout),
		DueDate:     inv.DueDate.Format(dateLayout),
		TotalAmount: dto.NewMoney(inv.TotalAmount()),
		Balance:     dto.NewMoney(inv.Balance()),
		Version:     inv.Version(),
	}
}

func toPaymentResponse(p *entity.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		PaymentDate:    p.PaymentDate.Format(dateLayout),
		Amount:         dto.NewMoney(p.Amount),
		Method:         string(p.Method),
		Reference:      p.Reference,
		Notes:          p.Notes,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      p.CreatedAt,
		CreatedBy:      p.CreatedBy,
	}
}

func toRecordPaymentResponse(p *entity.Payment, replayed bool) *dto.RecordPaymentResponse {
	return &dto.RecordPaymentResponse{
		Payment:       toPaymentResponse(p),
		InvoiceID:     p.InvoiceID,
		InvoiceStatus: p.InvoiceStatusAfter.String(),
		Balance:       dto.NewMoney(p.BalanceAfter),
		Version:       p.InvoiceVersionAfter,
		Replayed:      replayed,
	}
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:        c.ID,
		CompanyID: c.CompanyID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Email:     c.Email,
		Phone:     c.Phone,
	}
}

func toLineItemInput(in dto.LineItemRequest) entity.LineItemInput {
	return entity.LineItemInput{
		Description:     in.Description,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		DiscountPercent: in.DiscountPercent,
		TaxRate:         in.TaxRate,
	}
}

func toLineItemInputs(in []dto.LineItemRequest) []entity.LineItemInput {
	out := make([]entity.LineItemInput, len(in))
	for i, item := range in {
		out[i] = toLineItemInput(item)
	}
	return out
}

// parseDate interpreta YYYY-MM-DD; vacío o mal formado es ValidationError sobre field.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, domain.NewValidationError(field, "es obligatoria")
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "formato esperado YYYY-MM-DD")
	}
	return t, nil
}
