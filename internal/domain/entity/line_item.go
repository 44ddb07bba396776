package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// LineItemInput datos editables de una línea de factura.
type LineItemInput struct {
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal // 0..1
	TaxRate         decimal.Decimal // 0.19 = 19%
}

// LineItem línea de factura (valor propiedad de una sola factura).
// Los montos derivados solo se obtienen con Amounts(); se recalculan al construir la línea.
type LineItem struct {
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
	amounts         billing.LineAmounts
}

// NewLineItem valida la entrada y calcula los montos derivados.
func NewLineItem(in LineItemInput) (LineItem, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return LineItem{}, domain.NewInvalidLineItemError("description", "es obligatoria")
	}
	amounts, err := billing.ComputeLine(in.Quantity, in.UnitPrice, in.DiscountPercent, in.TaxRate)
	if err != nil {
		return LineItem{}, err
	}
	return LineItem{
		Description:     desc,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		DiscountPercent: in.DiscountPercent,
		TaxRate:         in.TaxRate,
		amounts:         amounts,
	}, nil
}

// Amounts devuelve subtotal, descuento, base gravable, impuesto y total de la línea.
func (l LineItem) Amounts() billing.LineAmounts { return l.amounts }

// Input devuelve los datos editables de la línea.
func (l LineItem) Input() LineItemInput {
	return LineItemInput{
		Description:     l.Description,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		TaxRate:         l.TaxRate,
	}
}

// buildLineItems construye todas las líneas; el campo del error lleva el índice (items[i].campo).
func buildLineItems(inputs []LineItemInput) ([]LineItem, error) {
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := NewLineItem(in)
		if err != nil {
			return nil, withItemIndex(err, i)
		}
		items = append(items, item)
	}
	return items, nil
}

func withItemIndex(err error, index int) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return domain.NewInvalidLineItemError(fmt.Sprintf("items[%d].%s", index, vErr.Field), vErr.Message)
	}
	return err
}
