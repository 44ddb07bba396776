// Package billing: servicios de dominio puros para el cálculo de montos de factura.
// Todos los montos derivados se redondean a 2 decimales con redondeo half-up
// (mitad alejándose de cero), una sola vez por campo derivado.
package billing

import (
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/shopspring/decimal"
)

// MoneyPlaces precisión fija de los montos monetarios.
const MoneyPlaces int32 = 2

var one = decimal.NewFromInt(1)

// LineAmounts campos derivados de una línea de factura.
type LineAmounts struct {
	Subtotal       decimal.Decimal // cantidad × precio unitario
	DiscountAmount decimal.Decimal // subtotal × % descuento
	TaxableAmount  decimal.Decimal // subtotal − descuento
	TaxAmount      decimal.Decimal // base gravable × tarifa
	Total          decimal.Decimal // base gravable + impuesto
}

// Totals sumatoria de las líneas de una factura.
type Totals struct {
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	TotalTax      decimal.Decimal
	TotalAmount   decimal.Decimal
}

// RoundMoney redondea a 2 decimales (half-up).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ComputeLine calcula los montos derivados de una línea. Es determinista y sin efectos.
// Falla con un error de línea inválida (ErrInvalidLineItem) si quantity <= 0, unitPrice < 0,
// discountPercent fuera de [0,1] o taxRate < 0.
func ComputeLine(quantity, unitPrice, discountPercent, taxRate decimal.Decimal) (LineAmounts, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return LineAmounts{}, domain.NewInvalidLineItemError("quantity", "debe ser mayor que cero")
	}
	if unitPrice.IsNegative() {
		return LineAmounts{}, domain.NewInvalidLineItemError("unit_price", "no puede ser negativo")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(one) {
		return LineAmounts{}, domain.NewInvalidLineItemError("discount_percent", "debe estar entre 0 y 1")
	}
	if taxRate.IsNegative() {
		return LineAmounts{}, domain.NewInvalidLineItemError("tax_rate", "no puede ser negativa")
	}

	subtotal := RoundMoney(quantity.Mul(unitPrice))
	discount := RoundMoney(subtotal.Mul(discountPercent))
	taxable := subtotal.Sub(discount)
	tax := RoundMoney(taxable.Mul(taxRate))

	return LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		Total:          taxable.Add(tax),
	}, nil
}

// SumLines acumula los montos de todas las líneas. Sin líneas, todo es cero.
func SumLines(lines []LineAmounts) Totals {
	t := Totals{
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
		TotalTax:      decimal.Zero,
		TotalAmount:   decimal.Zero,
	}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.TotalDiscount = t.TotalDiscount.Add(l.DiscountAmount)
		t.TotalTax = t.TotalTax.Add(l.TaxAmount)
		t.TotalAmount = t.TotalAmount.Add(l.Total)
	}
	return t
}
