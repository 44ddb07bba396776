package entity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
)

var testNow = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// scenarioLine es la línea del escenario A: total 97.20.
func scenarioLine() entity.LineItemInput {
	return entity.LineItemInput{
		Description:     "Consultoría",
		Quantity:        d("2"),
		UnitPrice:       d("50.00"),
		DiscountPercent: d("0.10"),
		TaxRate:         d("0.08"),
	}
}

func newDraft(t *testing.T, items ...entity.LineItemInput) *entity.Invoice {
	t.Helper()
	inv, err := entity.NewInvoice(entity.NewInvoiceParams{
		ID:        "inv-1",
		CompanyID: "company-1",
		Number:    "INV-2026-0001",
		Header: entity.InvoiceHeader{
			CustomerID: "customer-1",
			IssueDate:  testNow,
			DueDate:    testNow.AddDate(0, 0, 30),
		},
		Items:     items,
		CreatedBy: "user-1",
		Now:       testNow,
	})
	require.NoError(t, err)
	return inv
}

func newSent(t *testing.T) *entity.Invoice {
	t.Helper()
	inv := newDraft(t, scenarioLine())
	require.NoError(t, inv.Send(testNow))
	return inv
}

// assertInvariants verifica los invariantes del agregado después de cada mutación.
func assertInvariants(t *testing.T, inv *entity.Invoice) {
	t.Helper()
	sum := decimal.Zero
	for _, item := range inv.LineItems() {
		sum = sum.Add(item.Amounts().Total)
	}
	assert.True(t, inv.TotalAmount().Equal(sum), "totalAmount debe ser Σ total de líneas")
	assert.True(t, inv.Balance().Equal(inv.TotalAmount().Sub(inv.AmountPaid())), "balance = total − pagado")
	assert.False(t, inv.Balance().IsNegative(), "balance nunca negativo")
	assert.False(t, inv.Balance().GreaterThan(inv.TotalAmount()), "balance nunca mayor al total")
	if inv.Status() == entity.InvoiceStatusPaid {
		assert.True(t, inv.Balance().IsZero(), "PAID implica balance 0")
	}
}

func TestNewInvoice_CalculaTotalesYQuedaEnDraft(t *testing.T) {
	inv := newDraft(t, scenarioLine(), entity.LineItemInput{
		Description: "Soporte", Quantity: d("1"), UnitPrice: d("10.00"), TaxRate: d("0.19"),
	})

	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status())
	assert.Equal(t, "INV-2026-0001", inv.Number)
	assert.Equal(t, int64(1), inv.Version())
	assert.Equal(t, entity.DefaultPaymentTerms, inv.PaymentTerms)
	assert.Equal(t, "110.00", inv.Subtotal().StringFixed(2))
	assert.Equal(t, "10.00", inv.TotalDiscount().StringFixed(2))
	assert.Equal(t, "9.10", inv.TotalTax().StringFixed(2))
	assert.Equal(t, "109.10", inv.TotalAmount().StringFixed(2))
	assert.Equal(t, "109.10", inv.Balance().StringFixed(2))
	assertInvariants(t, inv)
}

func TestNewInvoice_Validaciones(t *testing.T) {
	base := entity.NewInvoiceParams{
		ID: "inv-1", CompanyID: "company-1", Number: "INV-2026-0001",
		Header: entity.InvoiceHeader{CustomerID: "c-1", IssueDate: testNow, DueDate: testNow},
		Now:    testNow,
	}

	noCustomer := base
	noCustomer.Header.CustomerID = " "
	dueBefore := base
	dueBefore.Header.DueDate = testNow.AddDate(0, 0, -1)
	noIssue := base
	noIssue.Header.IssueDate = time.Time{}
	badItem := base
	badItem.Items = []entity.LineItemInput{scenarioLine(), {Description: "x", Quantity: d("0"), UnitPrice: d("1")}}
	noDesc := base
	noDesc.Items = []entity.LineItemInput{{Quantity: d("1"), UnitPrice: d("1")}}

	cases := []struct {
		name  string
		p     entity.NewInvoiceParams
		field string
	}{
		{"sin cliente", noCustomer, "customer_id"},
		{"vencimiento anterior a emisión", dueBefore, "due_date"},
		{"sin fecha de emisión", noIssue, "issue_date"},
		{"línea inválida", badItem, "items[1].quantity"},
		{"línea sin descripción", noDesc, "items[0].description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := entity.NewInvoice(tc.p)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestInvoice_EdicionDeLineasEnDraft(t *testing.T) {
	inv := newDraft(t)
	assert.True(t, inv.TotalAmount().IsZero())

	require.NoError(t, inv.AddLineItem(scenarioLine(), testNow))
	assertInvariants(t, inv)
	assert.Equal(t, "97.20", inv.TotalAmount().StringFixed(2))

	require.NoError(t, inv.AddLineItem(entity.LineItemInput{
		Description: "Hosting", Quantity: d("3"), UnitPrice: d("5"),
	}, testNow))
	assertInvariants(t, inv)
	assert.Equal(t, "112.20", inv.TotalAmount().StringFixed(2))

	require.NoError(t, inv.UpdateLineItem(1, entity.LineItemInput{
		Description: "Hosting", Quantity: d("1"), UnitPrice: d("5"),
	}, testNow))
	assertInvariants(t, inv)
	assert.Equal(t, "102.20", inv.TotalAmount().StringFixed(2))

	require.NoError(t, inv.RemoveLineItem(0, testNow))
	assertInvariants(t, inv)
	require.Len(t, inv.LineItems(), 1)
	assert.Equal(t, "Hosting", inv.LineItems()[0].Description, "el orden de las demás líneas se conserva")
	assert.Equal(t, "5.00", inv.TotalAmount().StringFixed(2))

	err := inv.RemoveLineItem(5, testNow)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = inv.AddLineItem(entity.LineItemInput{Description: "x", Quantity: d("1"), UnitPrice: d("-1")}, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidLineItem)
	assert.Equal(t, "5.00", inv.TotalAmount().StringFixed(2), "una línea inválida no altera la factura")
}

func TestInvoice_LineasInmutablesDespuesDeEnviar(t *testing.T) {
	inv := newSent(t)

	checks := map[string]error{
		"add":     inv.AddLineItem(scenarioLine(), testNow),
		"update":  inv.UpdateLineItem(0, scenarioLine(), testNow),
		"remove":  inv.RemoveLineItem(0, testNow),
		"replace": inv.ReplaceLineItems(nil, testNow),
		"header":  inv.UpdateHeader(entity.InvoiceHeader{CustomerID: "c-2", IssueDate: testNow, DueDate: testNow}, testNow),
	}
	for name, err := range checks {
		require.Error(t, err, name)
		assert.ErrorIs(t, err, domain.ErrInvoiceNotEditable, name)

		var stateErr *domain.InvoiceStateError
		require.True(t, errors.As(err, &stateErr), name)
		assert.Equal(t, "SENT", stateErr.Status, "el error incluye el estado actual")
	}
	assert.Len(t, inv.LineItems(), 1)
	assert.Equal(t, "97.20", inv.TotalAmount().StringFixed(2))
}

func TestInvoice_Send(t *testing.T) {
	empty := newDraft(t)
	err := empty.Send(testNow)
	assert.ErrorIs(t, err, domain.ErrEmptyInvoice)
	assert.Equal(t, entity.InvoiceStatusDraft, empty.Status())

	inv := newSent(t)
	assert.Equal(t, entity.InvoiceStatusSent, inv.Status())
	require.NotNil(t, inv.SentAt())

	err = inv.Send(testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition, "no se puede reenviar")
}

// Escenario B: pago total → balance 0.00 y PAID.
func TestInvoice_ApplyPayment_EscenarioB_PagoTotal(t *testing.T) {
	inv := newSent(t)
	require.NoError(t, inv.ApplyPayment(d("97.20"), testNow))

	assert.Equal(t, "0.00", inv.Balance().StringFixed(2))
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status())
	require.NotNil(t, inv.PaidAt())
	assertInvariants(t, inv)
}

// Escenario C: pago parcial → balance 47.20, sigue SENT.
func TestInvoice_ApplyPayment_EscenarioC_PagoParcial(t *testing.T) {
	inv := newSent(t)
	require.NoError(t, inv.ApplyPayment(d("50.00"), testNow))

	assert.Equal(t, "47.20", inv.Balance().StringFixed(2))
	assert.Equal(t, entity.InvoiceStatusSent, inv.Status())
	assertInvariants(t, inv)

	require.NoError(t, inv.ApplyPayment(d("47.20"), testNow))
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status())
	assertInvariants(t, inv)
}

// Escenario D: pago mayor al saldo → rechazado, saldo sin cambios.
func TestInvoice_ApplyPayment_EscenarioD_ExcedeSaldo(t *testing.T) {
	inv := newSent(t)
	err := inv.ApplyPayment(d("150.00"), testNow)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPaymentExceedsBalance)
	assert.NotErrorIs(t, err, domain.ErrInvoiceNotSent)

	var exceeds *domain.PaymentExceedsBalanceError
	require.True(t, errors.As(err, &exceeds))
	assert.Equal(t, "97.20", exceeds.Balance.StringFixed(2))
	assert.Equal(t, "150.00", exceeds.Amount.StringFixed(2))

	assert.Equal(t, "97.20", inv.Balance().StringFixed(2))
	assert.Equal(t, entity.InvoiceStatusSent, inv.Status())
}

// Escenario E: factura en borrador no acepta pagos.
func TestInvoice_ApplyPayment_EscenarioE_Draft(t *testing.T) {
	inv := newDraft(t, scenarioLine())
	err := inv.ApplyPayment(d("10.00"), testNow)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotSent)
	assert.NotErrorIs(t, err, domain.ErrPaymentExceedsBalance)
	var stateErr *domain.InvoiceStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "DRAFT", stateErr.Status)
	assert.True(t, inv.AmountPaid().IsZero())
}

func TestInvoice_ApplyPayment_PagadaNoAceptaMas(t *testing.T) {
	inv := newSent(t)
	require.NoError(t, inv.ApplyPayment(d("97.20"), testNow))

	err := inv.ApplyPayment(d("0.01"), testNow)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotSent)
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status())
}

func TestInvoice_ApplyPayment_MontoInvalido(t *testing.T) {
	inv := newSent(t)
	for _, amount := range []string{"0", "-5", "1.001"} {
		err := inv.ApplyPayment(d(amount), testNow)
		assert.ErrorIs(t, err, domain.ErrValidation, amount)
	}
	assert.Equal(t, "97.20", inv.Balance().StringFixed(2))
}

// TestInvoice_EstadoMonotono recorre secuencias de operaciones y verifica que el
// estado nunca retrocede: DRAFT(0) < SENT(1) < PAID(2).
func TestInvoice_EstadoMonotono(t *testing.T) {
	rank := map[entity.InvoiceStatus]int{
		entity.InvoiceStatusDraft: 0, entity.InvoiceStatusSent: 1, entity.InvoiceStatusPaid: 2,
	}
	ops := []func(inv *entity.Invoice){
		func(inv *entity.Invoice) { _ = inv.AddLineItem(scenarioLine(), testNow) },
		func(inv *entity.Invoice) { _ = inv.RemoveLineItem(0, testNow) },
		func(inv *entity.Invoice) { _ = inv.Send(testNow) },
		func(inv *entity.Invoice) { _ = inv.ApplyPayment(d("50.00"), testNow) },
		func(inv *entity.Invoice) { _ = inv.ApplyPayment(d("47.20"), testNow) },
		func(inv *entity.Invoice) { _ = inv.ApplyPayment(inv.Balance(), testNow) },
		func(inv *entity.Invoice) { _ = inv.ReplaceLineItems(nil, testNow) },
	}

	// Todas las secuencias de longitud 4 sobre ops.
	var walk func(inv *entity.Invoice, depth int)
	walk = func(inv *entity.Invoice, depth int) {
		if depth == 0 {
			return
		}
		for _, op := range ops {
			snapshot, err := entity.RestoreInvoice(inv.Snapshot())
			require.NoError(t, err)
			before := rank[snapshot.Status()]
			op(snapshot)
			assert.GreaterOrEqual(t, rank[snapshot.Status()], before, "el estado nunca retrocede")
			assertInvariants(t, snapshot)
			walk(snapshot, depth-1)
		}
	}
	walk(newDraft(t, scenarioLine()), 4)
}

func TestInvoiceStatus_TablaDeTransiciones(t *testing.T) {
	all := []entity.InvoiceStatus{entity.InvoiceStatusDraft, entity.InvoiceStatusSent, entity.InvoiceStatusPaid}
	allowed := map[[2]entity.InvoiceStatus]bool{
		{entity.InvoiceStatusDraft, entity.InvoiceStatusSent}: true,
		{entity.InvoiceStatusSent, entity.InvoiceStatusPaid}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]entity.InvoiceStatus{from, to}], from.CanTransitionTo(to), "%s → %s", from, to)
		}
	}
	assert.False(t, entity.InvoiceStatus("VOID").IsValid())
}

func TestRestoreInvoice_RecalculaDesdeLineas(t *testing.T) {
	stored := entity.InvoiceSnapshot{
		ID: "inv-9", Status: entity.InvoiceStatusSent, Version: 3,
		AmountPaid: d("50.00"),
		Lines:      []entity.LineItemInput{scenarioLine()},
	}
	inv, err := entity.RestoreInvoice(stored)
	require.NoError(t, err)
	assert.Equal(t, "97.20", inv.TotalAmount().StringFixed(2))
	assert.Equal(t, "47.20", inv.Balance().StringFixed(2))
	assert.Equal(t, int64(3), inv.Version())

	stored.AmountPaid = d("100.00")
	_, err = entity.RestoreInvoice(stored)
	assert.ErrorIs(t, err, domain.ErrValidation, "pagado mayor al total es un dato corrupto")

	stored.AmountPaid = d("50.00")
	stored.Status = "VOID"
	_, err = entity.RestoreInvoice(stored)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInvoice_SnapshotEsCopia(t *testing.T) {
	inv := newSent(t)
	snap := inv.Snapshot()
	snap.Lines[0].Description = "otra"
	*snap.SentAt = snap.SentAt.Add(time.Hour)

	assert.Equal(t, "Consultoría", inv.LineItems()[0].Description)
	assert.Equal(t, testNow, *inv.SentAt())

	restored, err := entity.RestoreInvoice(inv.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, inv.Status(), restored.Status())
	assert.Equal(t, inv.Version(), restored.Version())
	assert.True(t, inv.Balance().Equal(restored.Balance()))

	restored.Persisted()
	assert.Equal(t, inv.Version()+1, restored.Version())
}
