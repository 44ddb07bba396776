package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/Invorya-api/internal/application/billing"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
	"github.com/jhoicas/Invorya-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Invorya-api/pkg/config"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// Un solo contenedor por paquete; cada prueba arranca con las tablas vacías.
var (
	sharedOnce      sync.Once
	sharedPool      *pgxpool.Pool
	sharedContainer *tcpostgres.PostgresContainer
	sharedErr       error
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	code := m.Run()
	if sharedPool != nil {
		sharedPool.Close()
	}
	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = sharedContainer.Terminate(ctx)
		cancel()
	}
	os.Exit(code)
}

func startPostgres() (*pgxpool.Pool, error) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("invorya_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("iniciar contenedor: %w", err)
	}
	sharedContainer = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("connection string: %w", err)
	}
	if err := postgres.Migrate(ctx, dsn, postgres.MigrateUp); err != nil {
		return nil, err
	}
	return postgres.NewPool(ctx, config.DBConfig{
		DatabaseURL:      dsn,
		MaxConns:         8,
		ApplicationName:  "invorya-test",
		StatementTimeout: 10 * time.Second,
	})
}

// testPool devuelve el pool del contenedor compartido con las tablas vacías.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integración con PostgreSQL: se omite con -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	sharedOnce.Do(func() { sharedPool, sharedErr = startPostgres() })
	require.NoError(t, sharedErr, "no se pudo preparar PostgreSQL")

	_, err := sharedPool.Exec(context.Background(),
		`TRUNCATE payments, invoice_line_items, invoices, customers, invoice_sequences`)
	require.NoError(t, err)
	return sharedPool
}

func seedCustomer(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	err := postgres.NewCustomerRepository(pool).Create(context.Background(), &entity.Customer{
		ID: "customer-1", CompanyID: "company-1", Name: "ACME S.A.S.", TaxID: "900123456",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

func newInvoice(t *testing.T, id, number string) *entity.Invoice {
	t.Helper()
	inv, err := entity.NewInvoice(entity.NewInvoiceParams{
		ID:        id,
		CompanyID: "company-1",
		Number:    number,
		Header:    entity.InvoiceHeader{CustomerID: "customer-1", IssueDate: now, DueDate: now.AddDate(0, 0, 30)},
		Items: []entity.LineItemInput{{
			Description: "Servicio", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100),
		}},
		CreatedBy: "user-1",
		Now:       now,
	})
	require.NoError(t, err)
	return inv
}

func newPayment(id, invoiceID, key string) *entity.Payment {
	return &entity.Payment{
		ID: id, InvoiceID: invoiceID, CompanyID: "company-1",
		PaymentDate: now, Amount: decimal.RequireFromString("10.00"),
		Method: entity.PaymentMethodCash, Reference: "CAJA-1", IdempotencyKey: key,
		BalanceAfter: decimal.RequireFromString("90.00"), InvoiceStatusAfter: entity.InvoiceStatusSent,
		InvoiceVersionAfter: 3, CreatedAt: now, CreatedBy: "user-1",
	}
}

func TestInvoiceRepo_UpdateConVersionViejaEsConflicto(t *testing.T) {
	pool := testPool(t)
	seedCustomer(t, pool)
	ctx := context.Background()
	repo := postgres.NewInvoiceRepository(pool)
	require.NoError(t, repo.Create(ctx, newInvoice(t, "inv-1", "INV-2026-0001")))

	a, err := repo.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	b, err := repo.GetByID(ctx, "inv-1")
	require.NoError(t, err)

	require.NoError(t, a.Send(now))
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version())

	require.NoError(t, b.Send(now))
	err = repo.Update(ctx, b)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification, "UPDATE sin filas por versión vieja")
	assert.Equal(t, int64(1), b.Version(), "la versión no avanza si no se guardó")

	got, err := repo.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusSent, got.Status())
	assert.Equal(t, int64(2), got.Version())
	assert.Equal(t, "100.00", got.TotalAmount().StringFixed(2))
	require.NotNil(t, got.SentAt())
}

func TestInvoiceRepo_NumeroDuplicadoYLineasEnBorrador(t *testing.T) {
	pool := testPool(t)
	seedCustomer(t, pool)
	ctx := context.Background()
	repo := postgres.NewInvoiceRepository(pool)
	inv := newInvoice(t, "inv-1", "INV-2026-0001")
	require.NoError(t, repo.Create(ctx, inv))

	err := repo.Create(ctx, newInvoice(t, "inv-2", "INV-2026-0001"))
	assert.ErrorIs(t, err, domain.ErrDuplicate, "uq_invoices_number")

	require.NoError(t, inv.AddLineItem(entity.LineItemInput{
		Description: "Soporte", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(5),
		TaxRate: decimal.RequireFromString("0.19"),
	}, now))
	require.NoError(t, repo.Update(ctx, inv))

	got, err := repo.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, got.LineItems(), 2)
	assert.Equal(t, "Soporte", got.LineItems()[1].Description)
	assert.Equal(t, "111.90", got.TotalAmount().StringFixed(2))

	list, total, err := repo.List(ctx, repository.InvoiceFilter{CompanyID: "company-1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Len(t, list[0].LineItems(), 2)
}

func TestInvoiceSequenceRepo_UpsertPorAnio(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	seq := postgres.NewInvoiceSequenceRepository(pool)

	for want := int64(1); want <= 2; want++ {
		n, err := seq.Next(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err := seq.Next(ctx, 2027)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "cada año empieza en 1")

	boom := errors.New("boom")
	err = postgres.NewTxRunner(pool).RunBilling(ctx, func(_ repository.InvoiceRepository, _ repository.PaymentRepository, s repository.InvoiceSequenceRepository) error {
		n, err := s.Next(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err = seq.Next(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "el upsert revertido no deja hueco")
}

func TestInvoiceSequenceRepo_ConcurrentesSinRepetidos(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	runner := postgres.NewTxRunner(pool)

	const workers, perWorker = 4, 10
	values := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := runner.RunBilling(ctx, func(_ repository.InvoiceRepository, _ repository.PaymentRepository, s repository.InvoiceSequenceRepository) error {
					n, err := s.Next(ctx, 2026)
					if err == nil {
						values <- n
					}
					return err
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		assert.False(t, seen[v], "consecutivo repetido: %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers*perWorker)
	for v := int64(1); v <= workers*perWorker; v++ {
		assert.True(t, seen[v], "falta el consecutivo %d", v)
	}
}

func TestPaymentRepo_LlaveRepetidaEsErrDuplicate(t *testing.T) {
	pool := testPool(t)
	seedCustomer(t, pool)
	ctx := context.Background()
	invoices := postgres.NewInvoiceRepository(pool)
	require.NoError(t, invoices.Create(ctx, newInvoice(t, "inv-1", "INV-2026-0001")))
	require.NoError(t, invoices.Create(ctx, newInvoice(t, "inv-2", "INV-2026-0002")))
	payments := postgres.NewPaymentRepository(pool)

	require.NoError(t, payments.Create(ctx, newPayment("p1", "inv-1", "k1")))
	err := payments.Create(ctx, newPayment("p2", "inv-1", "k1"))
	assert.ErrorIs(t, err, domain.ErrDuplicate, "uq_payments_idempotency")

	assert.NoError(t, payments.Create(ctx, newPayment("p3", "inv-2", "k1")), "la llave es única por factura")
	assert.NoError(t, payments.Create(ctx, newPayment("p4", "inv-1", "")), "sin llave no hay restricción")
	assert.NoError(t, payments.Create(ctx, newPayment("p5", "inv-1", "")))

	got, err := payments.GetByIdempotencyKey(ctx, "inv-1", "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "10.00", got.Amount.StringFixed(2))
	assert.Equal(t, entity.InvoiceStatusSent, got.InvoiceStatusAfter)

	missing, err := payments.GetByIdempotencyKey(ctx, "inv-1", "otra")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := payments.ListByInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestRunBilling_ErrorRevierteFacturaYPago(t *testing.T) {
	pool := testPool(t)
	seedCustomer(t, pool)
	ctx := context.Background()
	invoices := postgres.NewInvoiceRepository(pool)
	inv := newInvoice(t, "inv-1", "INV-2026-0001")
	require.NoError(t, invoices.Create(ctx, inv))
	require.NoError(t, inv.Send(now))
	require.NoError(t, invoices.Update(ctx, inv))

	boom := errors.New("boom")
	err := postgres.NewTxRunner(pool).RunBilling(ctx, func(txInvoices repository.InvoiceRepository, txPayments repository.PaymentRepository, _ repository.InvoiceSequenceRepository) error {
		loaded, err := txInvoices.GetByID(ctx, "inv-1")
		require.NoError(t, err)
		require.NoError(t, loaded.ApplyPayment(decimal.RequireFromString("10.00"), now))
		require.NoError(t, txInvoices.Update(ctx, loaded))
		require.NoError(t, txPayments.Create(ctx, newPayment("p1", "inv-1", "k1")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := invoices.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version())
	assert.True(t, got.AmountPaid().IsZero())
	list, err := postgres.NewPaymentRepository(pool).ListByInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

// Reintentos simultáneos con la misma llave: el candado de la llave los pone en serie
// y el segundo recibe el pago del primero.
func TestRecordPayment_MismaLlaveEnParaleloConPostgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	cfg := billing.Config{
		NumberPrefix:        "INV",
		DefaultPaymentTerms: "NET 30",
		Location:            time.UTC,
		Now:                 func() time.Time { return now },
	}
	runner := postgres.NewTxRunner(pool)
	customers := billing.NewCustomerUseCase(postgres.NewCustomerRepository(pool))
	invoices := billing.NewInvoiceUseCase(runner, postgres.NewInvoiceRepository(pool), postgres.NewCustomerRepository(pool), cfg, logger.Nop())
	payments := billing.NewPaymentReconciliationService(runner, postgres.NewInvoiceRepository(pool), postgres.NewPaymentRepository(pool), cfg, logger.Nop())

	customer, err := customers.Create(ctx, "company-1", dto.CreateCustomerRequest{Name: "ACME S.A.S.", TaxID: "900123456"})
	require.NoError(t, err)
	inv, err := invoices.CreateInvoice(ctx, "company-1", "user-1", dto.CreateInvoiceRequest{
		CustomerID: customer.ID,
		IssueDate:  "2026-03-10",
		DueDate:    "2026-04-09",
		Items: []dto.LineItemRequest{{
			Description:     "Consultoría",
			Quantity:        decimal.RequireFromString("2"),
			UnitPrice:       decimal.RequireFromString("50.00"),
			DiscountPercent: decimal.RequireFromString("0.10"),
			TaxRate:         decimal.RequireFromString("0.08"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", inv.Number)
	_, err = invoices.SendInvoice(ctx, "company-1", inv.ID)
	require.NoError(t, err)

	const rounds = 5
	for round := 0; round < rounds; round++ {
		req := dto.RecordPaymentRequest{
			PaymentDate:    "2026-03-10",
			Amount:         decimal.RequireFromString("10.00"),
			Method:         "CASH",
			Reference:      fmt.Sprintf("CAJA-%d", round),
			IdempotencyKey: fmt.Sprintf("pago-%d", round),
		}
		start := make(chan struct{})
		results := make([]*dto.RecordPaymentResponse, 2)
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], errs[i] = payments.RecordPayment(ctx, "company-1", "user-1", inv.ID, req)
			}(i)
		}
		close(start)
		wg.Wait()

		require.NoError(t, errs[0], "ronda %d", round)
		require.NoError(t, errs[1], "ronda %d", round)
		assert.NotEqual(t, results[0].Replayed, results[1].Replayed, "ronda %d: una aplica y la otra repite", round)
		assert.Equal(t, results[0].Payment.ID, results[1].Payment.ID)
	}

	list, err := payments.ListPayments(ctx, "company-1", inv.ID)
	require.NoError(t, err)
	assert.Len(t, list.Items, rounds)

	got, err := invoices.GetInvoice(ctx, "company-1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", got.AmountPaid.String())
	assert.Equal(t, "47.20", got.Balance.String())
	assert.Equal(t, int64(2+rounds), got.Version)
}
