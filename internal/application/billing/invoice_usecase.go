package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// InvoiceUseCase comandos y consultas sobre facturas. Cada comando es exactamente una
// ejecución de RunBilling: cargar, mutar el agregado, persistir con control de versión.
type InvoiceUseCase struct {
	txRunner     BillingTxRunner
	invoiceRepo  repository.InvoiceRepository // consultas fuera de transacción
	customerRepo repository.CustomerRepository
	allocator    *InvoiceNumberAllocator
	cfg          Config
	log          *logger.Logger
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	txRunner BillingTxRunner,
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	cfg Config,
	log *logger.Logger,
) *InvoiceUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &InvoiceUseCase{
		txRunner:     txRunner,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		allocator:    NewInvoiceNumberAllocator(cfg.NumberPrefix),
		cfg:          cfg,
		log:          log,
	}
}

// CreateInvoice asigna el número y crea la factura en DRAFT. Si algo falla dentro de la
// transacción, el consecutivo se revierte junto con ella.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, companyID, userID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	header, err := uc.buildHeader(in.CustomerID, in.IssueDate, in.DueDate, in.PaymentTerms, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := uc.checkCustomer(ctx, companyID, header.CustomerID); err != nil {
		return nil, err
	}

	now := uc.cfg.clock()
	var created *entity.Invoice
	err = uc.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		_ repository.PaymentRepository,
		sequenceRepo repository.InvoiceSequenceRepository,
	) error {
		number, err := uc.allocator.Allocate(ctx, sequenceRepo, now)
		if err != nil {
			return err
		}
		inv, err := entity.NewInvoice(entity.NewInvoiceParams{
			ID:        uuid.New().String(),
			CompanyID: companyID,
			Number:    number,
			Header:    header,
			Items:     toLineItemInputs(in.Items),
			CreatedBy: userID,
			Now:       now,
		})
		if err != nil {
			return err
		}
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return &domain.AllocationError{Year: now.Year(), Err: fmt.Errorf("número %s ya existe: %w", number, err)}
			}
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("invoice_id", created.ID).
		Str("number", created.Number).
		Str("company_id", companyID).
		Msg("factura creada")
	return toInvoiceResponse(created), nil
}

// UpdateInvoice reemplaza cabecera y líneas de un borrador. Si in.Version viene informado
// y no coincide con la versión vigente se devuelve ErrConcurrentModification.
func (uc *InvoiceUseCase) UpdateInvoice(ctx context.Context, companyID, invoiceID string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	header, err := uc.buildHeader(in.CustomerID, in.IssueDate, in.DueDate, in.PaymentTerms, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := uc.checkCustomer(ctx, companyID, header.CustomerID); err != nil {
		return nil, err
	}
	items := toLineItemInputs(in.Items)
	return uc.mutate(ctx, companyID, invoiceID, in.Version, "factura actualizada", func(inv *entity.Invoice, now time.Time) error {
		if err := inv.UpdateHeader(header, now); err != nil {
			return err
		}
		return inv.ReplaceLineItems(items, now)
	})
}

// AddLineItem agrega una línea al final del borrador.
func (uc *InvoiceUseCase) AddLineItem(ctx context.Context, companyID, invoiceID string, in dto.LineItemRequest) (*dto.InvoiceResponse, error) {
	return uc.mutate(ctx, companyID, invoiceID, nil, "línea agregada", func(inv *entity.Invoice, now time.Time) error {
		return inv.AddLineItem(toLineItemInput(in), now)
	})
}

// UpdateLineItem reemplaza la línea en index.
func (uc *InvoiceUseCase) UpdateLineItem(ctx context.Context, companyID, invoiceID string, index int, in dto.LineItemRequest) (*dto.InvoiceResponse, error) {
	return uc.mutate(ctx, companyID, invoiceID, nil, "línea actualizada", func(inv *entity.Invoice, now time.Time) error {
		return inv.UpdateLineItem(index, toLineItemInput(in), now)
	})
}

// RemoveLineItem elimina la línea en index.
func (uc *InvoiceUseCase) RemoveLineItem(ctx context.Context, companyID, invoiceID string, index int) (*dto.InvoiceResponse, error) {
	return uc.mutate(ctx, companyID, invoiceID, nil, "línea eliminada", func(inv *entity.Invoice, now time.Time) error {
		return inv.RemoveLineItem(index, now)
	})
}

// SendInvoice pasa el borrador a SENT.
func (uc *InvoiceUseCase) SendInvoice(ctx context.Context, companyID, invoiceID string) (*dto.InvoiceResponse, error) {
	return uc.mutate(ctx, companyID, invoiceID, nil, "factura enviada", func(inv *entity.Invoice, now time.Time) error {
		return inv.Send(now)
	})
}

// GetInvoice devuelve la factura con líneas, totales y saldo.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, companyID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := loadOwned(ctx, uc.invoiceRepo, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// ListInvoices lista las facturas de la empresa, más recientes primero.
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, companyID string, q dto.ListInvoicesQuery) (*dto.InvoiceListResponse, error) {
	q.DefaultPage()
	status := entity.InvoiceStatus(strings.ToUpper(strings.TrimSpace(q.Status)))
	if status != "" && !status.IsValid() {
		return nil, domain.NewValidationError("status", "estado desconocido: "+q.Status)
	}
	list, total, err := uc.invoiceRepo.List(ctx, repository.InvoiceFilter{
		CompanyID:  companyID,
		CustomerID: strings.TrimSpace(q.CustomerID),
		Status:     status,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.InvoiceListResponse{
		Items: make([]dto.InvoiceSummaryResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Total: total},
	}
	for _, inv := range list {
		out.Items = append(out.Items, toInvoiceSummary(inv))
	}
	return out, nil
}

// mutate carga la factura de la empresa, aplica fn y persiste comparando la versión.
func (uc *InvoiceUseCase) mutate(
	ctx context.Context,
	companyID, invoiceID string,
	expectedVersion *int64,
	msg string,
	fn func(inv *entity.Invoice, now time.Time) error,
) (*dto.InvoiceResponse, error) {
	var updated *entity.Invoice
	err := uc.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		_ repository.PaymentRepository,
		_ repository.InvoiceSequenceRepository,
	) error {
		inv, err := loadOwned(ctx, invoiceRepo, companyID, invoiceID)
		if err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != inv.Version() {
			return fmt.Errorf("%w: versión esperada %d, vigente %d",
				domain.ErrConcurrentModification, *expectedVersion, inv.Version())
		}
		if err := fn(inv, uc.cfg.clock()); err != nil {
			return err
		}
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("invoice_id", updated.ID).
		Str("status", updated.Status().String()).
		Int64("version", updated.Version()).
		Msg(msg)
	return toInvoiceResponse(updated), nil
}

func (uc *InvoiceUseCase) buildHeader(customerID, issueDate, dueDate, terms, notes string) (entity.InvoiceHeader, error) {
	issue, err := parseDate("issue_date", issueDate)
	if err != nil {
		return entity.InvoiceHeader{}, err
	}
	due, err := parseDate("due_date", dueDate)
	if err != nil {
		return entity.InvoiceHeader{}, err
	}
	if strings.TrimSpace(terms) == "" {
		terms = uc.cfg.DefaultPaymentTerms
	}
	return entity.InvoiceHeader{
		CustomerID:   customerID,
		IssueDate:    issue,
		DueDate:      due,
		PaymentTerms: terms,
		Notes:        notes,
	}, nil
}

// checkCustomer el cliente debe existir y pertenecer a la empresa del caller.
func (uc *InvoiceUseCase) checkCustomer(ctx context.Context, companyID, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.NewValidationError("customer_id", "es obligatorio")
	}
	customer, err := uc.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	if !customer.BelongsTo(companyID) {
		return domain.ErrCustomerNotFound
	}
	return nil
}

// loadOwned una factura de otra empresa se reporta igual que una inexistente.
func loadOwned(ctx context.Context, repo repository.InvoiceRepository, companyID, invoiceID string) (*entity.Invoice, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, domain.ErrInvoiceNotFound
	}
	inv, err := repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.CompanyID != companyID {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}
