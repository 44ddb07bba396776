package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
	"github.com/jhoicas/Invorya-api/internal/domain/repository"
	"github.com/jhoicas/Invorya-api/pkg/logger"
)

// PaymentReconciliationService registra pagos contra facturas enviadas.
// Cada pago se aplica en una sola transacción: la factura (con su versión) y el pago
// se guardan juntos o ninguno.
type PaymentReconciliationService struct {
	txRunner    BillingTxRunner
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	cfg         Config
	log         *logger.Logger
}

// NewPaymentReconciliationService construye el servicio. invoiceRepo y paymentRepo se usan
// solo para consultas.
func NewPaymentReconciliationService(
	txRunner BillingTxRunner,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	cfg Config,
	log *logger.Logger,
) *PaymentReconciliationService {
	if log == nil {
		log = logger.Nop()
	}
	return &PaymentReconciliationService{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		cfg:         cfg,
		log:         log,
	}
}

// RecordPayment aplica un pago a la factura. Con llave de idempotencia repetida devuelve el
// resultado guardado sin volver a aplicar nada, incluso si la repetición llega en paralelo. Dos pagos sobre la misma versión: uno
// gana y el otro recibe ErrConcurrentModification.
func (s *PaymentReconciliationService) RecordPayment(ctx context.Context, companyID, userID, invoiceID string, in dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error) {
	key := strings.TrimSpace(in.IdempotencyKey)

	var (
		result   *dto.RecordPaymentResponse
		replayed bool
	)
	err := s.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		paymentRepo repository.PaymentRepository,
		_ repository.InvoiceSequenceRepository,
	) error {
		if key != "" {
			// Sin el candado, dos llamadas con la misma llave pueden no verse y la segunda
			// terminaría en conflicto en lugar de repetir el resultado.
			if err := paymentRepo.LockIdempotencyKey(ctx, invoiceID, key); err != nil {
				return err
			}
			prev, err := paymentRepo.GetByIdempotencyKey(ctx, invoiceID, key)
			if err != nil {
				return err
			}
			if prev != nil && prev.CompanyID == companyID {
				if !samePayment(prev, in) {
					s.log.Warn().
						Str("invoice_id", invoiceID).
						Str("idempotency_key", key).
						Msg("llave de idempotencia reutilizada con datos distintos; se devuelve el pago original")
				}
				result = toRecordPaymentResponse(prev, true)
				replayed = true
				return nil
			}
		}

		inv, err := loadOwned(ctx, invoiceRepo, companyID, invoiceID)
		if err != nil {
			return err
		}

		now := s.cfg.clock()
		paymentDate, err := parseDate("payment_date", in.PaymentDate)
		if err != nil {
			return err
		}
		payment, err := entity.NewPayment(entity.NewPaymentParams{
			ID:             uuid.New().String(),
			InvoiceID:      inv.ID,
			CompanyID:      companyID,
			PaymentDate:    paymentDate,
			Amount:         in.Amount,
			Method:         entity.PaymentMethod(strings.ToUpper(strings.TrimSpace(in.Method))),
			Reference:      in.Reference,
			Notes:          in.Notes,
			IdempotencyKey: key,
			CreatedBy:      userID,
			Now:            now,
		})
		if err != nil {
			return err
		}

		if err := inv.ApplyPayment(payment.Amount, now); err != nil {
			return err
		}
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		payment.RecordOutcome(inv)
		if err := paymentRepo.Create(ctx, payment); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return fmt.Errorf("%w: la llave %q fue registrada por otra operación", domain.ErrConcurrentModification, key)
			}
			return err
		}
		result = toRecordPaymentResponse(payment, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := s.log.Info().
		Str("invoice_id", invoiceID).
		Str("payment_id", result.Payment.ID).
		Str("balance", result.Balance.String()).
		Str("status", result.InvoiceStatus)
	if replayed {
		event.Msg("pago repetido por llave de idempotencia")
	} else {
		event.Msg("pago registrado")
	}
	return result, nil
}

// ListPayments devuelve los pagos de una factura de la empresa.
func (s *PaymentReconciliationService) ListPayments(ctx context.Context, companyID, invoiceID string) (*dto.PaymentListResponse, error) {
	inv, err := loadOwned(ctx, s.invoiceRepo, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	list, err := s.paymentRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	out := &dto.PaymentListResponse{InvoiceID: inv.ID, Items: make([]dto.PaymentResponse, 0, len(list))}
	for _, p := range list {
		out.Items = append(out.Items, toPaymentResponse(p))
	}
	return out, nil
}

func samePayment(p *entity.Payment, in dto.RecordPaymentRequest) bool {
	return p.Amount.Equal(in.Amount) &&
		string(p.Method) == strings.ToUpper(strings.TrimSpace(in.Method)) &&
		p.Reference == strings.TrimSpace(in.Reference) &&
		p.PaymentDate.Format(dateLayout) == in.PaymentDate
}
