package service

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/gatewayevent"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/payment"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/types"
	"github.com/samber/lo"
)

type PaymentService interface {
	ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	IssueRefund(ctx context.Context, req dto.IssueRefundRequest) (*dto.PaymentResponse, error)
	HandlePaymentWebhook(ctx context.Context, gateway string, payload []byte, signature string) (*dto.WebhookResponse, error)
}

type paymentService struct {
	ServiceParams
	nfse NFSeService
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
		nfse:          NewNFSeService(params),
	}
}

// ProcessPayment charges the invoice total through the configured gateway.
// A declined charge is persisted as a Failed payment and returned without
// error. A captured charge is persisted before the invoice is settled; a
// settlement failure after capture is reported for reconciliation and the
// recorded payment is returned.
func (s *paymentService) ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.Status.IsPayable() {
		return nil, types.InvoiceTransitions.Check(inv.Status, types.InvoiceStatusPaid, ierr.ErrInvalidInvoiceTransition)
	}

	gatewayName := lo.Ternary(req.Gateway != "", req.Gateway, s.Config.Billing.PaymentGateway)
	gw, err := s.Gateways.GetPaymentGateway(gatewayName)
	if err != nil {
		return nil, err
	}

	p := payment.New(inv.TenantID, inv.ID, gw.Name(), inv.Total, req.Method, req.Metadata)
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	result, chargeErr := gw.Charge(ctx, base.ChargeRequest{
		PaymentID: p.ID,
		InvoiceID: inv.ID,
		TenantID:  inv.TenantID,
		Amount:    p.Amount.Amount(),
		Currency:  p.Amount.Currency(),
		Method:    req.Method,
		IdempotencyKey: s.IdempGen.GenerateKey(idempotency.ScopePayment, map[string]interface{}{
			"payment_id": p.ID,
			"invoice_id": inv.ID,
			"amount":     p.Amount.Amount(),
		}),
		Metadata: p.Metadata,
	})
	if chargeErr != nil {
		s.Logger.Errorw("payment gateway charge failed",
			"payment_id", p.ID,
			"invoice_id", inv.ID,
			"gateway", gw.Name(),
			"error", chargeErr,
		)
		if err := p.Fail(time.Now(), ierr.Hint(chargeErr)); err == nil {
			if err := s.PaymentRepo.Update(ctx, p); err != nil {
				s.Logger.Errorw("failed to persist failed payment", "payment_id", p.ID, "error", err)
			}
			s.publishEvents(ctx, p.PullEvents())
		}
		return nil, chargeErr
	}

	// The capture is recorded on its own so the transaction id survives a
	// settlement failure; money already moved at the gateway.
	now := time.Now()
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		p.BindTransaction(result.TransactionID)

		switch result.Status {
		case types.PaymentStatusPaid:
			if err := p.ConfirmPayment(now); err != nil {
				return err
			}
		case types.PaymentStatusAuthorized:
			if err := p.Authorize(result.TransactionID); err != nil {
				return err
			}
		case types.PaymentStatusFailed:
			if err := p.Fail(now, result.FailureReason); err != nil {
				return err
			}
		case types.PaymentStatusCanceled:
			if err := p.Cancel(); err != nil {
				return err
			}
		}
		return s.PaymentRepo.Update(ctx, p)
	})
	if err != nil {
		s.reportUnreconciledCapture(p, result.TransactionID, "payment update failed after capture", err)
		return nil, err
	}

	s.Logger.Infow("payment processed",
		"payment_id", p.ID,
		"invoice_id", inv.ID,
		"gateway", p.Gateway,
		"status", p.Status,
		"amount", p.Amount.Amount(),
	)
	s.publishEvents(ctx, p.PullEvents())
	if p.Status != types.PaymentStatusPaid {
		return dto.NewPaymentResponse(p), nil
	}

	var settled []events.DomainEvent
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		settled, err = s.settleInvoice(ctx, inv, now)
		return err
	})
	if err != nil {
		s.reportUnreconciledCapture(p, result.TransactionID, "captured payment could not settle invoice", err)
		return dto.NewPaymentResponse(p), nil
	}
	s.publishEvents(ctx, settled)
	s.issueFiscalDocument(ctx, inv.ID)
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	if id == "" {
		return nil, ierr.NewError("payment_id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(p), nil
}

// IssueRefund refunds a captured payment. Every business rule is checked
// before the gateway is contacted and the local payment only transitions
// once the gateway confirmed the refund.
func (s *paymentService) IssueRefund(ctx context.Context, req dto.IssueRefundRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PaymentRepo.Get(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	amount := money.New(req.Amount, p.Amount.Currency())
	exceeds, err := amount.GreaterThan(p.Amount)
	if err != nil {
		return nil, err
	}
	if exceeds {
		return nil, ierr.NewError("refund exceeds payment amount").
			WithHint("Refund amount cannot exceed the payment amount").
			WithReportableDetails(map[string]any{
				"payment_id":     p.ID,
				"payment_amount": p.Amount.Amount(),
				"refund_amount":  amount.Amount(),
			}).
			Mark(ierr.ErrRefundExceedsPayment)
	}
	if p.Status != types.PaymentStatusPaid {
		return nil, ierr.NewError("payment is not confirmed").
			WithHint("Only paid payments can be refunded").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"status":     p.Status,
			}).
			Mark(ierr.ErrPaymentNotConfirmed)
	}
	if lo.FromPtr(p.GatewayTransactionID) == "" {
		return nil, ierr.NewError("payment has no gateway transaction").
			WithHint("Payment was never bound to a gateway transaction").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
			}).
			Mark(ierr.ErrNoGatewayTransaction)
	}

	gw, err := s.Gateways.GetPaymentGateway(p.Gateway)
	if err != nil {
		return nil, err
	}

	refund, err := gw.Refund(ctx, base.RefundRequest{
		PaymentID:     p.ID,
		TransactionID: *p.GatewayTransactionID,
		Amount:        amount.Amount(),
		Currency:      amount.Currency(),
		IdempotencyKey: s.IdempGen.GenerateKey(idempotency.ScopeRefund, map[string]interface{}{
			"payment_id": p.ID,
			"amount":     amount.Amount(),
		}),
	})
	if err != nil {
		s.Logger.Errorw("gateway refund failed",
			"payment_id", p.ID,
			"gateway", p.Gateway,
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithHint("The payment gateway could not process the refund").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"gateway":    p.Gateway,
			}).
			Mark(ierr.ErrGatewayRefundFailed)
	}

	if err := p.Refund(amount, time.Now()); err != nil {
		return nil, err
	}
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("payment refunded",
		"payment_id", p.ID,
		"refund_id", refund.RefundID,
		"amount", amount.Amount(),
		"reason", req.Reason,
	)
	s.publishEvents(ctx, p.PullEvents())
	return dto.NewPaymentResponse(p), nil
}

// HandlePaymentWebhook applies a gateway callback. Signature verification
// happens before any read or write; the ledger insert and the payment
// mutation share one transaction so a replay is a no-op.
func (s *paymentService) HandlePaymentWebhook(ctx context.Context, gatewayName string, payload []byte, signature string) (*dto.WebhookResponse, error) {
	gw, err := s.Gateways.GetPaymentGateway(gatewayName)
	if err != nil {
		return nil, err
	}
	if err := gw.VerifyWebhookSignature(payload, signature); err != nil {
		s.Logger.Warnw("rejected payment webhook", "gateway", gatewayName, "error", err)
		return nil, err
	}

	evt, err := gw.ParseWebhookEvent(payload)
	if err != nil {
		return nil, err
	}
	if evt == nil {
		return &dto.WebhookResponse{Received: true, Ignored: true}, nil
	}

	resp := &dto.WebhookResponse{Received: true, EventType: evt.EventType}
	var (
		p       *payment.Payment
		pending []events.DomainEvent
	)
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		record := gatewayevent.NewRecord(gw.Name(), evt.EventType, evt.TransactionID, payload)
		if err := s.GatewayEventRepo.Create(ctx, record); err != nil {
			if ierr.IsAlreadyExists(err) {
				resp.Duplicate = true
				return nil
			}
			return err
		}

		found, err := s.PaymentRepo.GetByGatewayTransactionID(ctx, gw.Name(), evt.TransactionID)
		if err != nil {
			if ierr.IsNotFound(err) {
				s.Logger.Warnw("payment webhook for unknown transaction",
					"gateway", gw.Name(),
					"transaction_id", evt.TransactionID,
					"event_type", evt.EventType,
				)
				resp.Ignored = true
				return nil
			}
			return err
		}

		changed, settled, err := s.applyPaymentEvent(ctx, found, evt)
		if err != nil || !changed {
			return err
		}
		p = found
		pending = settled
		return s.PaymentRepo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if resp.Duplicate {
		s.Logger.Infow("duplicate payment webhook ignored",
			"gateway", gw.Name(),
			"transaction_id", evt.TransactionID,
			"event_type", evt.EventType,
		)
		return resp, nil
	}

	if p != nil {
		s.Logger.Infow("payment webhook applied",
			"payment_id", p.ID,
			"event_type", evt.EventType,
			"status", p.Status,
		)
		s.publishEvents(ctx, append(p.PullEvents(), pending...))
		if evt.EventType == types.WebhookEventPaymentSucceeded {
			s.issueFiscalDocument(ctx, p.InvoiceID)
		}
	}
	return resp, nil
}

// applyPaymentEvent reports whether the payment changed along with the
// events of any invoice or subscription it settled. A payment already in
// the target state is left alone.
func (s *paymentService) applyPaymentEvent(ctx context.Context, p *payment.Payment, evt *base.PaymentWebhookEvent) (bool, []events.DomainEvent, error) {
	at := lo.Ternary(evt.OccurredAt.IsZero(), time.Now(), evt.OccurredAt)

	switch evt.EventType {
	case types.WebhookEventPaymentSucceeded:
		if !types.PaymentTransitions.CanTransition(p.Status, types.PaymentStatusPaid) {
			return false, nil, nil
		}
		if err := p.ConfirmPayment(at); err != nil {
			return false, nil, err
		}
		inv, err := s.InvoiceRepo.Get(ctx, p.InvoiceID)
		if err != nil {
			return false, nil, err
		}
		if !inv.Status.IsPayable() {
			return true, nil, nil
		}
		settled, err := s.settleInvoice(ctx, inv, at)
		return true, settled, err
	case types.WebhookEventPaymentFailed:
		if !types.PaymentTransitions.CanTransition(p.Status, types.PaymentStatusFailed) {
			return false, nil, nil
		}
		return true, nil, p.Fail(at, evt.FailureReason)
	case types.WebhookEventPaymentRefunded:
		if p.Status != types.PaymentStatusPaid {
			return false, nil, nil
		}
		return true, nil, p.Refund(p.Amount, at)
	}
	return false, nil, nil
}

// reportUnreconciledCapture flags a gateway capture whose local bookkeeping
// did not complete so it can be refunded or settled by hand.
func (s *paymentService) reportUnreconciledCapture(p *payment.Payment, transactionID, msg string, err error) {
	s.Logger.Errorw(msg,
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"gateway", p.Gateway,
		"transaction_id", transactionID,
		"amount", p.Amount.Amount(),
		"error", err,
	)
	s.Sentry.CaptureExceptionWithTags(err, map[string]string{
		"payment_id":     p.ID,
		"invoice_id":     p.InvoiceID,
		"transaction_id": transactionID,
	})
}

// settleInvoice marks the invoice paid and reinstates a subscription that
// dunning held in grace period or suspended. It runs inside the caller's
// transaction and returns the drained events.
func (s *paymentService) settleInvoice(ctx context.Context, inv *invoice.Invoice, at time.Time) ([]events.DomainEvent, error) {
	if err := inv.MarkPaid(at); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	evts := inv.PullEvents()

	sub, err := s.SubRepo.Get(ctx, inv.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != types.SubscriptionStatusGracePeriod && sub.Status != types.SubscriptionStatusSuspended {
		return evts, nil
	}
	if err := sub.Activate(); err != nil {
		return nil, err
	}
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateTenantFeatures(ctx, sub.TenantID)
	return append(evts, sub.PullEvents()...), nil
}

// issueFiscalDocument emits the NFSe of a freshly paid invoice when enabled.
// The payment already committed, so failures are only logged.
func (s *paymentService) issueFiscalDocument(ctx context.Context, invoiceID string) {
	if !s.Config.Billing.NFSeOnPaid {
		return
	}
	if _, err := s.nfse.GenerateNFSe(ctx, invoiceID); err != nil {
		s.Logger.Errorw("failed to issue nfse for paid invoice",
			"invoice_id", invoiceID,
			"error", err,
		)
		s.Sentry.CaptureExceptionWithTags(err, map[string]string{"invoice_id": invoiceID})
	}
}
