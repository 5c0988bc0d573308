package service

import (
	"context"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/gatewayevent"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/nfse"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/integration/base"
	"github.com/condohub/billing/internal/s3"
	"github.com/condohub/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type NFSeService interface {
	GenerateNFSe(ctx context.Context, invoiceID string) (*dto.NFSeResponse, error)
	GetNFSe(ctx context.Context, id string) (*dto.NFSeResponse, error)
	CancelNFSe(ctx context.Context, id string, req dto.CancelNFSeRequest) (*dto.NFSeResponse, error)
	HandleNFSeWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
}

type nfseService struct {
	ServiceParams
}

func NewNFSeService(params ServiceParams) NFSeService {
	return &nfseService{ServiceParams: params}
}

// GenerateNFSe issues the fiscal document of a paid invoice. Generation is
// idempotent per invoice: a document that reached the provider is returned
// unchanged, a denied one is reset and emitted again on the same row.
func (s *nfseService) GenerateNFSe(ctx context.Context, invoiceID string) (*dto.NFSeResponse, error) {
	if s.Config.NFSe.EmitterCNPJ == "" {
		return nil, ierr.NewError("emitter cnpj not configured").
			WithHint("Configure the emitter CNPJ before issuing fiscal documents").
			Mark(ierr.ErrEmitterCNPJNotConfigured)
	}

	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != types.InvoiceStatusPaid {
		return nil, ierr.NewError("invoice is not paid").
			WithHint("Fiscal documents can only be issued for paid invoices").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.Status,
			}).
			Mark(ierr.ErrBusinessRule)
	}

	doc, err := s.NFSeRepo.GetByIdempotencyKey(ctx, idempotency.NFSeKey(inv.ID))
	switch {
	case err == nil:
		switch doc.Status {
		case types.NFSeStatusDenied:
			if err := doc.ResetForRetry(); err != nil {
				return nil, err
			}
			s.Logger.Infow("retrying denied nfse", "nfse_id", doc.ID, "invoice_id", inv.ID)
		case types.NFSeStatusDraft:
			// never reached the provider, emit again
		default:
			return dto.NewNFSeResponse(doc), nil
		}
	case ierr.IsNotFound(err):
		if doc, err = s.newDocument(ctx, inv); err != nil {
			return nil, err
		}
		if err := s.NFSeRepo.Create(ctx, doc); err != nil {
			if ierr.IsAlreadyExists(err) {
				existing, getErr := s.NFSeRepo.GetByIdempotencyKey(ctx, doc.IdempotencyKey)
				if getErr != nil {
					return nil, getErr
				}
				return dto.NewNFSeResponse(existing), nil
			}
			return nil, err
		}
	default:
		return nil, err
	}

	result, err := s.FiscalProvider.Emit(ctx, base.EmitRequest{
		DocumentID:         doc.ID,
		TenantID:           doc.TenantID,
		InvoiceID:          doc.InvoiceID,
		EmitterCNPJ:        s.Config.NFSe.EmitterCNPJ,
		MunicipalCode:      s.Config.NFSe.MunicipalCode,
		ServiceCode:        s.Config.NFSe.ServiceCode,
		ServiceDescription: doc.ServiceDescription,
		CompetenceDate:     doc.CompetenceDate,
		TotalAmount:        doc.TotalAmount.Amount(),
		Currency:           doc.TotalAmount.Currency(),
		ISSRate:            doc.ISSRate,
		ISSAmount:          doc.ISSAmount.Amount(),
		IdempotencyKey:     doc.IdempotencyKey,
	})
	if err != nil {
		// keep the draft so the next generation emits again
		if updateErr := s.NFSeRepo.Update(ctx, doc); updateErr != nil {
			s.Logger.Errorw("failed to persist nfse after emit failure", "nfse_id", doc.ID, "error", updateErr)
		}
		s.publishEvents(ctx, doc.PullEvents())
		return nil, err
	}

	if err := applyEmitResult(doc, result); err != nil {
		return nil, err
	}
	if err := s.NFSeRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.Logger.Infow("nfse emitted",
		"nfse_id", doc.ID,
		"invoice_id", doc.InvoiceID,
		"status", doc.Status,
		"iss_amount", doc.ISSAmount.Amount(),
	)
	s.archiveXML(ctx, doc)
	s.publishEvents(ctx, doc.PullEvents())
	return dto.NewNFSeResponse(doc), nil
}

func (s *nfseService) newDocument(ctx context.Context, inv *invoice.Invoice) (*nfse.Document, error) {
	rate, err := decimal.NewFromString(s.Config.NFSe.DefaultISSRate)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Configured ISS rate is not a valid decimal").
			WithReportableDetails(map[string]any{
				"iss_rate": s.Config.NFSe.DefaultISSRate,
			}).
			Mark(ierr.ErrValidation)
	}
	description := s.Config.Billing.ServiceDescription
	if description == "" {
		description = "Invoice " + inv.Number
	}
	return nfse.New(inv.TenantID, inv.ID, description, inv.Period.Start, inv.Total, rate)
}

// applyEmitResult moves a draft to the state the provider answered with
func applyEmitResult(doc *nfse.Document, result *base.EmitResult) error {
	switch {
	case result.Authorized != nil:
		if result.ProviderRef != "" {
			doc.ProviderRef = &result.ProviderRef
		}
		return doc.MarkAuthorized(toAuthorization(result.Authorized), time.Now())
	case result.DenialReason != "":
		if err := doc.MarkProcessing(result.ProviderRef); err != nil {
			return err
		}
		return doc.MarkDenied(result.DenialReason, result.Response)
	default:
		return doc.MarkProcessing(result.ProviderRef)
	}
}

func toAuthorization(a *base.FiscalAuthorization) nfse.Authorization {
	return nfse.Authorization{
		Number:           a.Number,
		VerificationCode: a.VerificationCode,
		PDFURL:           a.PDFURL,
		XMLContent:       a.XMLContent,
		ProviderResponse: a.ProviderResponse,
	}
}

func (s *nfseService) GetNFSe(ctx context.Context, id string) (*dto.NFSeResponse, error) {
	if id == "" {
		return nil, ierr.NewError("nfse_id is required").
			WithHint("NFSe ID is required").
			Mark(ierr.ErrValidation)
	}

	doc, err := s.NFSeRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewNFSeResponse(doc), nil
}

// CancelNFSe cancels an authorized document at the provider first; the local
// document only transitions when the provider accepted the cancellation
func (s *nfseService) CancelNFSe(ctx context.Context, id string, req dto.CancelNFSeRequest) (*dto.NFSeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.NFSeRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := types.NFSeTransitions.Check(doc.Status, types.NFSeStatusCancelled, ierr.ErrInvalidNFSeTransition); err != nil {
		return nil, err
	}

	if err := s.FiscalProvider.Cancel(ctx, lo.FromPtr(doc.ProviderRef), req.Reason); err != nil {
		if ierr.Is(err, ierr.ErrNFSeCancelFailed) {
			return nil, err
		}
		return nil, ierr.WithError(err).
			WithHint("The fiscal provider rejected the cancellation").
			WithReportableDetails(map[string]any{
				"nfse_id":      doc.ID,
				"provider_ref": lo.FromPtr(doc.ProviderRef),
			}).
			Mark(ierr.ErrNFSeCancelFailed)
	}

	if err := doc.Cancel(req.Reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.NFSeRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.Logger.Infow("nfse cancelled", "nfse_id", doc.ID, "invoice_id", doc.InvoiceID)
	s.publishEvents(ctx, doc.PullEvents())
	return dto.NewNFSeResponse(doc), nil
}

// HandleNFSeWebhook applies an asynchronous provider answer. The signature is
// verified before anything is read or written and every callback is recorded
// in the gateway event ledger so a replay is a no-op.
func (s *nfseService) HandleNFSeWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	if err := s.FiscalProvider.VerifyWebhookSignature(payload, signature); err != nil {
		s.Logger.Warnw("rejected nfse webhook", "error", err)
		return nil, err
	}

	evt, err := s.FiscalProvider.ParseWebhookEvent(payload)
	if err != nil {
		return nil, err
	}
	if evt == nil {
		return &dto.WebhookResponse{Received: true, Ignored: true}, nil
	}

	resp := &dto.WebhookResponse{Received: true, EventType: evt.EventType}
	var doc *nfse.Document
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		record := gatewayevent.NewRecord(types.FiscalGateway, evt.EventType, evt.ProviderRef, payload)
		if err := s.GatewayEventRepo.Create(ctx, record); err != nil {
			if ierr.IsAlreadyExists(err) {
				resp.Duplicate = true
				return nil
			}
			return err
		}

		found, err := s.NFSeRepo.GetByProviderRef(ctx, evt.ProviderRef)
		if err != nil {
			if ierr.IsNotFound(err) {
				s.Logger.Warnw("nfse webhook for unknown document",
					"provider_ref", evt.ProviderRef,
					"event_type", evt.EventType,
				)
				resp.Ignored = true
				return nil
			}
			return err
		}

		changed, err := applyFiscalEvent(found, evt)
		if err != nil || !changed {
			return err
		}
		doc = found
		return s.NFSeRepo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	if resp.Duplicate {
		s.Logger.Infow("duplicate nfse webhook ignored",
			"provider_ref", evt.ProviderRef,
			"event_type", evt.EventType,
		)
		return resp, nil
	}

	if doc != nil {
		s.archiveXML(ctx, doc)
		s.publishEvents(ctx, doc.PullEvents())
	}
	return resp, nil
}

// applyFiscalEvent reports whether the document changed. Events the document
// already reflects, or that arrive after it moved past the state they apply
// to, are skipped so the provider's redelivery settles.
func applyFiscalEvent(doc *nfse.Document, evt *base.FiscalWebhookEvent) (bool, error) {
	now := time.Now()
	switch evt.EventType {
	case types.WebhookEventNFSeAuthorized:
		if evt.Authorization == nil || !types.NFSeTransitions.CanTransition(doc.Status, types.NFSeStatusAuthorized) {
			return false, nil
		}
		return true, doc.MarkAuthorized(toAuthorization(evt.Authorization), now)
	case types.WebhookEventNFSeDenied:
		if !types.NFSeTransitions.CanTransition(doc.Status, types.NFSeStatusDenied) {
			return false, nil
		}
		return true, doc.MarkDenied(evt.ErrorMessage, evt.Response)
	case types.WebhookEventNFSeCancelled:
		if !types.NFSeTransitions.CanTransition(doc.Status, types.NFSeStatusCancelled) {
			return false, nil
		}
		return true, doc.Cancel(evt.ErrorMessage, now)
	}
	return false, nil
}

// archiveXML stores the authorized XML when archival is enabled. Failures
// are logged only; the XML stays on the document row.
func (s *nfseService) archiveXML(ctx context.Context, doc *nfse.Document) {
	if s.S3 == nil || doc.Status != types.NFSeStatusAuthorized || doc.XMLContent == nil {
		return
	}
	location, err := s.S3.UploadDocument(ctx, s3.NewNFSeXMLDocument(doc.TenantID, doc.ID, []byte(*doc.XMLContent)))
	if err != nil {
		s.Logger.Errorw("failed to archive nfse xml", "nfse_id", doc.ID, "error", err)
		s.Sentry.CaptureExceptionWithTags(err, map[string]string{
			"nfse_id":   doc.ID,
			"tenant_id": doc.TenantID,
		})
		return
	}
	s.Logger.Debugw("nfse xml archived", "nfse_id", doc.ID, "location", location)
}
