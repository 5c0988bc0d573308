package service

import (
	"context"
	"fmt"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/domain/invoice"
	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/period"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/idempotency"
	"github.com/condohub/billing/internal/types"
)

// InvoiceNumberGenerator hands out tenant scoped invoice numbers
type InvoiceNumberGenerator interface {
	Generate(ctx context.Context, tenantID string) (string, error)
}

type invoiceNumberGenerator struct {
	ServiceParams
}

func NewInvoiceNumberGenerator(params ServiceParams) InvoiceNumberGenerator {
	return &invoiceNumberGenerator{ServiceParams: params}
}

// Generate returns INV-<year>-<seq> where seq restarts at 1 every calendar
// year for each tenant
func (g *invoiceNumberGenerator) Generate(ctx context.Context, tenantID string) (string, error) {
	year := time.Now().UTC().Year()
	seq, err := g.InvoiceSequenceRepo.Next(ctx, tenantID, year)
	if err != nil {
		return "", err
	}
	return invoice.FormatNumber(year, seq), nil
}

type InvoiceService interface {
	GenerateInvoice(ctx context.Context, req dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	IssueInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	VoidInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkInvoicePastDue(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkOverdueInvoices(ctx context.Context, now time.Time) (*dto.MarkOverdueResponse, error)
}

type invoiceService struct {
	ServiceParams
	numbers InvoiceNumberGenerator
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		numbers:       NewInvoiceNumberGenerator(params),
	}
}

// GenerateInvoice bills one subscription period. It is idempotent per
// (subscription, period): a second call returns the invoice already created.
func (s *invoiceService) GenerateInvoice(ctx context.Context, req dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if types.SubscriptionTransitions.IsTerminal(sub.Status) {
		return nil, ierr.NewError("subscription is not operational").
			WithHint("Invoices cannot be generated for a canceled or expired subscription").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.Status,
			}).
			Mark(ierr.ErrSubscriptionNotOperational)
	}

	billingPeriod := sub.CurrentPeriod
	if req.PeriodStart != nil {
		if billingPeriod, err = period.New(*req.PeriodStart, *req.PeriodEnd); err != nil {
			return nil, err
		}
	}

	existing, err := s.InvoiceRepo.GetBySubscriptionAndPeriod(ctx, sub.ID, billingPeriod.Start, billingPeriod.End)
	if err == nil {
		s.Logger.Debugw("invoice already generated for period",
			"invoice_id", existing.ID,
			"subscription_id", sub.ID,
		)
		return dto.NewInvoiceResponse(existing), nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	price, err := s.PlanPriceRepo.GetByVersionAndCycle(ctx, sub.PlanVersionID, sub.BillingCycle)
	if err != nil {
		return nil, err
	}
	currency := price.Price.Currency()

	var inv *invoice.Invoice
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		number, err := s.numbers.Generate(ctx, sub.TenantID)
		if err != nil {
			return err
		}

		dueDate := time.Now().UTC().AddDate(0, 0, s.Config.Billing.InvoiceDueDays)
		inv = invoice.New(sub.TenantID, sub.ID, number, currency, billingPeriod, dueDate)
		inv.IdempotencyKey = s.IdempGen.GenerateKey(idempotency.ScopeSubscriptionInvoice, map[string]interface{}{
			"subscription_id": sub.ID,
			"period_start":    billingPeriod.Start.Unix(),
			"period_end":      billingPeriod.End.Unix(),
		})

		description := fmt.Sprintf("Subscription %s from %s to %s",
			sub.BillingCycle,
			billingPeriod.Start.Format(time.DateOnly),
			billingPeriod.End.Format(time.DateOnly),
		)
		if _, err := inv.AddItem(types.InvoiceItemTypePlan, description, 1, price.Price); err != nil {
			return err
		}
		if err := inv.SetTax(money.New(req.Tax, currency)); err != nil {
			return err
		}
		if err := inv.SetDiscount(money.New(req.Discount, currency)); err != nil {
			return err
		}
		if err := inv.CalculateTotals(); err != nil {
			return err
		}
		if inv.Total.IsNegative() {
			return ierr.NewError("invoice total is negative").
				WithHint("Discount cannot exceed the invoice subtotal plus tax").
				WithReportableDetails(map[string]any{
					"subtotal": inv.Subtotal.Amount(),
					"tax":      inv.Tax.Amount(),
					"discount": inv.Discount.Amount(),
				}).
				Mark(ierr.ErrValidation)
		}
		if !req.Draft {
			if err := inv.Issue(); err != nil {
				return err
			}
		}
		return s.InvoiceRepo.Create(ctx, inv)
	})
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			// a concurrent call invoiced the same period first
			existing, getErr := s.InvoiceRepo.GetBySubscriptionAndPeriod(ctx, sub.ID, billingPeriod.Start, billingPeriod.End)
			if getErr != nil {
				return nil, getErr
			}
			return dto.NewInvoiceResponse(existing), nil
		}
		return nil, err
	}

	s.Logger.Infow("invoice generated",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"tenant_id", inv.TenantID,
		"subscription_id", inv.SubscriptionID,
		"status", inv.Status,
		"total", inv.Total.Amount(),
	)
	s.publishEvents(ctx, inv.PullEvents())
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice_id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) IssueInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	return s.mutate(ctx, id, func(inv *invoice.Invoice) error {
		return inv.Issue()
	})
}

func (s *invoiceService) VoidInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	return s.mutate(ctx, id, func(inv *invoice.Invoice) error {
		return inv.Void(time.Now())
	})
}

func (s *invoiceService) MarkInvoicePastDue(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	return s.mutate(ctx, id, func(inv *invoice.Invoice) error {
		return inv.MarkPastDue()
	})
}

// MarkOverdueInvoices moves every Open invoice whose due date passed into
// PastDue so the dunning run picks it up. Failures are collected per invoice.
func (s *invoiceService) MarkOverdueInvoices(ctx context.Context, now time.Time) (*dto.MarkOverdueResponse, error) {
	overdue, err := s.InvoiceRepo.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &dto.MarkOverdueResponse{MarkedIDs: []string{}}
	for _, inv := range overdue {
		result.Processed++
		if _, err := s.MarkInvoicePastDue(ctx, inv.ID); err != nil {
			s.Logger.Errorw("failed to mark invoice past due",
				"invoice_id", inv.ID,
				"tenant_id", inv.TenantID,
				"error", err,
			)
			s.Sentry.CaptureExceptionWithTags(err, map[string]string{
				"invoice_id": inv.ID,
				"tenant_id":  inv.TenantID,
				"job":        "mark_overdue",
			})
			result.Failed = append(result.Failed, inv.ID)
			continue
		}
		result.MarkedIDs = append(result.MarkedIDs, inv.ID)
	}

	s.Logger.Infow("overdue invoices marked",
		"processed", result.Processed,
		"marked", len(result.MarkedIDs),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (s *invoiceService) mutate(ctx context.Context, id string, fn func(inv *invoice.Invoice) error) (*dto.InvoiceResponse, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(inv); err != nil {
			return err
		}
		return s.InvoiceRepo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice updated", "invoice_id", inv.ID, "status", inv.Status)
	s.publishEvents(ctx, inv.PullEvents())
	return dto.NewInvoiceResponse(inv), nil
}
