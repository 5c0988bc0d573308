package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	CodeSubscriptionNotFound    = "SUBSCRIPTION_NOT_FOUND"
	CodeInvoiceNotFound         = "INVOICE_NOT_FOUND"
	CodePaymentNotFound         = "PAYMENT_NOT_FOUND"
	CodePlanNotFound            = "PLAN_NOT_FOUND"
	CodePlanVersionNotFound     = "PLAN_VERSION_NOT_FOUND"
	CodeFeatureNotFound         = "FEATURE_NOT_FOUND"
	CodeNFSeNotFound            = "NFSE_NOT_FOUND"
	CodeFeatureOverrideNotFound = "FEATURE_OVERRIDE_NOT_FOUND"

	CodeInvalidSubscriptionTransition = "INVALID_SUBSCRIPTION_TRANSITION"
	CodeInvalidInvoiceTransition      = "INVALID_INVOICE_TRANSITION"
	CodeInvalidPaymentTransition      = "INVALID_PAYMENT_TRANSITION"
	CodeInvalidNFSeTransition         = "INVALID_NFSE_TRANSITION"
	CodeInvalidPlanTransition         = "INVALID_PLAN_TRANSITION"

	CodePlanSlugDuplicate          = "PLAN_SLUG_DUPLICATE"
	CodePlanVersionSame            = "PLAN_VERSION_SAME"
	CodePlanVersionNotAvailable    = "PLAN_VERSION_NOT_AVAILABLE"
	CodeRefundExceedsPayment       = "REFUND_EXCEEDS_PAYMENT"
	CodePaymentNotConfirmed        = "PAYMENT_NOT_CONFIRMED"
	CodeNoGatewayTransaction       = "NO_GATEWAY_TRANSACTION"
	CodeSubscriptionNotActive      = "SUBSCRIPTION_NOT_ACTIVE"
	CodeSubscriptionNotOperational = "SUBSCRIPTION_NOT_OPERATIONAL"
	CodeNFSeCannotRetry            = "NFSE_CANNOT_RETRY"
	CodeEmitterCNPJNotConfigured   = "EMITTER_CNPJ_NOT_CONFIGURED"
	CodeInvoiceNotDraft            = "INVOICE_NOT_DRAFT"
	CodeCurrencyMismatch           = "CURRENCY_MISMATCH"

	CodeGatewayRefundFailed     = "GATEWAY_REFUND_FAILED"
	CodeNFSeCancelFailed        = "NFSE_CANCEL_FAILED"
	CodeInvalidWebhookSignature = "INVALID_WEBHOOK_SIGNATURE"
)

var (
	ErrSubscriptionNotFound    = new(CodeSubscriptionNotFound, "subscription not found", ErrNotFound)
	ErrInvoiceNotFound         = new(CodeInvoiceNotFound, "invoice not found", ErrNotFound)
	ErrPaymentNotFound         = new(CodePaymentNotFound, "payment not found", ErrNotFound)
	ErrPlanNotFound            = new(CodePlanNotFound, "plan not found", ErrNotFound)
	ErrPlanVersionNotFound     = new(CodePlanVersionNotFound, "plan version not found", ErrNotFound)
	ErrFeatureNotFound         = new(CodeFeatureNotFound, "feature not found", ErrNotFound)
	ErrNFSeNotFound            = new(CodeNFSeNotFound, "nfse document not found", ErrNotFound)
	ErrFeatureOverrideNotFound = new(CodeFeatureOverrideNotFound, "feature override not found", ErrNotFound)

	ErrInvalidSubscriptionTransition = new(CodeInvalidSubscriptionTransition, "invalid subscription transition", ErrInvalidTransition)
	ErrInvalidInvoiceTransition      = new(CodeInvalidInvoiceTransition, "invalid invoice transition", ErrInvalidTransition)
	ErrInvalidPaymentTransition      = new(CodeInvalidPaymentTransition, "invalid payment transition", ErrInvalidTransition)
	ErrInvalidNFSeTransition         = new(CodeInvalidNFSeTransition, "invalid nfse transition", ErrInvalidTransition)
	ErrInvalidPlanTransition         = new(CodeInvalidPlanTransition, "invalid plan transition", ErrInvalidTransition)

	ErrPlanSlugDuplicate          = new(CodePlanSlugDuplicate, "plan slug already in use", ErrBusinessRule)
	ErrPlanVersionSame            = new(CodePlanVersionSame, "subscription already on this plan version", ErrBusinessRule)
	ErrPlanVersionNotAvailable    = new(CodePlanVersionNotAvailable, "plan version not available", ErrBusinessRule)
	ErrRefundExceedsPayment       = new(CodeRefundExceedsPayment, "refund exceeds payment amount", ErrBusinessRule)
	ErrPaymentNotConfirmed        = new(CodePaymentNotConfirmed, "payment not confirmed", ErrBusinessRule)
	ErrNoGatewayTransaction       = new(CodeNoGatewayTransaction, "payment has no gateway transaction", ErrBusinessRule)
	ErrSubscriptionNotActive      = new(CodeSubscriptionNotActive, "subscription not active", ErrBusinessRule)
	ErrSubscriptionNotOperational = new(CodeSubscriptionNotOperational, "subscription not operational", ErrBusinessRule)
	ErrNFSeCannotRetry            = new(CodeNFSeCannotRetry, "nfse document cannot be retried", ErrBusinessRule)
	ErrEmitterCNPJNotConfigured   = new(CodeEmitterCNPJNotConfigured, "emitter cnpj not configured", ErrBusinessRule)
	ErrInvoiceNotDraft            = new(CodeInvoiceNotDraft, "invoice not in draft", ErrBusinessRule)
	ErrCurrencyMismatch           = new(CodeCurrencyMismatch, "currency mismatch", ErrBusinessRule)

	ErrGatewayRefundFailed     = new(CodeGatewayRefundFailed, "gateway refund failed", ErrExternal)
	ErrNFSeCancelFailed        = new(CodeNFSeCancelFailed, "nfse cancellation failed", ErrExternal)
	ErrInvalidWebhookSignature = new(CodeInvalidWebhookSignature, "invalid webhook signature", ErrUnauthorized)

	// specific codes are matched before categories
	codes = []*InternalError{
		ErrSubscriptionNotFound, ErrInvoiceNotFound, ErrPaymentNotFound, ErrPlanNotFound,
		ErrPlanVersionNotFound, ErrFeatureNotFound, ErrNFSeNotFound, ErrFeatureOverrideNotFound,
		ErrInvalidSubscriptionTransition, ErrInvalidInvoiceTransition, ErrInvalidPaymentTransition,
		ErrInvalidNFSeTransition, ErrInvalidPlanTransition,
		ErrPlanSlugDuplicate, ErrPlanVersionSame, ErrPlanVersionNotAvailable, ErrRefundExceedsPayment,
		ErrPaymentNotConfirmed, ErrNoGatewayTransaction, ErrSubscriptionNotActive,
		ErrSubscriptionNotOperational, ErrNFSeCannotRetry, ErrEmitterCNPJNotConfigured,
		ErrInvoiceNotDraft, ErrCurrencyMismatch,
		ErrGatewayRefundFailed, ErrNFSeCancelFailed, ErrInvalidWebhookSignature,
		ErrNotFound, ErrAlreadyExists, ErrValidation, ErrInvalidTransition, ErrBusinessRule,
		ErrExternal, ErrUnauthorized, ErrHTTPClient, ErrDatabase, ErrSystem,
	}
)

// Code returns the most specific machine-readable code carried by err,
// or SYSTEM_ERROR when err carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c) {
			return c.Code
		}
	}
	return ErrCodeSystemError
}

// Details merges every structured detail map attached through
// WithReportableDetails anywhere in the chain.
func Details(err error) map[string]any {
	details := make(map[string]any)
	if err == nil {
		return details
	}

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, detailsPrefix) {
				continue
			}
			var m map[string]any
			if err := json.Unmarshal([]byte(payload[len(detailsPrefix):]), &m); err == nil {
				for k, v := range m {
					details[k] = v
				}
			}
		}
	}

	return details
}

// Hint returns the first non-empty user facing hint in the chain.
func Hint(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return ""
}
