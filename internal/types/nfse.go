package types

import (
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/samber/lo"
)

// NFSeStatus is the lifecycle state of a municipal service invoice (NFSe)
type NFSeStatus string

const (
	NFSeStatusDraft      NFSeStatus = "draft"
	NFSeStatusProcessing NFSeStatus = "processing"
	NFSeStatusAuthorized NFSeStatus = "authorized"
	NFSeStatusDenied     NFSeStatus = "denied"
	NFSeStatusCancelled  NFSeStatus = "cancelled"
)

// NFSeTransitions lists the legal next states per NFSe status. Denied only
// goes back to Draft through a retry reset; Cancelled is terminal.
var NFSeTransitions = StateTransitions[NFSeStatus]{
	NFSeStatusDraft:      {NFSeStatusProcessing, NFSeStatusAuthorized},
	NFSeStatusProcessing: {NFSeStatusAuthorized, NFSeStatusDenied},
	NFSeStatusAuthorized: {NFSeStatusCancelled},
	NFSeStatusDenied:     {NFSeStatusDraft},
	NFSeStatusCancelled:  {},
}

func (s NFSeStatus) String() string {
	return string(s)
}

func (s NFSeStatus) Validate() error {
	allowed := []NFSeStatus{
		NFSeStatusDraft,
		NFSeStatusProcessing,
		NFSeStatusAuthorized,
		NFSeStatusDenied,
		NFSeStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid nfse status").
			WithHint("Please provide a valid nfse status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CanRetry reports whether a fresh emission may be attempted
func (s NFSeStatus) CanRetry() bool {
	return s == NFSeStatusDenied
}

// Webhook event types accepted from the fiscal provider
const (
	WebhookEventNFSeAuthorized = "nfse.authorized"
	WebhookEventNFSeDenied     = "nfse.denied"
	WebhookEventNFSeCancelled  = "nfse.cancelled"
)

// FiscalGateway is the gateway name NFSe callbacks are recorded under in the
// gateway event ledger
const FiscalGateway = "nfse"
