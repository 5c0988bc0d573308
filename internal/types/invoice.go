package types

import (
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/samber/lo"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPastDue       InvoiceStatus = "past_due"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// InvoiceTransitions lists the legal next states per invoice status.
// Paid, Void and Uncollectible are terminal.
var InvoiceTransitions = StateTransitions[InvoiceStatus]{
	InvoiceStatusDraft: {InvoiceStatusOpen, InvoiceStatusVoid},
	InvoiceStatusOpen: {
		InvoiceStatusPaid,
		InvoiceStatusPastDue,
		InvoiceStatusVoid,
		InvoiceStatusUncollectible,
	},
	InvoiceStatusPastDue: {
		InvoiceStatusPaid,
		InvoiceStatusVoid,
		InvoiceStatusUncollectible,
	},
	InvoiceStatusPaid:          {},
	InvoiceStatusVoid:          {},
	InvoiceStatusUncollectible: {},
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusOpen,
		InvoiceStatusPaid,
		InvoiceStatusPastDue,
		InvoiceStatusVoid,
		InvoiceStatusUncollectible,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsPayable reports whether a payment may still settle the invoice
func (s InvoiceStatus) IsPayable() bool {
	return s == InvoiceStatusOpen || s == InvoiceStatusPastDue
}

// InvoiceItemType is the source of an invoice line
type InvoiceItemType string

const (
	InvoiceItemTypePlan       InvoiceItemType = "plan"
	InvoiceItemTypeProration  InvoiceItemType = "proration"
	InvoiceItemTypeAdjustment InvoiceItemType = "adjustment"
)

func (t InvoiceItemType) Validate() error {
	allowed := []InvoiceItemType{
		InvoiceItemTypePlan,
		InvoiceItemTypeProration,
		InvoiceItemTypeAdjustment,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid invoice item type").
			WithHint("Please provide a valid invoice item type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
