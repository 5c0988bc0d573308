package invoice

import (
	"testing"
	"time"

	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/domain/money"
	"github.com/condohub/billing/internal/domain/period"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type InvoiceModelSuite struct {
	suite.Suite
	inv *Invoice
}

func TestInvoiceModel(t *testing.T) {
	suite.Run(t, new(InvoiceModelSuite))
}

func (s *InvoiceModelSuite) SetupTest() {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := period.ForCycle(start, types.BillingCycleMonthly)
	s.inv = New("tenant", "sub", FormatNumber(2025, 1), "BRL", p, start.AddDate(0, 0, 5))
}

func (s *InvoiceModelSuite) TestTotals() {
	_, err := s.inv.AddItem(types.InvoiceItemTypePlan, "Pro monthly", 1, money.New(9900, "BRL"))
	s.Require().NoError(err)
	item, err := s.inv.AddItem(types.InvoiceItemTypeAdjustment, "Extra units", 3, money.New(500, "BRL"))
	s.Require().NoError(err)
	s.Equal(int64(1500), item.Total.Amount())

	s.Require().NoError(s.inv.SetTax(money.New(200, "BRL")))
	s.Require().NoError(s.inv.SetDiscount(money.New(100, "BRL")))
	s.Require().NoError(s.inv.CalculateTotals())

	s.Equal(int64(11400), s.inv.Subtotal.Amount())
	s.Equal(int64(11500), s.inv.Total.Amount())
}

func (s *InvoiceModelSuite) TestItemValidation() {
	_, err := s.inv.AddItem(types.InvoiceItemTypePlan, "zero", 0, money.New(100, "BRL"))
	s.True(ierr.IsValidation(err))

	_, err = s.inv.AddItem(types.InvoiceItemTypePlan, "usd", 1, money.New(100, "USD"))
	s.Equal(ierr.CodeCurrencyMismatch, ierr.Code(err))
}

func (s *InvoiceModelSuite) TestMutationsRequireDraft() {
	s.Require().NoError(s.inv.Issue())

	_, err := s.inv.AddItem(types.InvoiceItemTypePlan, "late", 1, money.New(100, "BRL"))
	s.Equal(ierr.CodeInvoiceNotDraft, ierr.Code(err))
	s.Equal(ierr.CodeInvoiceNotDraft, ierr.Code(s.inv.CalculateTotals()))
	s.Equal(ierr.CodeInvoiceNotDraft, ierr.Code(s.inv.SetTax(money.New(1, "BRL"))))
}

func (s *InvoiceModelSuite) TestIssueEmitsTotalAndDueDate() {
	_, err := s.inv.AddItem(types.InvoiceItemTypePlan, "Pro monthly", 1, money.New(9900, "BRL"))
	s.Require().NoError(err)
	s.Require().NoError(s.inv.CalculateTotals())
	s.Require().NoError(s.inv.Issue())

	evts := s.inv.PullEvents()
	s.Require().Len(evts, 1)
	s.Equal(events.InvoiceIssued, evts[0].Name)
	s.Equal(int64(9900), evts[0].Payload["total"])
	s.Equal(s.inv.DueDate, evts[0].Payload["due_date"])
}

func (s *InvoiceModelSuite) TestLifecycle() {
	paidAt := time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.inv.Issue())
	s.Require().NoError(s.inv.MarkPastDue())
	s.Require().NoError(s.inv.MarkPaid(paidAt))
	s.Equal(paidAt, *s.inv.PaidAt)

	err := s.inv.Void(paidAt)
	s.Require().Error(err)
	s.Equal(ierr.CodeInvalidInvoiceTransition, ierr.Code(err))
	s.Empty(ierr.Details(err)["allowed"])
}

func (s *InvoiceModelSuite) TestDraftCannotBePaid() {
	err := s.inv.MarkPaid(time.Now())
	s.Equal(ierr.CodeInvalidInvoiceTransition, ierr.Code(err))
	s.ElementsMatch([]any{"open", "void"}, ierr.Details(err)["allowed"])
}

func (s *InvoiceModelSuite) TestVoidAndUncollectible() {
	s.Require().NoError(s.inv.Void(time.Now()))
	s.NotNil(s.inv.VoidedAt)

	other := New("tenant", "sub", FormatNumber(2025, 2), "BRL", s.inv.Period, s.inv.DueDate)
	s.Require().NoError(other.Issue())
	s.Require().NoError(other.MarkUncollectible())
	s.Equal(types.InvoiceStatusUncollectible, other.Status)
}

func (s *InvoiceModelSuite) TestDaysPastDue() {
	s.Require().NoError(s.inv.Issue())
	s.Equal(0, s.inv.DaysPastDue(s.inv.DueDate.Add(-time.Hour)))
	s.Equal(14, s.inv.DaysPastDue(s.inv.DueDate.AddDate(0, 0, 14).Add(time.Hour)))
	s.True(s.inv.IsOverdue(s.inv.DueDate.Add(time.Minute)))
	s.False(s.inv.IsOverdue(s.inv.DueDate))
}

func (s *InvoiceModelSuite) TestFormatNumber() {
	s.Equal("INV-2025-0001", FormatNumber(2025, 1))
	s.Equal("INV-2025-0042", FormatNumber(2025, 42))
	s.Equal("INV-2025-12345", FormatNumber(2025, 12345))
}
