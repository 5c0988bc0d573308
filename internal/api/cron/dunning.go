package cron

import (
	"context"
	"net/http"
	"time"

	"github.com/condohub/billing/internal/api/dto"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/service"
	"github.com/condohub/billing/internal/types"
	"github.com/gin-gonic/gin"
)

// DunningHandler runs the daily collection pass: overdue invoices are moved
// to PastDue first, then the dunning engine escalates their subscriptions
type DunningHandler struct {
	invoiceService service.InvoiceService
	dunningService service.DunningService
	logger         *logger.Logger
}

func NewDunningHandler(
	invoiceService service.InvoiceService,
	dunningService service.DunningService,
	logger *logger.Logger,
) *DunningHandler {
	return &DunningHandler{
		invoiceService: invoiceService,
		dunningService: dunningService,
		logger:         logger,
	}
}

// Run executes one collection pass at now
func (h *DunningHandler) Run(ctx context.Context, now time.Time) (*dto.CronJobResponse, error) {
	ctx = types.SetUserID(ctx, types.SystemUserID)
	overdue, err := h.invoiceService.MarkOverdueInvoices(ctx, now)
	if err != nil {
		return nil, err
	}

	dunning, err := h.dunningService.ProcessDunning(ctx, now)
	if err != nil {
		return nil, err
	}

	return &dto.CronJobResponse{
		Overdue: overdue,
		Dunning: dunning,
	}, nil
}

// @Summary Run dunning
// @Tags Cron
// @Produce json
// @Success 200 {object} dto.CronJobResponse
// @Router /cron/dunning [post]
func (h *DunningHandler) ProcessDunning(c *gin.Context) {
	h.logger.Infow("starting dunning cron")

	resp, err := h.Run(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("dunning cron failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("dunning cron completed",
		"marked_past_due", len(resp.Overdue.MarkedIDs),
		"processed", resp.Dunning.Processed,
		"suspended", resp.Dunning.Suspended,
	)
	c.JSON(http.StatusOK, resp)
}
