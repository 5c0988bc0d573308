package v1

import (
	"io"
	"net/http"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/service"
	"github.com/condohub/billing/internal/types"
	"github.com/gin-gonic/gin"
)

// WebhookHandler receives payment gateway and fiscal provider callbacks.
// Bodies are passed through untouched so signatures can be verified.
type WebhookHandler struct {
	paymentService service.PaymentService
	nfseService    service.NFSeService
	logger         *logger.Logger
}

func NewWebhookHandler(
	paymentService service.PaymentService,
	nfseService service.NFSeService,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		nfseService:    nfseService,
		logger:         logger,
	}
}

// @Summary Handle payment gateway webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param gateway path string true "Payment gateway"
// @Param Stripe-Signature header string true "Gateway signature"
// @Success 200 {object} dto.WebhookResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Router /webhooks/payments/{gateway} [post]
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	gateway := c.Param("gateway")

	body, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.paymentService.HandlePaymentWebhook(types.SetUserID(c.Request.Context(), types.SystemUserID), gateway, body, c.GetHeader(types.HeaderStripeSignature))
	if err != nil {
		h.logger.Warnw("payment webhook not processed",
			"gateway", gateway,
			"request_id", types.GetRequestID(c.Request.Context()),
			"error", err,
		)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Handle NFSe provider webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-NFSe-Signature header string true "Provider signature"
// @Success 200 {object} dto.WebhookResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Router /webhooks/nfse [post]
func (h *WebhookHandler) HandleNFSeWebhook(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.nfseService.HandleNFSeWebhook(types.SetUserID(c.Request.Context(), types.SystemUserID), body, c.GetHeader(types.HeaderNFSeSignature))
	if err != nil {
		h.logger.Warnw("nfse webhook not processed",
			"request_id", types.GetRequestID(c.Request.Context()),
			"error", err,
		)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not read the request body").
			Mark(ierr.ErrValidation)
	}
	if len(body) == 0 {
		return nil, ierr.NewError("empty webhook body").
			WithHint("Webhook body is required").
			Mark(ierr.ErrValidation)
	}
	return body, nil
}
