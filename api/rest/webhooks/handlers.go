package webhooks

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/internal/errors"
	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/miniaturia/billing"
)

// StripeHandler godoc
// @Summary Receive Stripe events
// @Description Verifies the Stripe-Signature header and applies the event to the credit ledger.
// @Description Verified events are always acknowledged with 200 so Stripe stops retrying.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/webhooks/stripe [post]
func StripeHandler(verifier Verifier, handler EventHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())

		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			errors.BadRequest(c, "failed to read request body", err)
			return
		}

		event, err := verifier.Verify(payload, c.GetHeader(SignatureHeader))
		if err != nil {
			if stderrors.Is(err, billing.ErrNoSecret) {
				log.Error("stripe webhook received but no webhook secret is configured")
				errors.BadRequest(c, "webhook secret not configured", nil)
				return
			}
			log.Warn("stripe webhook rejected", "error", err)
			errors.BadRequest(c, "invalid signature", nil)
			return
		}

		log = log.With("event_id", event.ID, "event_type", string(event.Type))

		resp := Response{
			Received:  true,
			EventID:   event.ID,
			EventType: string(event.Type),
		}

		result, err := handler.Handle(c.Request.Context(), event)
		if err != nil {
			// acknowledged anyway; stripe retries would hit the same failure
			log.Error("stripe webhook processing failed", "error", err)
			resp.Message = "processing failed"
			c.JSON(http.StatusOK, resp)
			return
		}

		resp.Processed = result.Processed
		resp.Duplicate = result.Duplicate
		resp.Message = result.Message

		log.Info("stripe webhook handled", "processed", result.Processed, "duplicate", result.Duplicate)

		c.JSON(http.StatusOK, resp)
	}
}
