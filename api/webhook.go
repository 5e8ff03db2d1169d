package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/payment"
)

// stripeWebhook is the asynchronous completion channel. The raw body is
// verified against the signature header before any order is looked up;
// everything after verification is acknowledged with 200 because the
// provider retries non-2xx responses and the completion handler is
// idempotent anyway.
func (s *Server) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	event, err := s.gateway.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		s.logger.Warn("rejected webhook delivery", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case payment.EventIntentSucceeded:
		orderID := event.Metadata["orderId"]
		if orderID == "" {
			s.logger.Error("succeeded event without orderId metadata", zap.String("event_id", event.ID))
			break
		}
		if _, err := s.engine.CompleteCardPayment(c.Request.Context(), orderID); err != nil {
			s.logWebhookError(event.ID, orderID, err)
		}

	case payment.EventIntentFailed:
		orderID := event.Metadata["orderId"]
		if orderID == "" {
			s.logger.Error("failed event without orderId metadata", zap.String("event_id", event.ID))
			break
		}
		if err := s.engine.ReportPaymentFailure(c.Request.Context(), orderID); err != nil {
			s.logWebhookError(event.ID, orderID, err)
		}

	default:
		s.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) logWebhookError(eventID, orderID string, err error) {
	var notFoundErr *checkout.NotFoundError
	if errors.As(err, &notFoundErr) {
		s.logger.Warn("webhook references unknown order",
			zap.String("event_id", eventID), zap.String("order_id", orderID))
		return
	}
	s.logger.Error("webhook handling failed",
		zap.String("event_id", eventID), zap.String("order_id", orderID), zap.Error(err))
}
