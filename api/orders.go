package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/models"
)

func (s *Server) checkoutOrder(c *gin.Context) {
	var req checkout.CheckoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.engine.InitiateCheckout(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// confirmPayment is the client-side completion channel: the browser calls it
// after the provider SDK reports a successful card payment. The webhook may
// have reconciled the order already; that is fine, the operation is
// idempotent.
func (s *Server) confirmPayment(c *gin.Context) {
	order, err := s.engine.CompleteCardPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed", "order": order})
}

func (s *Server) myOrders(c *gin.Context) {
	orders, err := s.orders.FindByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.orders.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if order.UserID != currentUserID(c) && !c.GetBool(contextIsAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your order"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.orders.FindAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type updateOrderStatusRequest struct {
	OrderStatus   models.OrderStatus   `json:"order_status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.OrderStatus, req.PaymentStatus)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated", "order": order})
}

func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *checkout.ValidationError
	var notFoundErr *checkout.NotFoundError
	var gatewayErr *checkout.GatewayError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &gatewayErr):
		s.logger.Error("gateway failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": gatewayErr.Error()})
	default:
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
