package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/config"
	"github.com/example/comforty/pkg/models"
	"github.com/example/comforty/pkg/payment"
	"github.com/example/comforty/pkg/repository"
)

// CheckoutService is the reconciliation engine surface the handlers call.
type CheckoutService interface {
	InitiateCheckout(ctx context.Context, userID string, req checkout.CheckoutRequest) (*checkout.CheckoutResult, error)
	CompleteCardPayment(ctx context.Context, orderID string) (*models.Order, error)
	ReportPaymentFailure(ctx context.Context, orderID string) error
}

// OrderQueries serves the read and administrative order endpoints.
type OrderQueries interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (*models.Order, error)
}

// CartService serves the cart endpoints.
type CartService interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int64) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, productID string, quantity int64) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// DashboardProvider serves the admin dashboard.
type DashboardProvider interface {
	Dashboard(ctx context.Context) (*repository.DashboardStats, error)
}

// AuditTrail exposes the per-order audit history to admins.
type AuditTrail interface {
	ByEntity(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *gin.Engine
	engine  CheckoutService
	orders  OrderQueries
	carts   CartService
	stats   DashboardProvider
	audit   AuditTrail
	gateway payment.Gateway
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	engine CheckoutService,
	orders OrderQueries,
	carts CartService,
	stats DashboardProvider,
	audit AuditTrail,
	gateway payment.Gateway,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	s := &Server{
		config:  cfg,
		logger:  logger,
		router:  router,
		engine:  engine,
		orders:  orders,
		carts:   carts,
		stats:   stats,
		audit:   audit,
		gateway: gateway,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")

	// The webhook endpoint is unauthenticated: the signature check inside
	// the handler is its authentication.
	api.POST("/stripe/webhook", s.stripeWebhook)

	auth := api.Group("", s.authMiddleware())
	{
		orders := auth.Group("/orders")
		{
			orders.POST("/checkout", s.checkoutOrder)
			orders.POST("/:id/confirm", s.confirmPayment)
			orders.GET("/my-orders", s.myOrders)
			orders.GET("/:id", s.getOrder)
			orders.PUT("/:id", s.adminMiddleware(), s.updateOrderStatus)
			orders.GET("", s.adminMiddleware(), s.listOrders)
		}

		cart := auth.Group("/cart")
		{
			cart.GET("", s.getCart)
			cart.POST("/add", s.addCartItem)
			cart.PUT("/update", s.updateCartItem)
			cart.DELETE("/remove", s.removeCartItem)
			cart.DELETE("/clear", s.clearCart)
		}

		admin := auth.Group("/admin", s.adminMiddleware())
		{
			admin.GET("/dashboard", s.adminDashboard)
			admin.GET("/orders/:id/audit", s.orderAuditTrail)
		}
	}
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.logger.Info("API server starting", zap.String("address", addr))
	return s.router.Run(addr)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
