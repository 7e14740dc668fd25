package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"kmevents-payments/internal/handler"
	"kmevents-payments/internal/middleware"
	"kmevents-payments/internal/service"
)

type Server struct {
	echo           *echo.Echo
	paymentHandler *handler.PaymentHandler
	couponHandler  *handler.CouponHandler
	planHandler    *handler.PlanHandler
	jwtSecret      string
}

func NewServer(
	paymentService service.PaymentService,
	webhookService service.WebhookService,
	couponService service.CouponService,
	planService service.PlanService,
	jwtSecret string,
	log *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Error(v.Error))
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:           e,
		paymentHandler: handler.NewPaymentHandler(paymentService, webhookService),
		couponHandler:  handler.NewCouponHandler(couponService),
		planHandler:    handler.NewPlanHandler(planService),
		jwtSecret:      jwtSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- gateway webhooks (signed, unauthenticated) --------
	api.POST("/payments/webhook", s.paymentHandler.Webhook)

	authed := api.Group("", middleware.Auth(s.jwtSecret))

	// -------- checkout --------
	payments := authed.Group("/payments")
	payments.POST("/order", s.paymentHandler.CreateBookingOrder)
	payments.POST("/create-order", s.paymentHandler.CreateOrder)
	payments.POST("/verify", s.paymentHandler.Verify)
	payments.POST("/failure", s.paymentHandler.ReportFailure)
	payments.GET("/status/:orderId", s.paymentHandler.Status)

	// -------- coupons / plans --------
	authed.POST("/coupons/validate", s.couponHandler.Validate)
	authed.GET("/plans", s.planHandler.List)
	authed.POST("/event-requests", s.planHandler.CreateEventRequest)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
