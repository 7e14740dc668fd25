package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"kmevents-payments/internal/checkout"
	"kmevents-payments/internal/client"
	"kmevents-payments/internal/config"
	"kmevents-payments/internal/logger"
	"kmevents-payments/internal/repository"
	"kmevents-payments/internal/server"
	"kmevents-payments/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	rz := client.NewRazorpayClient(&cfg.Razorpay)

	loader := checkout.NewLoader(func(ctx context.Context) error {
		if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
			return errors.New("razorpay credentials not configured")
		}
		return nil
	})

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	eventRequestRepo := repository.NewEventRequestRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := planRepo.Seed(seedCtx); err != nil {
		log.Warn("plan seed failed", zap.Error(err))
	}
	if err := couponRepo.Seed(seedCtx); err != nil {
		log.Warn("coupon seed failed", zap.Error(err))
	}
	seedCancel()

	checkoutOpts := checkout.Options{
		WidgetTimeout: cfg.Checkout.WidgetTimeout,
		RetryCount:    cfg.Checkout.RetryCount,
		ThemeColor:    cfg.Checkout.ThemeColor,
	}

	paymentService := service.NewPaymentService(
		db, rz, loader, checkoutOpts, cfg.Checkout.Currency,
		orderRepo, paymentRepo, bookingRepo, subscriptionRepo, couponRepo,
		log,
	)
	webhookService := service.NewWebhookService(
		db, rz,
		webhookEventRepo, orderRepo, paymentRepo, bookingRepo, subscriptionRepo, couponRepo,
		log,
	)
	couponService := service.NewCouponService(couponRepo)
	planService := service.NewPlanService(planRepo, subscriptionRepo, eventRequestRepo, paymentService, log)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(paymentService, webhookService, couponService, planService, cfg.Auth.JWTSecret, log)

	log.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("HTTP server shutdown error", zap.Error(err))
	}
}
