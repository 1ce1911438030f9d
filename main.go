package main

import (
	"context"
	"log"
	"time"

	"github.com/edumarket/booking-service/config"
	"github.com/edumarket/booking-service/internal/consumer"
	"github.com/edumarket/booking-service/internal/dispatch"
	"github.com/edumarket/booking-service/internal/gateway"
	"github.com/edumarket/booking-service/internal/handler"
	"github.com/edumarket/booking-service/internal/middleware"
	"github.com/edumarket/booking-service/internal/repository"
	"github.com/edumarket/booking-service/internal/service"
	"github.com/edumarket/booking-service/pkg/database"
	"github.com/edumarket/booking-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ: consume slot announcements from the schedule service,
	// publish transition events to the rest of the platform.
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		logger.Fatal("rabbitmq consumer connect failed", zap.Error(err))
	}
	defer mqConsumer.Close()

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		logger.Fatal("rabbitmq publisher connect failed", zap.Error(err))
	}
	defer publisher.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		logger.Fatal("rabbitmq consume failed", zap.Error(err))
	}

	// Repositories
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	consumer.NewSlotConsumer(slotRepo, logger).Start(msgs)

	// Gateway adapter
	gw, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL:       cfg.GatewayBaseURL,
		APIToken:      cfg.GatewayAPIToken,
		WebhookSecret: cfg.GatewayWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	})
	if err != nil {
		logger.Fatal("gateway client init failed", zap.Error(err))
	}

	// Services
	dispatcher := dispatch.NewRabbitDispatcher(publisher, logger)
	bookingSvc := service.NewBookingService(bookingRepo, slotRepo, dispatcher, logger)
	paymentSvc := service.NewPaymentService(paymentRepo, bookingRepo, gw, bookingSvc, dispatcher, service.PaymentConfig{
		AutoCapture:       cfg.GatewayAutoCapture,
		SuccessURL:        cfg.CheckoutSuccessURL,
		FailureURL:        cfg.CheckoutFailureURL,
		CancelURL:         cfg.CheckoutCancelURL,
		WebhookURL:        cfg.WebhookURL,
		CancelGraceWindow: cfg.CancelGraceWindow,
		AbandonedTTL:      cfg.AbandonedPaymentTTL,
	}, logger)

	// Sweep payments abandoned before checkout.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := paymentSvc.ExpireAbandoned(context.Background()); err != nil {
				logger.Warn("abandoned payment sweep failed", zap.Error(err))
			}
		}
	}()

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.NewErrorHandler(logger)
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "booking-service"})
	})

	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e)
	handler.NewPaymentHandler(paymentSvc, gw, logger).RegisterRoutes(e)

	logger.Info("booking service starting", zap.String("port", cfg.ServerPort))
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
