package main

import (
	"context"
	"log"
	"strings"

	"settlement-service/config"
	"settlement-service/controllers"
	"settlement-service/database"
	"settlement-service/kafka"
	"settlement-service/logger"
	"settlement-service/models"
	aws_pkg "settlement-service/pkg/aws"
	"settlement-service/repository"
	"settlement-service/routes"
	"settlement-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	if err := database.Connect(cfg,
		&models.Order{},
		&models.PaymentAttempt{},
		&models.Wallet{},
		&models.WalletLedgerEntry{},
		&models.IdempotencyRecord{},
	); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to redis", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(database.DB)
	attemptRepo := repository.NewGormAttemptRepository(database.DB)
	walletRepo := repository.NewGormWalletRepository(database.DB)
	idemRepo := repository.NewGormIdempotencyRepository(database.DB)
	sessionStore := repository.NewRedisSessionStore(redisClient)

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
	upiSvc := services.NewUPIService(cfg.UPISecret)
	verifier := services.NewProviderVerifier(stripeSvc, upiSvc, logger.Log)

	producer := kafka.NewOrderEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventsTopic)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var snsClient aws_pkg.SNSPublisher
	var sqsConsumer *aws_pkg.SQSConsumer
	if cfg.OrderSNSTopicARN != "" || cfg.FulfillmentQueueURL != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		if cfg.OrderSNSTopicARN != "" {
			snsClient = aws_pkg.NewSNSClient(awsCfg)
		}
		if cfg.FulfillmentQueueURL != "" {
			sqsConsumer = aws_pkg.NewSQSConsumer(awsCfg, cfg.FulfillmentQueueURL)
		}
	}

	events := services.NewDualEventPublisher(producer, snsClient, cfg.OrderSNSTopicARN, logger.Log)

	checkoutSvc := services.NewCheckoutService(
		sessionStore,
		attemptRepo,
		walletRepo,
		orderRepo,
		idemRepo,
		verifier,
		stripeSvc,
		upiSvc,
		services.NewProductClient(cfg.ProductServiceURL),
		services.NewAddressClient(cfg.AddressServiceURL),
		events,
		services.CheckoutConfig{
			SessionTTL:            cfg.SessionTTL,
			FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
			DeliveryFee:           cfg.DeliveryFee,
			Currency:              cfg.Currency,
		},
		logger.Log,
	)
	refundSvc := services.NewRefundService(orderRepo, walletRepo, attemptRepo, stripeSvc, events, cfg.ReturnWindow(), logger.Log)
	orderSvc := services.NewOrderService(orderRepo, refundSvc, events, logger.Log)

	reconciler := services.NewReconciler(
		attemptRepo,
		sessionStore,
		walletRepo,
		checkoutSvc,
		verifier,
		cfg.ReconcileInterval,
		cfg.PendingAttemptTimeout,
		cfg.MaxVerifyRetries,
		logger.Log,
	)
	go reconciler.Run(ctx)

	if sqsConsumer != nil {
		consumer := services.NewFulfillmentConsumer(sqsConsumer, orderSvc, logger.Log)
		go consumer.Start(ctx)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())

	routes.RegisterRoutes(r, cfg.JWTSecret,
		&controllers.CheckoutController{Checkout: checkoutSvc},
		&controllers.OrderController{Orders: orderSvc, Refunds: refundSvc},
		&controllers.WebhookController{
			Stripe:   stripeSvc,
			Checkout: checkoutSvc,
			Refunds:  refundSvc,
			Logger:   logger.Log,
		},
	)

	logger.Log.Info("Settlement service listening", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server exited", zap.Error(err))
	}
}
