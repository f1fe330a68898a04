package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/middleware"
	"hotelbooking/internal/modules/booking"
	"hotelbooking/internal/modules/notification"
	"hotelbooking/internal/modules/payment"
	jwtsvc "hotelbooking/internal/pkg/jwt"
	"hotelbooking/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	hotelRepo := repository.NewHotelRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	paymentEventRepo := repository.NewPaymentEventRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	rdb := config.NewRedisClient(cfg.Redis)
	if cfg.Redis.Addr != "" && rdb == nil {
		log.Printf("level=warn msg=redis unreachable, webhook claims and rate limiting disabled addr=%s", cfg.Redis.Addr)
	}

	// Notifications: direct delivery, or through RabbitMQ when configured.
	hub := notification.NewHub()
	notificationService := notification.NewService(notificationRepo, hub, log.Printf)
	var publisher notification.EventPublisher
	if cfg.RabbitMQURL != "" {
		amqpPublisher := notification.NewAMQPPublisher(cfg.RabbitMQURL)
		defer amqpPublisher.Close()
		publisher = amqpPublisher

		consumer := notification.NewConsumer(cfg.RabbitMQURL, notificationService.Deliver, log.Printf)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("level=error msg=booking consumer stopped err=%v", err)
			}
		}()
	}
	notifier := notification.NewNotifier(publisher, notificationService, log.Printf)

	var gateway payment.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey)
	} else {
		log.Printf("level=warn msg=STRIPE_SECRET_KEY not set, using sandbox payment gateway")
		gateway = payment.NewSandboxGateway(log.Printf)
	}
	gateway = payment.NewRetryingGateway(gateway, cfg.PaymentMaxAttempts, cfg.PaymentTimeout, cfg.PaymentRetryBackoff, log.Printf)

	bookingService := booking.NewService(
		hotelRepo,
		discountRepo,
		bookingRepo,
		repository.NewUnitOfWork(db),
		gateway,
		cfg.PendingTTL,
		cfg.MaxNights,
		log.Printf,
	)
	reconciler := booking.NewReconciler(bookingRepo, userRepo, hotelRepo, notifier, log.Printf)
	reaper := booking.NewReaper(bookingRepo, gateway, notifier, cfg.ReaperBatchSize, log.Printf)
	go reaper.Run(ctx, cfg.ReaperInterval)

	var dedup payment.Deduper
	if rdb != nil {
		dedup = payment.NewRedisDeduper(rdb, cfg.WebhookDedupTTL)
	}
	paymentService := payment.NewService(payment.NewStripeVerifier(cfg.StripeWebhookSecret), reconciler, paymentEventRepo, dedup, log.Printf)

	bookingHandler := booking.NewHandler(bookingService)
	paymentHandler := payment.NewHandler(paymentService, log.Printf)
	notificationHandler := notification.NewHandler(notificationService, hub, j, log.Printf)

	r := gin.New()
	r.Use(gin.Logger(), middleware.RequestID(), middleware.ErrorLogger(!cfg.IsProduction()), middleware.CORS(os.Getenv("CORS_ALLOWED_ORIGINS")))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		paymentHandler.RegisterPublicRoutes(v1)
		notificationHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		if cfg.RateLimit.Enabled {
			protected.Use(middleware.RateLimit(rdb, "ratelimit", cfg.RateLimit.Capacity, cfg.RateLimit.Interval))
		}
		{
			bookingHandler.RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("level=info msg=server listening addr=%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("level=info msg=shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=error msg=graceful shutdown failed err=%v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
