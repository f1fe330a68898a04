package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/modules/booking"
	"hotelbooking/internal/modules/notification"
	"hotelbooking/internal/modules/payment"
	"hotelbooking/internal/repository"
)

// One-shot expiry pass for deployments that run the reaper from cron instead
// of inside the API process.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gateway payment.Gateway = payment.NewSandboxGateway(log.Printf)
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey)
	}
	gateway = payment.NewRetryingGateway(gateway, cfg.PaymentMaxAttempts, cfg.PaymentTimeout, cfg.PaymentRetryBackoff, log.Printf)

	var publisher notification.EventPublisher
	if cfg.RabbitMQURL != "" {
		p := notification.NewAMQPPublisher(cfg.RabbitMQURL)
		defer p.Close()
		publisher = p
	}
	notificationService := notification.NewService(repository.NewNotificationRepository(db), nil, log.Printf)
	notifier := notification.NewNotifier(publisher, notificationService, log.Printf)

	reaper := booking.NewReaper(repository.NewBookingRepository(db), gateway, notifier, cfg.ReaperBatchSize, log.Printf)
	n, err := reaper.ExpireStale(ctx)
	if err != nil {
		log.Fatalf("booking reaper failed after expiring %d bookings: %v", n, err)
	}

	log.Printf("booking reaper completed: expired=%d", n)
}
