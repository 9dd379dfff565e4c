package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/services/audittail"
)

// The POS core has no transport of its own: handlers, sessions and
// permission resolution live in the collaborator that embeds the
// service packages. This binary covers the operational pieces that do
// belong to the repo: applying the schema and tailing the audit
// stream.
func main() {
	var (
		mode       = flag.String("mode", "", "Operation mode (migrate, audit-tail)")
		configPath = flag.String("config", "config.yaml", "Path to config file")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count (audit-tail mode)")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "migrate":
		if err := runMigrate(ctx, cfg, log); err != nil {
			log.Error("migrate_failed", "Migration run failed", requestID, err, nil)
			os.Exit(1)
		}
	case "audit-tail":
		if err := runAuditTail(ctx, cfg, log, *prefetch); err != nil {
			log.Error("service_failed", "Audit tail failed", requestID, err, nil)
			os.Exit(1)
		}
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Stopped gracefully", requestID, nil)
}

func runMigrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	return db.RunMigrations(ctx, "migrations")
}

func runAuditTail(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	consumer := messaging.NewConsumer(conn, log, messaging.AuditTrailQueue, "audit-tail", prefetch)
	sub := audittail.NewSubscriber(consumer, log)
	defer sub.Close()

	return sub.Start(ctx)
}
