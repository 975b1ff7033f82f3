package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/user/vendbot/internal/config"
	"github.com/user/vendbot/internal/conversation"
	"github.com/user/vendbot/internal/delivery"
	"github.com/user/vendbot/internal/dispatch"
	"github.com/user/vendbot/internal/fulfillment"
	"github.com/user/vendbot/internal/payment"
	"github.com/user/vendbot/internal/salefeed"
	"github.com/user/vendbot/internal/scheduler"
	"github.com/user/vendbot/internal/state"
	"github.com/user/vendbot/internal/telegram"
	"github.com/user/vendbot/internal/types"
	"github.com/user/vendbot/internal/webhook"
	"github.com/user/vendbot/pkg/razorpay"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot and the webhook server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(cfg *config.Config) (string, error) {
	pidPath := cfg.PIDPath()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// openSessions returns a Redis-backed session store when redis.addr is set,
// otherwise an in-process one. The returned closer is never nil.
func openSessions(ctx context.Context, cfg *config.Config) (types.SessionStore, func() error, error) {
	if cfg.Redis.Addr == "" {
		return state.NewMemorySessionStore(), func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return state.NewRedisSessionStore(client, cfg.SessionTTL()), client.Close, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	db, err := state.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	catalog := state.NewCatalogStore(db)
	ledger := state.NewSalesLedger(db)

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Payment gateway
	gatewayClient := razorpay.New(razorpay.Config{
		BaseURL:   cfg.Razorpay.BaseURL,
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
	})
	acquirer := payment.NewAcquirer(gatewayClient, payment.Options{
		CallbackURL: cfg.HTTP.PublicURL,
		LinkTimeout: cfg.LinkTimeout(),
		CodeTimeout: cfg.CodeTimeout(),
	})

	// Chat adapter and authoring flow
	operator := types.ActorID(cfg.Telegram.OperatorID)
	adapter, err := telegram.New(cfg.Telegram.Token, int64(cfg.Telegram.MaxConcurrent))
	if err != nil {
		return fmt.Errorf("create telegram adapter: %w", err)
	}
	controller := conversation.New(operator, sessions, catalog, adapter)
	adapter.SetHandlers(telegram.Handlers{
		Authoring: controller,
		Catalog:   catalog,
		Acquirer:  acquirer,
	})

	// Sale feed
	feed, err := salefeed.New(salefeed.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		TLS:     cfg.Kafka.TLS,
	})
	if err != nil {
		return err
	}
	defer feed.Close()

	// Fulfillment. The queue has its own lifetime; Stop drains it.
	worker := fulfillment.NewWorker(adapter, delivery.NewDefaultRegistry(), operator, dispatch.DefaultRetryPolicy(), feed)
	jobs := dispatch.NewQueue[*fulfillment.Job]("fulfillment", int64(cfg.Fulfillment.MaxConcurrent))
	jobs.SetLaneSize(cfg.Fulfillment.LaneSize)
	jobs.SetProcessor(worker.Process)
	jobs.Start(context.Background())

	dispatcher := fulfillment.NewDispatcher(fulfillment.Options{
		Secret: cfg.Razorpay.WebhookSecret,
		Dedupe: cfg.Fulfillment.Dedupe,
	}, catalog, ledger, jobs)

	go adapter.Start(ctx)
	slog.Info("telegram adapter started", "operator_id", operator)

	// Scheduler
	sched := scheduler.New(
		scheduler.DigestJob(cfg.Scheduler.Digest, ledger, adapter, operator),
		scheduler.PruneJob(cfg.Scheduler.Prune, ledger, cfg.Scheduler.RetentionDays),
	)
	n := sched.Start(ctx)
	slog.Info("scheduler started", "jobs", n)

	// Webhook HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           webhook.NewServer(dispatcher, catalog, ledger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("webhook server started", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("webhook server error", "error", err)
			cancel()
		}
	}()

	// The webhook server must stop before the fulfillment queue.
	shutdown := func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("webhook server shutdown", "error", err)
		}
		jobs.Stop()
		sched.Stop()
		cancel()
	}

	slog.Info("vendbot started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"database", cfg.Database.Driver,
		"redis", cfg.Redis.Addr != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
		"dedupe", cfg.Fulfillment.Dedupe,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			shutdown()
			return nil
		case sig := <-sigChan:
			if sig != syscall.SIGHUP {
				slog.Info("shutting down", "signal", sig)
				shutdown()
				return nil
			}

			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			shutdown()
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				return fmt.Errorf("re-exec: %w", err)
			}
		}
	}
}
