package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slot-server/server"
	"slot-server/server/domain"
	"slot-server/server/infra"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		if errors.Is(err, domain.ErrSocketSetup) {
			server.Fatal(err)
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:   "slotserver",
		Short: "TCP server with a fixed number of client slots",
		Long: `slotserver accepts TCP connections into a fixed table of slots,
drains the bytes each client sends and releases the slot.

At most --requests clients are served at once; the rest wait in the
listen backlog. Every flag can also be set by the environment variable
shown in its description.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	bindFlags(cmd, &cfg)

	cmd.AddCommand(versionCmd())
	return cmd
}

func run(parent context.Context, cfg config) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats := infra.MultiStatsStore{}
	if cfg.metricsAddr != "" {
		stats = append(stats, infra.NewPrometheusStatsStore())
		go serveMetrics(ctx, cfg.metricsAddr)
	}
	if cfg.statsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis stats ping error: %w", err)
		}
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		))
	}

	opts := []server.Option{}
	if len(stats) > 0 {
		opts = append(opts, server.WithStats(stats))
	}

	srv, err := server.Initialize(cfg.server, opts...)
	if err != nil {
		return err
	}

	sc := srv.Config()
	log.Printf("slotserver listening on %s", srv.Addr())
	log.Printf("slots: requests=%d workers=%d backlog=%d buffer=%d", sc.Requests, sc.Workers, sc.Backlog, sc.InitialBufferSize)
	log.Printf("timeouts: idle=%s claim=%s", sc.IdleTimeout, sc.ClaimTimeout)
	log.Printf("rate: rps=%.3f burst=%d", sc.RateRPS, sc.RateBurst)
	log.Printf("stats: metricsAddr=%q redisAddr=%q bucket=%s", cfg.metricsAddr, cfg.statsRedisAddr, cfg.statsBucket)

	return srv.Run(ctx)
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("metrics server error: %v", err)
	}
}
