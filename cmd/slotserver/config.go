package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"slot-server/server"
	"slot-server/server/domain"

	"github.com/spf13/cobra"
)

type config struct {
	server server.Config

	metricsAddr string

	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackKeys     bool
}

// bindFlags registra as flags; o valor padrão de cada uma vem da variável de
// ambiente correspondente e, na falta dela, de server.DefaultConfig.
func bindFlags(cmd *cobra.Command, cfg *config) {
	def := server.DefaultConfig()
	f := cmd.Flags()

	f.StringVar(&cfg.server.Address, "addr", getenvDefault("LISTEN_ADDR", def.Address), "listen address host:port [LISTEN_ADDR]")
	f.IntVar(&cfg.server.Backlog, "backlog", getenvIntDefault("BACKLOG", def.Backlog), "listen backlog [BACKLOG]")
	f.IntVar(&cfg.server.Workers, "workers", getenvIntDefault("WORKERS", def.Workers), "workers serving slots [WORKERS]")
	f.IntVar(&cfg.server.Requests, "requests", getenvIntDefault("NREQUESTS", def.Requests), "number of slots (max concurrent clients) [NREQUESTS]")
	f.IntVar(&cfg.server.InitialBufferSize, "buffer", getenvIntDefault("INITIAL_BUFFER", def.InitialBufferSize), "initial per-client buffer size in bytes [INITIAL_BUFFER]")
	f.DurationVar(&cfg.server.IdleTimeout, "idle-timeout", getenvDurationDefault("IDLE_TIMEOUT", def.IdleTimeout), "drop clients that send nothing for this long, 0 disables [IDLE_TIMEOUT]")
	f.DurationVar(&cfg.server.ClaimTimeout, "claim-timeout", getenvDurationDefault("CLAIM_TIMEOUT", def.ClaimTimeout), "log saturation after waiting this long for a free slot, 0 waits silently [CLAIM_TIMEOUT]")
	f.Float64Var(&cfg.server.RateRPS, "rate-rps", getenvFloatDefault("RATE_RPS", def.RateRPS), "new connections per second per peer IP, 0 disables [RATE_RPS]")
	f.IntVar(&cfg.server.RateBurst, "rate-burst", getenvIntDefault("RATE_BURST", def.RateBurst), "connection burst per peer IP [RATE_BURST]")

	f.StringVar(&cfg.metricsAddr, "metrics-addr", getenvDefault("METRICS_ADDR", ""), "serve Prometheus /metrics on this address [METRICS_ADDR]")
	f.StringVar(&cfg.statsRedisAddr, "stats-redis-addr", getenvDefault("STATS_REDIS_ADDR", ""), "record connection stats in Redis [STATS_REDIS_ADDR]")
	f.StringVar(&cfg.statsRedisPassword, "stats-redis-password", os.Getenv("STATS_REDIS_PASSWORD"), "Redis password [STATS_REDIS_PASSWORD]")
	f.IntVar(&cfg.statsRedisDB, "stats-redis-db", getenvIntDefault("STATS_REDIS_DB", 0), "Redis database [STATS_REDIS_DB]")
	f.StringVar(&cfg.statsPrefix, "stats-prefix", getenvDefault("STATS_PREFIX", "slotserver:stats"), "Redis key prefix [STATS_PREFIX]")
	f.DurationVar(&cfg.statsTTL, "stats-ttl", getenvDurationDefault("STATS_TTL", 24*time.Hour), "TTL of per-minute and per-peer keys [STATS_TTL]")
	f.StringVar(&cfg.statsBucket, "stats-bucket", getenvDefault("STATS_BUCKET", "minute"), "per-minute Redis counters: minute or none [STATS_BUCKET]")
	f.BoolVar(&cfg.statsTrackKeys, "stats-track-peers", getenvBoolDefault("STATS_TRACK_PEERS", false), "keep per-peer counters in Redis [STATS_TRACK_PEERS]")
}

func (c config) validate() error {
	switch c.statsBucket {
	case "minute", "none":
	default:
		return fmt.Errorf("%w: stats bucket must be minute or none, got %q", domain.ErrInvalidConfig, c.statsBucket)
	}
	return c.server.Validate()
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
