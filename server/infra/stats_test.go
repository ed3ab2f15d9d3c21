package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"slot-server/server/domain"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStatsStore_Counts(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Kind: domain.EventAdmitted, Key: "a", Active: 1})
	_ = s.Record(ctx, domain.StatsEvent{Kind: domain.EventAdmitted, Key: "b", Active: 2})
	_ = s.Record(ctx, domain.StatsEvent{Kind: domain.EventDrained, Key: "a", Bytes: 10, Active: 2})
	_ = s.Record(ctx, domain.StatsEvent{Kind: domain.EventRejected, Key: "b", Active: 1})

	total := s.Total()
	if total.Admitted != 2 || total.Drained != 1 || total.Rejected != 1 || total.Bytes != 10 {
		t.Fatalf("unexpected totals: %+v", total)
	}
	if s.PeakActive() != 2 {
		t.Fatalf("expected peak 2, got %d", s.PeakActive())
	}
	if got := s.ByKey()["a"]; got.Admitted != 1 || got.Bytes != 10 {
		t.Fatalf("unexpected counters for a: %+v", got)
	}
}

func TestMemoryStatsStore_NoKeysByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Kind: domain.EventAdmitted, Key: "a"})
	if len(s.ByKey()) != 0 {
		t.Fatalf("expected no per-key tracking")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestPrometheusStatsStore_Records(t *testing.T) {
	s := NewPrometheusStatsStore(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Kind: domain.EventAdmitted, Active: 1})
	_ = s.Record(ctx, domain.StatsEvent{Kind: domain.EventDrained, Bytes: 42, Active: 3})

	if v := counterValue(t, s.events.WithLabelValues("admitted")); v != 1 {
		t.Fatalf("expected admitted=1, got %v", v)
	}
	if v := counterValue(t, s.bytesRead); v != 42 {
		t.Fatalf("expected bytes=42, got %v", v)
	}
	if v := gaugeValue(t, s.activeSlots); v != 3 {
		t.Fatalf("expected active=3, got %v", v)
	}
}

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	if err := s.Record(context.Background(), domain.StatsEvent{Kind: domain.EventAdmitted}); err != nil {
		t.Fatalf("expected nil store to be a no-op, got %v", err)
	}
}

func TestRedisStatsStore_UnreachableServerReturnsError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	s := NewRedisStatsStore(rdb, WithStatsPrefix("test:"), WithStatsTrackKeys(true))
	if s.prefix != "test" {
		t.Fatalf("expected trimmed prefix, got %q", s.prefix)
	}
	err := s.Record(context.Background(), domain.StatsEvent{Kind: domain.EventDrained, Key: "10.0.0.1", Bytes: 3})
	if err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
}

// capturePipeline guarda os comandos do pipeline sem falar com um Redis real.
type capturePipeline struct{ keys map[string]bool }

func (c *capturePipeline) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in test")
	}
}

func (c *capturePipeline) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (c *capturePipeline) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			if args := cmd.Args(); len(args) > 1 {
				c.keys[fmt.Sprint(args[1])] = true
			}
		}
		return nil
	}
}

func recordedKeys(t *testing.T, opts ...RedisStatsOption) map[string]bool {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	capture := &capturePipeline{keys: make(map[string]bool)}
	rdb.AddHook(capture)

	s := NewRedisStatsStore(rdb, opts...)
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	if err := s.Record(context.Background(), domain.StatsEvent{Kind: domain.EventDrained, Key: "10.0.0.1", Bytes: 3, At: at}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	return capture.keys
}

func TestRedisStatsStore_MinuteBucketByDefault(t *testing.T) {
	keys := recordedKeys(t)
	for _, k := range []string{"slotserver:stats:total", "slotserver:stats:active", "slotserver:stats:minute:202405011230"} {
		if !keys[k] {
			t.Fatalf("expected key %q in pipeline, got %v", k, keys)
		}
	}
	if keys["slotserver:stats:key:10.0.0.1"] {
		t.Fatalf("per-peer key must be off by default")
	}
}

func TestRedisStatsStore_BucketNoneSkipsMinuteKeys(t *testing.T) {
	keys := recordedKeys(t, WithStatsBucket(" None "), WithStatsTrackKeys(true))
	if keys["slotserver:stats:minute:202405011230"] {
		t.Fatalf("expected no minute bucket, got %v", keys)
	}
	if !keys["slotserver:stats:key:10.0.0.1"] {
		t.Fatalf("expected per-peer key, got %v", keys)
	}
}

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestMultiStatsStore_FansOutAndJoinsErrors(t *testing.T) {
	mem := NewMemoryStatsStore()
	boom := errors.New("boom")
	m := MultiStatsStore{failingStats{err: boom}, nil, mem}

	err := m.Record(context.Background(), domain.StatsEvent{Kind: domain.EventAdmitted})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if mem.Total().Admitted != 1 {
		t.Fatalf("expected later stores to still receive the event")
	}
}
