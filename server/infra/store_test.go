package infra

import (
	"context"
	"testing"
	"time"

	"slot-server/server/domain"
)

func TestPeerStore_GetSamePeerReturnsSameLimiter(t *testing.T) {
	s := NewPeerStore(10, 1)

	l1 := s.Get(domain.Key("10.0.0.1"))
	l2 := s.Get(domain.Key("10.0.0.1"))
	if l1 != l2 {
		t.Fatalf("expected same limiter pointer for same peer")
	}
	if s.Len() != 1 {
		t.Fatalf("expected one entry, got %d", s.Len())
	}
}

func TestPeerStore_MappedIPv4SharesBucket(t *testing.T) {
	s := NewPeerStore(10, 1)

	if s.Get(domain.Key("::ffff:10.0.0.1")) != s.Get(domain.Key("10.0.0.1")) {
		t.Fatalf("expected IPv4-mapped IPv6 to share the IPv4 bucket")
	}
	if s.Get(domain.Key("unknown")) == s.Get(domain.Key("10.0.0.1")) {
		t.Fatalf("expected non-IP keys to get their own bucket")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
}

func TestPeerStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewPeerStore(0.02, 1)

	lim := s.Get(domain.Key("10.0.0.1"))
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	if lim.Allow() {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
}

func TestPeerStore_SweepRemovesIdleRefilledPeers(t *testing.T) {
	s := NewPeerStore(1000, 1, WithPeerIdle(2*time.Millisecond), WithSweepEvery(0))

	before := s.Get(domain.Key("10.0.0.1"))
	before.Allow()
	time.Sleep(10 * time.Millisecond)

	if got := s.Sweep(); got != 1 {
		t.Fatalf("expected 1 peer removed, got %d", got)
	}
	if after := s.Get(domain.Key("10.0.0.1")); before == after {
		t.Fatalf("expected limiter to be recreated after sweep")
	}
}

func TestPeerStore_SweepKeepsDrainedBuckets(t *testing.T) {
	s := NewPeerStore(0.001, 1, WithPeerIdle(time.Millisecond), WithSweepEvery(0))

	lim := s.Get(domain.Key("10.0.0.1"))
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	time.Sleep(5 * time.Millisecond)

	if got := s.Sweep(); got != 0 {
		t.Fatalf("expected drained bucket to survive sweep, removed %d", got)
	}
	if s.Get(domain.Key("10.0.0.1")).Allow() {
		t.Fatalf("sweep must not hand out a fresh token")
	}
}

func TestPeerStore_SweeperStopsWithContext(t *testing.T) {
	s := NewPeerStore(1000, 1, WithPeerIdle(0), WithSweepEvery(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Get(domain.Key("10.0.0.1"))
	s.StartSweeper(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected sweeper to remove the idle peer")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
