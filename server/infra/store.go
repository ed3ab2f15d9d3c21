package infra

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"slot-server/server/domain"

	"golang.org/x/time/rate"
)

// PeerStore guarda um token bucket (x/time/rate) por IP de peer e limita a
// taxa de novas conexões de cada um. IPv4 mapeado em IPv6 conta como o
// mesmo peer que o IPv4.
//
// Sweep só remove buckets ociosos que já voltaram a ficar cheios: um bucket
// novo é idêntico, então limpar nunca concede conexões extras.
type PeerStore struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	every time.Duration

	mu    sync.Mutex
	peers map[string]*peerBucket
}

type peerBucket struct {
	lim     *rate.Limiter
	touched time.Time
}

type PeerStoreOption func(*PeerStore)

// WithPeerIdle é o tempo mínimo sem conexões antes de um peer poder ser removido.
func WithPeerIdle(d time.Duration) PeerStoreOption {
	return func(s *PeerStore) { s.idle = d }
}

// WithSweepEvery define o intervalo do StartSweeper (<= 0 desliga).
func WithSweepEvery(d time.Duration) PeerStoreOption {
	return func(s *PeerStore) { s.every = d }
}

func NewPeerStore(rps float64, burst int, opts ...PeerStoreOption) *PeerStore {
	s := &PeerStore{
		limit: rate.Limit(rps),
		burst: burst,
		idle:  15 * time.Minute,
		every: 2 * time.Minute,
		peers: make(map[string]*peerBucket),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PeerStore) RPS() float64 { return float64(s.limit) }
func (s *PeerStore) Burst() int   { return s.burst }

// Get implementa domain.LimiterStore.
func (s *PeerStore) Get(key domain.Key) domain.Limiter {
	id := peerID(key)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.peers[id]
	if b == nil {
		b = &peerBucket{lim: rate.NewLimiter(s.limit, s.burst)}
		s.peers[id] = b
	}
	b.touched = now
	return b.lim
}

func (s *PeerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Sweep remove peers ociosos com bucket cheio e diz quantos saíram.
func (s *PeerStore) Sweep() int {
	now := time.Now()
	full := float64(s.burst)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, b := range s.peers {
		if now.Sub(b.touched) < s.idle {
			continue
		}
		if b.lim.TokensAt(now) < full {
			continue
		}
		delete(s.peers, id)
		removed++
	}
	return removed
}

// StartSweeper roda Sweep periodicamente até ctx acabar.
func (s *PeerStore) StartSweeper(ctx context.Context) {
	if s.every <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(s.every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}

func peerID(key domain.Key) string {
	if ip, err := netip.ParseAddr(string(key)); err == nil {
		return ip.Unmap().String()
	}
	return string(key)
}
