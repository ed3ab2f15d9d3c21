package infra

import (
	"context"
	"sync"

	"slot-server/server/domain"
)

type Counters struct {
	Admitted int64
	Rejected int64
	Drained  int64
	Failed   int64
	Bytes    int64
}

func (c *Counters) add(ev domain.StatsEvent) {
	switch ev.Kind {
	case domain.EventAdmitted:
		c.Admitted++
	case domain.EventRejected:
		c.Rejected++
	case domain.EventDrained:
		c.Drained++
	case domain.EventFailed:
		c.Failed++
	}
	c.Bytes += int64(ev.Bytes)
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	byKey      map[domain.Key]Counters
	peakActive int

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byKey: make(map[domain.Key]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev)
	if ev.Active > s.peakActive {
		s.peakActive = ev.Active
	}
	if s.trackKeys && ev.Key != "" {
		c := s.byKey[ev.Key]
		c.add(ev)
		s.byKey[ev.Key] = c
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// PeakActive é o maior número de clientes em atendimento visto em um evento.
func (s *MemoryStatsStore) PeakActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakActive
}

func (s *MemoryStatsStore) ByKey() map[domain.Key]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Key]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v
	}
	return out
}
