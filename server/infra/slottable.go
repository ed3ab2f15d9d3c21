package infra

import (
	"fmt"
	"sync"
	"sync/atomic"

	"slot-server/server/domain"
)

type slot struct {
	mu   sync.Mutex
	held atomic.Bool
	buf  *domain.ClientBuffer
}

// SlotTable é um array fixo de slots. Implementa domain.SlotTable.
//
// Violações de protocolo (índice fora do intervalo, release sem claim,
// Install/Buffer sem ser dono) são bugs do chamador e geram panic.
type SlotTable struct {
	slots  []slot
	active atomic.Int64
	freed  chan struct{}
}

func NewSlotTable(n int) *SlotTable {
	return &SlotTable{
		slots: make([]slot, n),
		freed: make(chan struct{}, 1),
	}
}

func (t *SlotTable) Len() int { return len(t.slots) }

func (t *SlotTable) Active() int { return int(t.active.Load()) }

func (t *SlotTable) Freed() <-chan struct{} { return t.freed }

func (t *SlotTable) TryClaim(i int) bool {
	s := t.at(i)
	if !s.mu.TryLock() {
		return false
	}
	s.held.Store(true)
	t.active.Add(1)
	return true
}

func (t *SlotTable) Release(i int) {
	s := t.at(i)
	if !s.held.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("slot table: release of unclaimed slot %d", i))
	}
	t.active.Add(-1)
	s.mu.Unlock()

	select {
	case t.freed <- struct{}{}:
	default:
	}
}

// Install troca o buffer do slot. O buffer anterior deixa de ser referenciado.
func (t *SlotTable) Install(i int, buf *domain.ClientBuffer) {
	s := t.owned(i)
	s.buf = buf
}

func (t *SlotTable) Buffer(i int) *domain.ClientBuffer {
	return t.owned(i).buf
}

func (t *SlotTable) at(i int) *slot {
	if i < 0 || i >= len(t.slots) {
		panic(fmt.Sprintf("slot table: index %d out of range [0,%d)", i, len(t.slots)))
	}
	return &t.slots[i]
}

func (t *SlotTable) owned(i int) *slot {
	s := t.at(i)
	if !s.held.Load() {
		panic(fmt.Sprintf("slot table: slot %d used without claim", i))
	}
	return s
}
