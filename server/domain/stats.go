package domain

import (
	"context"
	"time"
)

type EventKind string

const (
	EventAdmitted EventKind = "admitted"
	EventRejected EventKind = "rejected"
	EventDrained  EventKind = "drained"
	EventFailed   EventKind = "failed"
)

// StatsEvent representa algo que aconteceu com uma conexão.
//
// Observação: cuidado com cardinalidade ao persistir Key (um valor por IP).
type StatsEvent struct {
	Kind  EventKind
	Key   Key
	Slot  int
	Bytes int
	// Active é o número de clientes em atendimento no momento do evento.
	Active int

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de conexão.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Quem chama trata erro como best-effort (não derruba a conexão).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
