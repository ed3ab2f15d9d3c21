// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - SlotTable: array fixo de slots, um sync.Mutex (TryLock) por slot
//   - Source TCP: FIONREAD + MSG_PEEK via golang.org/x/sys/unix, espera pelo netpoller
//   - Listen: socket/bind/listen com backlog explícito
//   - PeerStore: token bucket por peer usando golang.org/x/time/rate
//   - Stats: memória, Redis, Prometheus e fan-out
package infra
