package domain

import (
	"context"
	"net"
	"time"
)

// Source é o lado de leitura de uma conexão de cliente.
//
// A implementação concreta (infra) consulta o kernel (FIONREAD) sem bloquear.
// Fakes em memória são usados nos testes.
type Source interface {
	// Available retorna quantos bytes podem ser lidos agora sem bloquear.
	// Retorna ErrPeerClosed quando o peer encerrou e não há nada pendente.
	Available() (int, error)

	// WaitReadable bloqueia até haver bytes (ou fechamento do peer),
	// até o deadline (ErrIdleTimeout) ou até o ctx encerrar.
	// deadline zero significa sem limite.
	WaitReadable(ctx context.Context, deadline time.Time) error

	Read(p []byte) (int, error)
	Close() error
}

// Client identifica um endpoint de rede aceito.
type Client struct {
	Source Source
	Addr   net.Addr
}

// Peer retorna o endereço remoto como string ("unknown" se ausente).
func (c Client) Peer() string {
	if c.Addr == nil {
		return "unknown"
	}
	return c.Addr.String()
}
