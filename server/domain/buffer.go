package domain

import (
	"fmt"
	"sync"
)

// ClientBuffer acumula tudo que foi lido de um cliente.
//
// Invariante: 0 <= Len() <= Cap(). O buffer só cresce.
// Quem chama Drain precisa segurar o lock do slot que contém o buffer.
type ClientBuffer struct {
	buf       []byte
	bytesRead int
	client    Client

	closeOnce sync.Once
	closeErr  error
}

// NewClientBuffer aloca exatamente initialCapacity bytes (zero é válido:
// a primeira leitura com dados faz o buffer crescer).
func NewClientBuffer(client Client, initialCapacity int) (*ClientBuffer, error) {
	if initialCapacity < 0 {
		return nil, fmt.Errorf("%w: initial capacity %d", ErrAllocation, initialCapacity)
	}
	return &ClientBuffer{
		buf:    make([]byte, initialCapacity),
		client: client,
	}, nil
}

// Drain lê de uma vez todos os bytes disponíveis no socket do cliente.
//
// - Se nada estiver disponível, retorna 0 sem erro.
// - Se o peer fechou e não há nada pendente, retorna 0 e ErrPeerClosed.
// - Uma leitura com contagem diferente da anunciada retorna ErrShortRead.
func (b *ClientBuffer) Drain() (int, error) {
	available, err := b.client.Source.Available()
	if err != nil {
		return 0, err
	}
	if available <= 0 {
		return 0, nil
	}

	b.ensure(available)

	n, err := b.client.Source.Read(b.buf[b.bytesRead : b.bytesRead+available])
	if n > 0 {
		// o que chegou fica no buffer mesmo em caso de erro
		b.bytesRead += n
	}
	if err != nil {
		return n, fmt.Errorf("read %d available bytes from %s: %w", available, b.client.Peer(), err)
	}
	if n != available {
		return n, fmt.Errorf("%w: read %d of %d available bytes from %s", ErrShortRead, n, available, b.client.Peer())
	}
	return n, nil
}

// ensure garante Cap() >= Len()+incoming.
// Dobrar sozinho não basta quando incoming é maior que a capacidade atual.
func (b *ClientBuffer) ensure(incoming int) {
	if len(b.buf)-b.bytesRead >= incoming {
		return
	}
	need := b.bytesRead + incoming
	size := 2 * len(b.buf)
	if size < need {
		size = need
	}
	grown := make([]byte, size)
	copy(grown, b.buf[:b.bytesRead])
	b.buf = grown
}

// Bytes retorna os bytes acumulados. Não modificar: o slice aponta para o buffer interno.
func (b *ClientBuffer) Bytes() []byte { return b.buf[:b.bytesRead] }

func (b *ClientBuffer) Len() int       { return b.bytesRead }
func (b *ClientBuffer) Cap() int       { return len(b.buf) }
func (b *ClientBuffer) Client() Client { return b.client }

// Close fecha o socket do cliente. Chamadas repetidas retornam o primeiro resultado.
func (b *ClientBuffer) Close() error {
	b.closeOnce.Do(func() {
		if b.client.Source != nil {
			b.closeErr = b.client.Source.Close()
		}
	})
	return b.closeErr
}
