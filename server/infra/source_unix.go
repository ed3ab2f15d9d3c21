//go:build linux || darwin || freebsd || netbsd || openbsd

package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"slot-server/server/domain"

	"golang.org/x/sys/unix"
)

// tcpSource implementa domain.Source sobre um socket TCP.
//
// Available nunca bloqueia: espia 1 byte (MSG_PEEK|MSG_DONTWAIT) para distinguir
// "nada ainda" de "peer fechou", e usa FIONREAD para a contagem.
// WaitReadable usa syscall.RawConn.Read, ou seja, o netpoller do runtime
// (sem spin) e respeita o read deadline da conexão.
type tcpSource struct {
	conn net.Conn
	raw  syscall.RawConn
}

// NewTCPSource envolve uma conexão aceita. A conexão precisa expor o descritor
// (net.TCPConn, net.UnixConn).
func NewTCPSource(conn net.Conn) (domain.Source, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("%T does not expose a file descriptor", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("syscall conn: %w", err)
	}
	return &tcpSource{conn: conn, raw: raw}, nil
}

func (s *tcpSource) Available() (int, error) {
	var (
		n      int
		closed bool
		opErr  error
	)
	if err := s.raw.Control(func(fd uintptr) {
		n, closed, opErr = probe(int(fd))
	}); err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, opErr
	}
	if closed {
		return 0, domain.ErrPeerClosed
	}
	return n, nil
}

// aLongTimeAgo é usado para acordar um RawConn.Read pendente.
var aLongTimeAgo = time.Unix(1, 0)

func (s *tcpSource) WaitReadable(ctx context.Context, deadline time.Time) error {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	defer s.conn.SetReadDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	var opErr error
	err := s.raw.Read(func(fd uintptr) bool {
		n, closed, e := probe(int(fd))
		if e != nil {
			opErr = e
			return true
		}
		// false => o runtime espera o fd ficar legível e chama de novo
		return closed || n > 0
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return domain.ErrIdleTimeout
		}
		return err
	}
	return opErr
}

func (s *tcpSource) Read(p []byte) (int, error) { return s.conn.Read(p) }

func (s *tcpSource) Close() error { return s.conn.Close() }

// probe retorna (bytes disponíveis, peer fechou, erro).
func probe(fd int) (int, bool, error) {
	var one [1]byte
	m, _, err := unix.Recvfrom(fd, one[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return 0, false, nil
	case err != nil:
		return 0, false, os.NewSyscallError("recvfrom", err)
	case m == 0:
		return 0, true, nil
	}

	n, err := unix.IoctlGetInt(fd, fionread)
	if err != nil {
		return 0, false, os.NewSyscallError("ioctl FIONREAD", err)
	}
	return n, false, nil
}
