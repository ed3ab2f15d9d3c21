//go:build linux || darwin || freebsd || netbsd || openbsd

package infra

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"slot-server/server/domain"
)

// pair devolve (lado do servidor como Source, lado do cliente).
func pair(t *testing.T) (domain.Source, net.Conn, net.Conn) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0", 16)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	src, err := NewTCPSource(conn)
	if err != nil {
		t.Fatalf("NewTCPSource: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		_ = conn.Close()
	})
	return src, conn, client
}

func waitAndDrain(t *testing.T, buf *domain.ClientBuffer, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for buf.Len() < want {
		if err := buf.Client().Source.WaitReadable(context.Background(), deadline); err != nil {
			t.Fatalf("WaitReadable: %v (have %d of %d bytes)", err, buf.Len(), want)
		}
		if _, err := buf.Drain(); err != nil {
			t.Fatalf("Drain: %v", err)
		}
	}
}

func TestTCPSource_TenBytes(t *testing.T) {
	src, conn, client := pair(t)
	buf, err := domain.NewClientBuffer(domain.Client{Source: src, Addr: conn.RemoteAddr()}, 1024)
	if err != nil {
		t.Fatalf("NewClientBuffer: %v", err)
	}

	if n, err := buf.Drain(); n != 0 || err != nil {
		t.Fatalf("expected (0, nil) before any write, got (%d, %v)", n, err)
	}

	sent := []byte("0123456789")
	if _, err := client.Write(sent); err != nil {
		t.Fatalf("Write: %v", err)
	}
	waitAndDrain(t, buf, len(sent))

	if !bytes.Equal(buf.Bytes(), sent) {
		t.Fatalf("expected %q, got %q", sent, buf.Bytes())
	}
}

func TestTCPSource_AvailableCountsQueuedBytesWithoutConsuming(t *testing.T) {
	src, _, client := pair(t)

	if n, err := src.Available(); n != 0 || err != nil {
		t.Fatalf("expected (0, nil) before any write, got (%d, %v)", n, err)
	}
	if _, err := client.Write([]byte("abcdefg")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := src.WaitReadable(context.Background(), time.Now().Add(2*time.Second)); err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	n, err := src.Available()
	for err == nil && n < 7 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		n, err = src.Available()
	}
	if err != nil || n != 7 {
		t.Fatalf("expected (7, nil), got (%d, %v)", n, err)
	}
	// contar não consome
	if again, err := src.Available(); again != 7 || err != nil {
		t.Fatalf("expected (7, nil) on second call, got (%d, %v)", again, err)
	}

	got := make([]byte, 7)
	if _, err := src.Read(got); err != nil || string(got) != "abcdefg" {
		t.Fatalf("Read: %q, %v", got, err)
	}
}

func TestTCPSource_BurstGrowsBuffer(t *testing.T) {
	src, conn, client := pair(t)
	buf, err := domain.NewClientBuffer(domain.Client{Source: src, Addr: conn.RemoteAddr()}, 1024)
	if err != nil {
		t.Fatalf("NewClientBuffer: %v", err)
	}

	sent := make([]byte, 2000)
	for i := range sent {
		sent[i] = byte(i * 7)
	}
	if _, err := client.Write(sent); err != nil {
		t.Fatalf("Write: %v", err)
	}
	waitAndDrain(t, buf, len(sent))

	if buf.Cap() < 2000 {
		t.Fatalf("expected cap >= 2000, got %d", buf.Cap())
	}
	if !bytes.Equal(buf.Bytes(), sent) {
		t.Fatalf("received bytes differ from sent bytes")
	}
}

func TestTCPSource_PeerCloseIsTerminal(t *testing.T) {
	src, _, client := pair(t)
	_ = client.Close()

	if err := src.WaitReadable(context.Background(), time.Now().Add(2*time.Second)); err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}
	if _, err := src.Available(); !errors.Is(err, domain.ErrPeerClosed) {
		t.Fatalf("expected ErrPeerClosed, got %v", err)
	}
}

func TestTCPSource_WaitReadableIdleTimeout(t *testing.T) {
	src, _, _ := pair(t)

	start := time.Now()
	err := src.WaitReadable(context.Background(), time.Now().Add(30*time.Millisecond))
	if !errors.Is(err, domain.ErrIdleTimeout) {
		t.Fatalf("expected ErrIdleTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("idle timeout took too long")
	}
}

func TestTCPSource_WaitReadableHonorsContext(t *testing.T) {
	src, _, _ := pair(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := src.WaitReadable(ctx, time.Time{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestListen_AddressInUseIsSetupError(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", 8)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	_, err = Listen(ln.Addr().String(), 8)
	if !errors.Is(err, domain.ErrSocketSetup) {
		t.Fatalf("expected ErrSocketSetup, got %v", err)
	}
	var se *domain.SetupError
	if !errors.As(err, &se) || se.Op == "" {
		t.Fatalf("expected *SetupError with op, got %#v", err)
	}
}
