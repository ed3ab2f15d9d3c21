package domain

import (
	"errors"
	"fmt"
	"runtime"
)

// Taxonomia de erros.
//
// Erros de setup (socket/bind/listen, config inválida) são do processo inteiro.
// Os demais afetam apenas uma conexão: são logados e a conexão é descartada.
var (
	ErrAllocation    = errors.New("invalid buffer size")
	ErrSocketSetup   = errors.New("socket setup failed")
	ErrAccept        = errors.New("accept failed")
	ErrShortRead     = errors.New("short read")
	ErrPeerClosed    = errors.New("peer closed connection")
	ErrIdleTimeout   = errors.New("idle timeout on claimed slot")
	ErrInvalidConfig = errors.New("invalid config")
)

// SetupError descreve a falha de uma etapa de criação do socket de escuta.
//
// File/Line/Func apontam para onde a falha foi detectada (preenchidos por
// NewSetupError) e aparecem no relatório fatal.
type SetupError struct {
	Op  string // "socket", "bind", "listen", ...
	Err error

	File string
	Line int
	Func string
}

// NewSetupError registra o local de quem chamou.
func NewSetupError(op string, err error) *SetupError {
	e := &SetupError{Op: op, Err: err}
	if pc, file, line, ok := runtime.Caller(1); ok {
		e.File, e.Line = file, line
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.Func = fn.Name()
		}
	}
	return e
}

// Location implementa a interface usada pelo relatório fatal.
func (e *SetupError) Location() (string, int, string) { return e.File, e.Line, e.Func }

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

func (e *SetupError) Is(target error) bool { return target == ErrSocketSetup }

// IsConnectionScoped informa se err afeta só a conexão atual.
func IsConnectionScoped(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrSocketSetup), errors.Is(err, ErrInvalidConfig):
		return false
	case errors.Is(err, ErrAccept),
		errors.Is(err, ErrShortRead),
		errors.Is(err, ErrPeerClosed),
		errors.Is(err, ErrIdleTimeout),
		errors.Is(err, ErrAllocation):
		return true
	}
	return false
}
