package server

import (
	"context"
	"log"
	"net"
	"strings"

	"slot-server/server/application"
	"slot-server/server/domain"

	"github.com/fatih/color"
)

// logEvent escreve uma linha por evento de conexão, com cor por tipo.
func (s *Server) logEvent(kind domain.EventKind, format string, args ...any) {
	line := strings.ToUpper(string(kind)) + " " + format
	switch kind {
	case domain.EventAdmitted:
		s.logger.Print(color.CyanString(line, args...))
	case domain.EventDrained:
		s.logger.Print(color.GreenString(line, args...))
	case domain.EventRejected:
		s.logger.Print(color.YellowString(line, args...))
	case domain.EventFailed:
		s.logger.Print(color.RedString(line, args...))
	default:
		s.logger.Printf(line, args...)
	}
}

// LogBytes é o Process padrão: só registra quantos bytes chegaram.
func LogBytes(logger *log.Logger) application.ProcessFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(_ context.Context, peer net.Addr, data []byte) error {
		logger.Printf("received %d bytes from %s", len(data), peer)
		return nil
	}
}
