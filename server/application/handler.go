package application

import (
	"context"
	"net"
	"time"

	"slot-server/server/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "slot-server"

// ProcessFunc recebe os bytes acumulados de um cliente.
// data aponta para o buffer do slot e só é válido durante a chamada.
type ProcessFunc func(ctx context.Context, peer net.Addr, data []byte) error

// Handler atende um cliente já instalado em um slot: espera dados,
// drena até ter lido pelo menos um byte e entrega o buffer para Process.
//
// Não fecha o cliente nem libera o slot; isso é do dono do slot.
type Handler struct {
	// IdleTimeout limita quanto tempo um slot fica ocupado sem receber nada.
	// 0 desliga o limite.
	IdleTimeout time.Duration
	Process     ProcessFunc
	// Tracer padrão: otel.Tracer("slot-server") do provider global.
	Tracer trace.Tracer
}

// Serve retorna quantos bytes foram acumulados no buffer.
func (h Handler) Serve(ctx context.Context, slot int, buf *domain.ClientBuffer) (int, error) {
	tracer := h.Tracer
	if tracer == nil {
		tracer = otel.Tracer(defaultTracerName)
	}
	ctx, span := tracer.Start(ctx, "slotserver.serve",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int("slot", slot),
			attribute.String("peer", buf.Client().Peer()),
		),
	)
	defer span.End()

	err := h.serve(ctx, buf)
	span.SetAttributes(attribute.Int("bytes", buf.Len()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return buf.Len(), err
	}
	return buf.Len(), nil
}

func (h Handler) serve(ctx context.Context, buf *domain.ClientBuffer) error {
	var deadline time.Time
	if h.IdleTimeout > 0 {
		deadline = time.Now().Add(h.IdleTimeout)
	}
	src := buf.Client().Source

	for {
		n, err := buf.Drain()
		if err != nil {
			return err
		}
		if n > 0 {
			break
		}
		if err := src.WaitReadable(ctx, deadline); err != nil {
			return err
		}
	}

	if h.Process == nil {
		return nil
	}
	return h.Process(ctx, buf.Client().Addr, buf.Bytes())
}
