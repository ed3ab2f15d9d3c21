package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"slot-server/server/application"
	"slot-server/server/domain"
	"slot-server/server/infra"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Server é criado uma vez (bind + listen) e atende até Run retornar.
type Server struct {
	cfg   Config
	ln    net.Listener
	table *infra.SlotTable

	// queue carrega índices de slots já adquiridos; capacidade = Requests,
	// então o acceptor nunca bloqueia ao enfileirar.
	queue chan int

	// serving conta slots entregues a um worker; não inclui o slot que o
	// acceptor mantém adquirido enquanto espera em Accept.
	serving atomic.Int64

	admission application.AdmissionService
	limits    application.Service
	peers     *infra.PeerStore
	handler   application.Handler
	stats     domain.StatsStore
	logger    *log.Logger

	// statsTimeout limita cada Record; stats lentos não seguram o acceptor.
	statsTimeout time.Duration
}

const defaultStatsTimeout = 250 * time.Millisecond

type Option func(*Server)

// WithProcess troca o tratamento dos bytes recebidos (padrão: LogBytes).
func WithProcess(fn application.ProcessFunc) Option {
	return func(s *Server) { s.handler.Process = fn }
}

func WithStats(stats domain.StatsStore) Option {
	return func(s *Server) { s.stats = stats }
}

// WithStatsTimeout define o tempo máximo de cada gravação de stats (<= 0: sem limite).
func WithStatsTimeout(d time.Duration) Option {
	return func(s *Server) { s.statsTimeout = d }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) { s.handler.Tracer = tracer }
}

// Initialize valida a config, abre o socket de escuta e aloca a tabela de slots.
// Erros de socket saem como *domain.SetupError (errors.Is(err, domain.ErrSocketSetup)).
func Initialize(cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:          cfg,
		table:        infra.NewSlotTable(cfg.Requests),
		queue:        make(chan int, cfg.Requests),
		handler:      application.Handler{IdleTimeout: cfg.IdleTimeout},
		statsTimeout: defaultStatsTimeout,
		logger:       log.Default(),
	}
	s.admission = application.AdmissionService{Table: s.table, ClaimTimeout: cfg.ClaimTimeout}
	if cfg.RateRPS > 0 {
		s.peers = infra.NewPeerStore(cfg.RateRPS, cfg.RateBurst)
		s.limits = application.Service{Store: s.peers}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handler.Process == nil {
		s.handler.Process = LogBytes(s.logger)
	}

	ln, err := infra.Listen(cfg.Address, cfg.Backlog)
	if err != nil {
		return nil, fmt.Errorf("initialize server: %w", err)
	}
	s.ln = ln
	return s, nil
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

func (s *Server) Config() Config { return s.cfg }

// Active é o número de clientes em atendimento agora (enfileirados ou em um worker).
func (s *Server) Active() int { return int(s.serving.Load()) }

// Close fecha o socket de escuta; Run retorna em seguida.
func (s *Server) Close() error { return s.ln.Close() }

// Run executa o acceptor e cfg.Workers workers até ctx encerrar ou o listener fechar.
// Clientes em atendimento são interrompidos (sem drenagem); o socket de escuta é fechado.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	defer stop()

	if s.peers != nil {
		s.logger.Printf("peer rate limit: rps=%.3f burst=%d", s.peers.RPS(), s.peers.Burst())
		s.peers.StartSweeper(ctx)
	}

	for w := 0; w < s.cfg.Workers; w++ {
		g.Go(func() error {
			s.work(ctx)
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		return s.accept(ctx)
	})

	err := g.Wait()
	s.abandonQueued()
	return err
}

func (s *Server) accept(ctx context.Context) error {
	var tempDelay time.Duration
	for {
		i, ok := s.admission.Claim(ctx)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Printf("all %d slots busy for %s", s.table.Len(), s.cfg.ClaimTimeout)
			continue
		}

		conn, err := s.ln.Accept()
		if err != nil {
			s.table.Release(i)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			err = fmt.Errorf("%w: %w", domain.ErrAccept, err)
			s.record(ctx, domain.StatsEvent{Kind: domain.EventFailed, Slot: i})
			s.logEvent(domain.EventFailed, "slot=%d: %v", i, err)

			// mesma espera progressiva do net/http para erros repetidos (ex.: EMFILE)
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else if tempDelay *= 2; tempDelay > time.Second {
				tempDelay = time.Second
			}
			select {
			case <-time.After(tempDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		tempDelay = 0
		s.admit(ctx, i, conn)
	}
}

// admit recebe o slot i já adquirido. Ou entrega i para a fila, ou libera.
func (s *Server) admit(ctx context.Context, i int, conn net.Conn) {
	key := PeerKey(conn.RemoteAddr())

	drop := func(kind domain.EventKind, format string, args ...any) {
		_ = conn.Close()
		s.table.Release(i)
		s.record(ctx, domain.StatsEvent{Kind: kind, Key: key, Slot: i})
		s.logEvent(kind, format, args...)
	}

	if !s.limits.Decide(key).Allowed {
		drop(domain.EventRejected, "peer=%s slot=%d: connection rate exceeded", conn.RemoteAddr(), i)
		return
	}

	src, err := infra.NewTCPSource(conn)
	if err != nil {
		drop(domain.EventFailed, "peer=%s slot=%d: %v", conn.RemoteAddr(), i, err)
		return
	}
	buf, err := domain.NewClientBuffer(domain.Client{Source: src, Addr: conn.RemoteAddr()}, s.cfg.InitialBufferSize)
	if err != nil {
		drop(domain.EventFailed, "peer=%s slot=%d: %v", conn.RemoteAddr(), i, err)
		return
	}

	s.table.Install(i, buf)
	s.serving.Add(1)
	s.record(ctx, domain.StatsEvent{Kind: domain.EventAdmitted, Key: key, Slot: i})
	s.logEvent(domain.EventAdmitted, "peer=%s slot=%d active=%d", conn.RemoteAddr(), i, s.Active())

	// a partir daqui o worker que receber i é o dono do slot
	s.queue <- i
}

func (s *Server) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case i := <-s.queue:
			s.serve(ctx, i)
		}
	}
}

func (s *Server) serve(ctx context.Context, i int) {
	buf := s.table.Buffer(i)
	defer s.serving.Add(-1)
	defer s.table.Release(i)
	defer buf.Close()

	key := PeerKey(buf.Client().Addr)
	n, err := s.handler.Serve(ctx, i, buf)
	if err != nil {
		s.record(ctx, domain.StatsEvent{Kind: domain.EventFailed, Key: key, Slot: i, Bytes: n})
		switch {
		case ctx.Err() != nil:
		case domain.IsConnectionScoped(err):
			s.logEvent(domain.EventFailed, "peer=%s slot=%d bytes=%d: connection dropped: %v", buf.Client().Peer(), i, n, err)
		default:
			// erro do Process ou do socket fora da taxonomia
			s.logEvent(domain.EventFailed, "peer=%s slot=%d bytes=%d: unexpected error: %v", buf.Client().Peer(), i, n, err)
		}
		return
	}
	s.record(ctx, domain.StatsEvent{Kind: domain.EventDrained, Key: key, Slot: i, Bytes: n})
	s.logEvent(domain.EventDrained, "peer=%s slot=%d bytes=%d", buf.Client().Peer(), i, n)
}

// abandonQueued fecha clientes que ficaram na fila quando os workers pararam.
func (s *Server) abandonQueued() {
	for {
		select {
		case i := <-s.queue:
			_ = s.table.Buffer(i).Close()
			s.table.Release(i)
			s.serving.Add(-1)
		default:
			return
		}
	}
}

// record é best-effort: erro ou timeout de stats só vira log.
func (s *Server) record(ctx context.Context, ev domain.StatsEvent) {
	if s.stats == nil {
		return
	}
	ev.Active = s.Active()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	rctx := context.WithoutCancel(ctx)
	if s.statsTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, s.statsTimeout)
		defer cancel()
	}
	if err := s.stats.Record(rctx, ev); err != nil {
		s.logger.Printf("stats record error: %v", err)
	}
}

// PeerKey identifica o peer pelo host (sem porta) para o limite por IP.
func PeerKey(addr net.Addr) domain.Key {
	if addr == nil {
		return "unknown"
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return domain.Key(tcp.IP.String())
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err == nil && host != "" {
		return domain.Key(host)
	}
	return domain.Key(addr.String())
}
