package http

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/freekieb7/hello/engine"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotListening     = errors.New("http: server is not listening")
	ErrAlreadyListening = errors.New("http: server is already listening")
)

type Server struct {
	// Name is sent in the Server header
	Name    string
	Handler Handler
	Threads int
	Backlog int

	engine         *engine.Engine
	listener       *Listener
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	metrics        *metrics
}

type Option func(*Server)

// WithThreads sets the number of engine workers, at least 1.
func WithThreads(threads int) Option {
	return func(s *Server) {
		s.Threads = max(threads, 1)
	}
}

func WithBacklog(backlog int) Option {
	return func(s *Server) {
		s.Backlog = backlog
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerProvider = tp
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) {
		s.meterProvider = mp
	}
}

func NewServer(name string, handler Handler, opts ...Option) *Server {
	if name == "" {
		name = DefaultServerName
	}

	s := &Server{
		Name:    name,
		Handler: handler,
		Threads: DefaultThreads,
		Backlog: defaultBacklog(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = otelslog.NewLogger(instrumentationName)
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)

	m, err := newMetrics(s.meterProvider)
	if err != nil {
		otel.Handle(err)
		m, _ = newMetrics(noop.NewMeterProvider())
	}
	s.metrics = m

	s.engine = engine.New(engine.WithLogger(s.logger))

	return s
}

// Listen binds addr. The server does not accept traffic until Serve runs
// the engine.
func (s *Server) Listen(addr string) error {
	if s.listener != nil {
		return ErrAlreadyListening
	}

	listener := &Listener{
		addr:    addr,
		backlog: s.Backlog,
		engine:  s.engine,
		handle:  s.serveConn,
		logger:  s.logger,
		metrics: s.metrics,
	}
	if err := listener.Start(); err != nil {
		return err
	}

	s.listener = listener
	return nil
}

// Serve runs the engine on s.Threads workers, the caller being one of them,
// until ctx is done. The listener is closed on return.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return ErrNotListening
	}
	defer s.listener.Close()

	s.logger.InfoContext(ctx, "serving", "addr", s.listener.Address().String(), "threads", s.Threads)

	return s.engine.Run(ctx, s.Threads)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}

	return s.Serve(ctx)
}

// Shutdown stops accepting. Connections already accepted keep running for as
// long as the engine does.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Address()
}

func (s *Server) serveConn(conn net.Conn) {
	newConnection(s, conn).Start()
}
