// Package grpc runs the gRPC health endpoint used by orchestrators.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to health clients alongside the overall "" status.
const ServiceName = "visadesk.auth"

const defaultProbeInterval = 10 * time.Second

// Pinger reports whether the backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthServer struct {
	address  string
	logger   logging.Logger
	pinger   Pinger
	interval time.Duration
	health   *health.Server
}

type Option func(*HealthServer)

// WithPinger makes serving status follow store reachability.
func WithPinger(p Pinger) Option {
	return func(s *HealthServer) { s.pinger = p }
}

func WithProbeInterval(d time.Duration) Option {
	return func(s *HealthServer) {
		if d > 0 {
			s.interval = d
		}
	}
}

func NewHealthServer(address string, l logging.Logger, opts ...Option) *HealthServer {
	s := &HealthServer{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		interval: defaultProbeInterval,
		health:   health.NewServer(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// probe sets the serving status from one store ping.
func (s *HealthServer) probe(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		pctx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.pinger.PingContext(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "store ping failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *HealthServer) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

func (s *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *HealthServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
