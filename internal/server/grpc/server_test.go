package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakePinger struct {
	fail atomic.Bool
}

func (p *fakePinger) PingContext(context.Context) error {
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func startBufServer(t *testing.T, s *HealthServer) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop within timeout after context cancel")
		}
	})
	return healthpb.NewHealthClient(conn)
}

func TestHealth_ServingWithoutPinger(t *testing.T) {
	client := startBufServer(t, NewHealthServer("bufnet", logging.Nop()))

	for _, svc := range []string{"", ServiceName} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}

func TestHealth_FollowsStore(t *testing.T) {
	p := &fakePinger{}
	p.fail.Store(true)

	s := NewHealthServer("bufnet", logging.Nop(), WithPinger(p), WithProbeInterval(20*time.Millisecond))
	client := startBufServer(t, s)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	p.fail.Store(false)
	assert.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	s := NewHealthServer("127.0.0.1:99999", logging.Nop())
	assert.Error(t, s.Run(context.Background()))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	s := NewHealthServer("127.0.0.1:0", logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}
