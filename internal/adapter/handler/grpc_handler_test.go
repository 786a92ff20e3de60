package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type mockPinger struct {
	mu  sync.Mutex
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockPinger) set(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func servingStatus(t *testing.T, srv *health.Server) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: CartServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthReporter_Check(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := health.NewServer()
	pinger := &mockPinger{}
	reporter := NewHealthReporter(srv, pinger, time.Minute, log)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, reporter.Check(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, srv))

	pinger.set(errors.New("connection refused"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, reporter.Check(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, srv))
}

func TestHealthReporter_RunStopsOnCancel(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := health.NewServer()
	reporter := NewHealthReporter(srv, &mockPinger{}, 10*time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reporter.Run(ctx) }()

	assert.Eventually(t, func() bool {
		resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: CartServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, srv))
}
