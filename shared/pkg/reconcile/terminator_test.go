package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/execreaper/pkg/backend"
	"github.com/psantana5/execreaper/pkg/logging"
	"github.com/psantana5/execreaper/pkg/metrics"
	"github.com/psantana5/execreaper/pkg/models"
	"github.com/psantana5/execreaper/pkg/ratelimit"
)

// stubClient serves a fixed execution list and counts concurrent terminate calls
type stubClient struct {
	scopes     []models.Scope
	executions []models.ExecutionSnapshot
	delay      time.Duration

	inFlight    int32
	maxInFlight int32

	mu    sync.Mutex
	calls []string
}

func (s *stubClient) ListScopes(ctx context.Context) ([]models.Scope, error) {
	return s.scopes, nil
}

func (s *stubClient) ListExecutions(ctx context.Context, req backend.ListRequest) (*backend.ExecutionPage, error) {
	return &backend.ExecutionPage{Executions: s.executions}, nil
}

func (s *stubClient) TerminateExecution(ctx context.Context, project, domain, name, cause string) error {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&s.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&s.maxInFlight, peak, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubClient) terminateCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func candidates(n int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			Execution: execution(fmt.Sprintf("e%02d", i), models.PhaseRunning, nil),
			Reason:    ReasonInstanceNotActive,
		}
	}
	return out
}

func TestTerminatorFailureDoesNotBlockOthers(t *testing.T) {
	client := backend.NewMemoryClient()
	for _, c := range candidates(5) {
		client.AddExecution(c.Execution)
	}
	boom := errors.New("backend rejected")
	client.FailTerminate("e02", boom)

	terminator := NewTerminator(client, 2, nil, logging.Discard(), metrics.NewReaper(nil))
	report := terminator.TerminateAll(context.Background(), candidates(5))

	assert.Equal(t, 5, report.Attempted)
	assert.Equal(t, 4, report.Terminated)
	require.Equal(t, 1, report.Failed())
	assert.Equal(t, "e02", report.Failures[0].Execution.Name)
	assert.Equal(t, ReasonInstanceNotActive, report.Failures[0].Reason)
	assert.Contains(t, report.Failures[0].Error, "backend rejected")

	calls := client.TerminateCalls()
	require.Len(t, calls, 5)
	for _, call := range calls {
		assert.Equal(t, TerminateCause, call.Cause)
		assert.Equal(t, testScope, call.Ref.Scope)
	}
}

func TestTerminatorBoundsConcurrency(t *testing.T) {
	client := &stubClient{delay: 10 * time.Millisecond}
	terminator := NewTerminator(client, 3, nil, logging.Discard(), nil)

	report := terminator.TerminateAll(context.Background(), candidates(12))
	assert.Equal(t, 12, report.Terminated)
	assert.Len(t, client.terminateCalls(), 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&client.maxInFlight), int32(3))
}

func TestTerminatorNoCandidates(t *testing.T) {
	client := backend.NewMemoryClient()
	report := NewTerminator(client, 0, nil, logging.Discard(), nil).TerminateAll(context.Background(), nil)
	assert.Equal(t, TerminationReport{}, report)
	assert.Empty(t, client.TerminateCalls())
}

func TestTerminatorRateLimitHonoursContext(t *testing.T) {
	client := &stubClient{}
	limiter := ratelimit.NewLimiter(0.001, 1)
	terminator := NewTerminator(client, 4, limiter, logging.Discard(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report := terminator.TerminateAll(ctx, candidates(3))
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 1, report.Terminated)
	assert.Equal(t, 2, report.Failed())
}
