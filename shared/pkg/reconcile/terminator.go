package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/psantana5/execreaper/pkg/backend"
	"github.com/psantana5/execreaper/pkg/logging"
	"github.com/psantana5/execreaper/pkg/metrics"
	"github.com/psantana5/execreaper/pkg/models"
	"github.com/psantana5/execreaper/pkg/ratelimit"
)

// TerminateCause is sent with every terminate request so the backend records
// who aborted the execution.
const TerminateCause = "terminated by execreaper: dangling execution"

// DefaultConcurrency bounds in-flight terminate requests within one pass
const DefaultConcurrency = 8

// Candidate is an execution the classifier marked dangling
type Candidate struct {
	Execution models.ExecutionSnapshot `json:"execution"`
	Reason    Reason                   `json:"reason"`
}

// Ref returns the identity used to terminate the execution
func (c Candidate) Ref() models.ExecutionRef {
	return c.Execution.Ref()
}

// TerminationFailure describes one terminate request that failed
type TerminationFailure struct {
	Execution models.ExecutionRef `json:"execution"`
	Reason    Reason              `json:"reason"`
	Error     string              `json:"error"`
}

// TerminationReport summarizes the terminate requests of one pass
type TerminationReport struct {
	Attempted  int                  `json:"attempted"`
	Terminated int                  `json:"terminated"`
	Failures   []TerminationFailure `json:"failures,omitempty"`
}

// Failed returns the number of failed terminate requests
func (r TerminationReport) Failed() int {
	return len(r.Failures)
}

// Terminator sends terminate requests for dangling executions
type Terminator struct {
	client      backend.Client
	concurrency int
	limiter     *ratelimit.Limiter
	logger      *logging.Logger
	metrics     *metrics.Reaper
}

// NewTerminator creates a terminator. limiter may be nil for no rate limit;
// it is keyed by backend project.
func NewTerminator(client backend.Client, concurrency int, limiter *ratelimit.Limiter, logger *logging.Logger, m *metrics.Reaper) *Terminator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Terminator{
		client:      client,
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logger,
		metrics:     m,
	}
}

// TerminateAll issues one terminate request per candidate and returns once
// every request has settled. A failed request never stops the others; it is
// logged and reported, and the execution is picked up again next pass.
func (t *Terminator) TerminateAll(ctx context.Context, candidates []Candidate) TerminationReport {
	report := TerminationReport{Attempted: len(candidates)}
	if len(candidates) == 0 {
		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(t.concurrency)

	for _, c := range candidates {
		c := c
		g.Go(func() error {
			err := t.terminate(ctx, c)
			t.metrics.RecordTermination(err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.logger.Error("Failed to terminate dangling execution", map[string]interface{}{
					"execution": c.Ref().String(),
					"reason":    string(c.Reason),
					"error":     err,
				})
				report.Failures = append(report.Failures, TerminationFailure{
					Execution: c.Ref(),
					Reason:    c.Reason,
					Error:     err.Error(),
				})
				return nil
			}
			t.logger.Info("Terminated dangling execution", map[string]interface{}{
				"execution": c.Ref().String(),
				"reason":    string(c.Reason),
			})
			report.Terminated++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Execution.String() < report.Failures[j].Execution.String()
	})
	return report
}

func (t *Terminator) terminate(ctx context.Context, c Candidate) error {
	ref := c.Ref()
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx, ref.Scope.Project); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return t.client.TerminateExecution(ctx, ref.Scope.Project, ref.Scope.Domain, ref.Name, TerminateCause)
}
