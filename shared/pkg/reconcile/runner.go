package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/psantana5/execreaper/pkg/backend"
	"github.com/psantana5/execreaper/pkg/logging"
	"github.com/psantana5/execreaper/pkg/metrics"
	"github.com/psantana5/execreaper/pkg/models"
	"github.com/psantana5/execreaper/pkg/ratelimit"
	"github.com/psantana5/execreaper/pkg/store"
	"github.com/psantana5/execreaper/pkg/tracing"
)

var (
	ErrRunnerClosed       = errors.New("reconcile runner closed")
	ErrAlreadyInitialized = errors.New("reconcile runner already initialized")
)

// DefaultInterval is the time between scheduled passes
const DefaultInterval = 60 * time.Second

// Options tunes the runner
type Options struct {
	Interval       time.Duration `mapstructure:"interval" yaml:"interval"`
	PageSize       int           `mapstructure:"page_size" yaml:"page_size"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	TerminateRPS   float64       `mapstructure:"terminate_rps" yaml:"terminate_rps"` // per project, 0 disables
	TerminateBurst int           `mapstructure:"terminate_burst" yaml:"terminate_burst"`
	// DryRun classifies and reports without sending terminate requests
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// DefaultOptions returns the runner defaults
func DefaultOptions() Options {
	return Options{
		Interval:       DefaultInterval,
		PageSize:       DefaultPageSize,
		Concurrency:    DefaultConcurrency,
		TerminateRPS:   10,
		TerminateBurst: 10,
	}
}

// Option customizes a Runner
type Option func(*Runner)

// WithLogger sets the runner's logger
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics records passes, verdicts and terminations
func WithMetrics(m *metrics.Reaper) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTracer wraps every pass in a span
func WithTracer(p *tracing.Provider) Option {
	return func(r *Runner) { r.tracer = p }
}

// WithTrigger replaces the ticker that drives scheduled passes
func WithTrigger(f TriggerFactory) Option {
	return func(r *Runner) { r.newTrigger = f }
}

type runnerState int

const (
	stateCreated runnerState = iota
	stateInitialized
	stateClosed
)

// PassResult describes one reconciliation pass
type PassResult struct {
	PassID     string                `json:"pass_id"`
	StartedAt  time.Time             `json:"started_at"`
	Duration   time.Duration         `json:"duration"`
	DryRun     bool                  `json:"dry_run"`
	Active     int                   `json:"active_instances"`
	Scanned    int                   `json:"scanned"`
	Verdicts   map[Reason]int        `json:"verdicts"`
	Dangling   []Candidate           `json:"dangling"`
	Terminated TerminationReport     `json:"termination"`
	Skipped    []models.ExecutionRef `json:"duplicates,omitempty"`
}

// Runner periodically reconciles backend executions against the registry
type Runner struct {
	registry store.Registry
	client   backend.Client
	opts     Options

	logger     *logging.Logger
	metrics    *metrics.Reaper
	tracer     *tracing.Provider
	newTrigger TriggerFactory

	reader     *SnapshotReader
	terminator *Terminator

	passMu sync.Mutex

	mu     sync.Mutex
	state  runnerState
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRunner creates a runner in the Created state
func NewRunner(registry store.Registry, client backend.Client, opts Options, options ...Option) *Runner {
	defaults := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}

	r := &Runner{
		registry:   registry,
		client:     client,
		opts:       opts,
		logger:     logging.Discard(),
		newTrigger: NewTickerTrigger,
		stopCh:     make(chan struct{}),
	}
	for _, o := range options {
		o(r)
	}
	if r.tracer == nil {
		r.tracer = tracing.Noop()
	}
	r.logger = r.logger.WithField("component", "reconciler")

	var limiter *ratelimit.Limiter
	if opts.TerminateRPS > 0 {
		limiter = ratelimit.NewLimiter(opts.TerminateRPS, opts.TerminateBurst)
	}
	r.reader = NewSnapshotReader(client, opts.PageSize)
	r.terminator = NewTerminator(client, opts.Concurrency, limiter, r.logger, r.metrics)
	return r
}

// Options returns the effective options
func (r *Runner) Options() Options {
	return r.opts
}

// Init arms the periodic trigger. The first scheduled pass runs one interval
// after Init returns.
func (r *Runner) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateInitialized:
		return ErrAlreadyInitialized
	case stateClosed:
		return ErrRunnerClosed
	}

	trigger := r.newTrigger(r.opts.Interval)
	r.state = stateInitialized
	r.wg.Add(1)
	go r.loop(trigger)

	r.logger.Info("Reconciler started", map[string]interface{}{
		"interval": r.opts.Interval.String(),
		"dry_run":  r.opts.DryRun,
	})
	return nil
}

// Close stops the trigger and waits for an in-flight scheduled pass to
// finish. No scheduled pass starts after Close returns. Closing twice is a no-op.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.state == stateClosed {
		r.mu.Unlock()
		return nil
	}
	r.state = stateClosed
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Reconciler stopped")
	return nil
}

func (r *Runner) loop(trigger Trigger) {
	defer r.wg.Done()
	defer trigger.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-trigger.C():
			if r.closed() {
				return
			}
			// Scheduled passes are not cancelled by Close; an in-flight pass finishes.
			if _, err := r.RunOnePass(context.Background()); err != nil {
				r.logger.Warn("Scheduled pass skipped, retrying next interval", map[string]interface{}{
					"error": err,
				})
			}
		}
	}
}

func (r *Runner) closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == stateClosed
}

// RunOnePass runs one reconciliation pass synchronously and returns once
// every terminate request has settled. It works in any lifecycle state and
// never overlaps another pass. A registry or backend read error aborts the
// pass before any terminate request is sent.
func (r *Runner) RunOnePass(ctx context.Context) (*PassResult, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	result := &PassResult{
		PassID:    uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    r.opts.DryRun,
		Verdicts:  make(map[Reason]int),
	}
	logger := r.logger.WithField("pass_id", result.PassID)

	ctx, span := r.tracer.StartSpan(ctx, "reconcile.pass",
		attribute.String("pass.id", result.PassID),
		attribute.Bool("pass.dry_run", r.opts.DryRun),
	)
	defer span.End()

	err := r.runPass(ctx, result, logger)
	result.Duration = time.Since(result.StartedAt)
	r.metrics.ObservePass(result.Duration, err)

	if err != nil {
		tracing.SetError(ctx, err)
		logger.Error("Reconciliation pass failed", map[string]interface{}{
			"error":    err,
			"duration": result.Duration.String(),
		})
		return nil, fmt.Errorf("pass %s: %w", result.PassID, err)
	}

	span.SetAttributes(
		attribute.Int("pass.scanned", result.Scanned),
		attribute.Int("pass.dangling", len(result.Dangling)),
		attribute.Int("pass.terminate_failures", result.Terminated.Failed()),
	)
	r.metrics.SetPassTotals(result.Scanned, len(result.Dangling))

	logger.Info("Reconciliation pass complete", map[string]interface{}{
		"active":     result.Active,
		"scanned":    result.Scanned,
		"dangling":   len(result.Dangling),
		"terminated": result.Terminated.Terminated,
		"failed":     result.Terminated.Failed(),
		"duration":   result.Duration.String(),
	})
	return result, nil
}

func (r *Runner) runPass(ctx context.Context, result *PassResult, logger *logging.Logger) error {
	view, err := LoadStateView(ctx, r.registry)
	if err != nil {
		return err
	}
	result.Active = view.Len()

	snapshots, err := r.reader.ReadAll(ctx)
	if err != nil {
		return err
	}
	result.Scanned = len(snapshots)
	tracing.AddEvent(ctx, "snapshots.read", attribute.Int("count", len(snapshots)))

	seen := make(map[models.ExecutionRef]bool, len(snapshots))
	for _, snap := range snapshots {
		ref := snap.Ref()
		if seen[ref] {
			result.Skipped = append(result.Skipped, ref)
			continue
		}
		seen[ref] = true

		verdict := Classify(snap, view)
		result.Verdicts[verdict.Reason]++
		r.metrics.RecordVerdict(string(verdict.Action), string(verdict.Reason))

		if verdict.Reason == ReasonMalformedKey {
			logger.Warn("Execution carries a malformed workflow instance key", map[string]interface{}{
				"execution": ref.String(),
			})
		}
		if verdict.Dangling() {
			logger.Debug("Dangling execution found", map[string]interface{}{
				"execution": ref.String(),
				"reason":    string(verdict.Reason),
				"phase":     string(snap.Phase),
			})
			result.Dangling = append(result.Dangling, Candidate{Execution: snap, Reason: verdict.Reason})
		}
	}

	sort.Slice(result.Dangling, func(i, j int) bool {
		return result.Dangling[i].Ref().String() < result.Dangling[j].Ref().String()
	})

	if r.opts.DryRun {
		logger.Info("Dry run, not terminating", map[string]interface{}{"dangling": len(result.Dangling)})
		return nil
	}

	tctx, span := r.tracer.StartSpan(ctx, "reconcile.terminate",
		attribute.Int("terminate.candidates", len(result.Dangling)))
	result.Terminated = r.terminator.TerminateAll(tctx, result.Dangling)
	span.End()
	return nil
}
