package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/execreaper/pkg/logging"
)

// Manager runs registered cleanup functions on shutdown
type Manager struct {
	shutdownFuncs []namedFunc
	mu            sync.Mutex
	timeout       time.Duration
	logger        *logging.Logger
	doneChan      chan struct{}
	once          sync.Once
}

type namedFunc struct {
	name string
	fn   func(context.Context) error
}

// New creates a shutdown manager whose cleanup phase is bounded by timeout
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	return &Manager{
		timeout:  timeout,
		logger:   logger.WithField("component", "shutdown"),
		doneChan: make(chan struct{}),
	}
}

// Register adds a shutdown function. Functions run in reverse order (LIFO).
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownFuncs = append(m.shutdownFuncs, namedFunc{name: name, fn: fn})
}

// Wait blocks until SIGINT/SIGTERM arrives or ctx is done, then marks the
// manager as shutting down.
func (m *Manager) Wait(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.logger.Info("Received signal, initiating graceful shutdown", map[string]interface{}{
			"signal": sig.String(),
		})
	case <-ctx.Done():
		m.logger.Info("Context done, initiating graceful shutdown")
	}
	m.trigger()
}

func (m *Manager) trigger() {
	m.once.Do(func() {
		close(m.doneChan)
	})
}

// Done returns a channel that is closed when shutdown is initiated
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

// Shutdown executes all registered functions and returns the first error
func (m *Manager) Shutdown() error {
	m.trigger()

	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var firstErr error
	for i := len(m.shutdownFuncs) - 1; i >= 0; i-- {
		nf := m.shutdownFuncs[i]
		if err := nf.fn(ctx); err != nil {
			m.logger.Error("Shutdown step failed", map[string]interface{}{
				"step":  nf.name,
				"error": err,
			})
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", nf.name, err)
			}
			continue
		}
		m.logger.Debug("Shutdown step complete", map[string]interface{}{"step": nf.name})
	}
	m.shutdownFuncs = nil

	m.logger.Info("Graceful shutdown complete")
	return firstErr
}

// StopHTTPServer adapts an http.Server to a shutdown function
func StopHTTPServer(server interface{ Shutdown(context.Context) error }) func(context.Context) error {
	return func(ctx context.Context) error {
		return server.Shutdown(ctx)
	}
}

// CloseResource adapts an io.Closer to a shutdown function
func CloseResource(closer interface{ Close() error }) func(context.Context) error {
	return func(ctx context.Context) error {
		return closer.Close()
	}
}
