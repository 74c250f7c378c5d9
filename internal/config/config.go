package config

import (
	"time"

	"github.com/psantana5/execreaper/pkg/backend"
	"github.com/psantana5/execreaper/pkg/logging"
	"github.com/psantana5/execreaper/pkg/reconcile"
	"github.com/psantana5/execreaper/pkg/store"
	"github.com/psantana5/execreaper/pkg/tracing"
)

// Config is the complete execreaper configuration
type Config struct {
	Backend   backend.HTTPConfig `mapstructure:"backend" yaml:"backend"`
	Registry  store.Config       `mapstructure:"registry" yaml:"registry"`
	Reconcile reconcile.Options  `mapstructure:"reconcile" yaml:"reconcile"`
	Server    ServerConfig       `mapstructure:"server" yaml:"server"`
	Log       logging.Config     `mapstructure:"log" yaml:"log"`
	Tracing   tracing.Config     `mapstructure:"tracing" yaml:"tracing"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ServerConfig configures the operations HTTP endpoint of the daemon
type ServerConfig struct {
	// Addr is the listen address for /health and /metrics; empty disables the server
	Addr string `mapstructure:"addr" yaml:"addr"`
	// EnableTrigger exposes POST /reconcile for on-demand passes
	EnableTrigger bool `mapstructure:"enable_trigger" yaml:"enable_trigger"`
	// TriggerRPS limits on-demand passes per client
	TriggerRPS float64 `mapstructure:"trigger_rps" yaml:"trigger_rps"`
	// TriggerTokenHashes are bcrypt hashes of the bearer tokens accepted by POST /reconcile
	TriggerTokenHashes []string `mapstructure:"trigger_token_hashes" yaml:"trigger_token_hashes"`
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.Backend.APIKey != "" {
		c.Backend.APIKey = "********"
	}
	if c.Registry.DSN != "" {
		c.Registry.DSN = "********"
	}
	return c
}
