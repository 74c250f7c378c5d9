package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError describes one invalid setting
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks settings the daemon cannot start without. requireBackend is
// false for commands that never contact the backend.
func (c *Config) Validate(requireBackend bool) error {
	var errs ValidationErrors
	add := func(field string, value interface{}, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if requireBackend {
		if c.Backend.URL == "" {
			add("backend.url", c.Backend.URL, "is required")
		} else if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
			add("backend.url", c.Backend.URL, "must be an absolute http(s) URL")
		}
	}
	if (c.Backend.TLS.CertFile == "") != (c.Backend.TLS.KeyFile == "") {
		add("backend.tls", c.Backend.TLS.CertFile, "cert_file and key_file must be set together")
	}
	if c.Backend.Retry.MaxRetries < 0 {
		add("backend.retry.max_retries", c.Backend.Retry.MaxRetries, "must not be negative")
	}

	switch c.Registry.Type {
	case "memory", "sqlite", "":
	case "postgres", "postgresql":
		if c.Registry.DSN == "" {
			add("registry.dsn", "", "is required for postgres")
		}
	default:
		add("registry.type", c.Registry.Type, "must be memory, sqlite or postgres")
	}

	if c.Reconcile.Interval <= 0 {
		add("reconcile.interval", c.Reconcile.Interval, "must be positive")
	}
	if c.Reconcile.PageSize <= 0 {
		add("reconcile.page_size", c.Reconcile.PageSize, "must be positive")
	}
	if c.Reconcile.Concurrency <= 0 {
		add("reconcile.concurrency", c.Reconcile.Concurrency, "must be positive")
	}
	if c.Reconcile.TerminateRPS < 0 {
		add("reconcile.terminate_rps", c.Reconcile.TerminateRPS, "must not be negative")
	}

	for i, h := range c.Server.TriggerTokenHashes {
		if !strings.HasPrefix(h, "$2") {
			add(fmt.Sprintf("server.trigger_token_hashes[%d]", i), "********", "must be a bcrypt hash")
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		add("log.format", c.Log.Format, "must be text or json")
	}

	if c.Tracing.Enabled && c.Tracing.OTLPEndpoint == "" {
		add("tracing.otlp_endpoint", "", "is required when tracing is enabled")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
