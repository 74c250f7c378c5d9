package config

import "github.com/spf13/viper"

// setDefaults registers every default with v so env vars can override keys
// that appear in no config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("backend.tls.cert_file", "")
	v.SetDefault("backend.tls.key_file", "")
	v.SetDefault("backend.tls.ca_file", "")
	v.SetDefault("backend.retry.max_retries", 3)
	v.SetDefault("backend.retry.initial_backoff", "1s")
	v.SetDefault("backend.retry.max_backoff", "30s")
	v.SetDefault("backend.retry.multiplier", 2.0)

	v.SetDefault("registry.type", "sqlite")
	v.SetDefault("registry.path", "registry.db")
	v.SetDefault("registry.dsn", "")
	v.SetDefault("registry.max_open_conns", 10)
	v.SetDefault("registry.max_idle_conns", 2)
	v.SetDefault("registry.conn_max_lifetime", "5m")
	v.SetDefault("registry.conn_max_idle_time", "1m")

	v.SetDefault("reconcile.interval", "60s")
	v.SetDefault("reconcile.page_size", 200)
	v.SetDefault("reconcile.concurrency", 8)
	v.SetDefault("reconcile.terminate_rps", 10.0)
	v.SetDefault("reconcile.terminate_burst", 10)
	v.SetDefault("reconcile.dry_run", false)

	v.SetDefault("server.addr", ":9090")
	v.SetDefault("server.enable_trigger", false)
	v.SetDefault("server.trigger_rps", 0.1)
	v.SetDefault("server.trigger_token_hashes", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "execreaper")
	v.SetDefault("tracing.service_version", "")
	v.SetDefault("tracing.environment", "production")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("shutdown_timeout", "30s")
}
