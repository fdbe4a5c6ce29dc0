package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"graphql-preload/internal/model"
	"graphql-preload/internal/naming"
	"graphql-preload/internal/sqlutil"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) addWarning(field, message, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Database.validate(result)
	c.Server.validate(result)
	c.Preload.validate(result)
	c.Observability.validate(result)
	validateNamingConfig(result, c.Naming)
	validateModels(result, c.Models)

	return result
}

// Registry builds the model registry from the declared models.
func (c *Config) Registry() (*model.Registry, error) {
	return model.Build(c.Models)
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	dialect, err := d.Dialect()
	if err != nil {
		result.addError("database.driver", err.Error(), "valid values are: mysql, tidb, sqlite3, postgres")
		return
	}

	if strings.TrimSpace(d.ConnectionString) != "" && strings.TrimSpace(d.ConnectionStringFile) != "" {
		result.addWarning("database.dsn_file", "dsn_file is ignored because dsn is set", "")
	}

	if d.ConnectionString == "" {
		if dialect.Driver != sqlutil.SQLite.Driver && (d.Port < 0 || d.Port > 65535) {
			result.addError("database.port", fmt.Sprintf("port %d is out of valid range (0-65535)", d.Port), "use 0 for the driver default")
		}
		if strings.TrimSpace(d.Database) == "" {
			result.addError("database.database", "database name is required", "set database.database or provide database.dsn")
		}
	}

	if dialect.Driver == sqlutil.MySQL.Driver && d.ConnectionString != "" {
		if _, err := d.mysqlDSN(); err != nil {
			result.addError("database.dsn", err.Error(), "use the user:pass@tcp(host:port)/db form")
		}
	}

	d.TLS.validate(result)
	if dialect.Driver == sqlutil.SQLite.Driver && d.TLS.Mode != "" && d.TLS.Mode != "off" {
		result.addWarning("database.tls.mode", "TLS settings are ignored for sqlite3", "")
	}

	if d.Pool.MaxOpen < 0 {
		result.addError("database.pool.max_open", "max_open cannot be negative", "")
	}
	if d.Pool.MaxIdle < 0 {
		result.addError("database.pool.max_idle", "max_idle cannot be negative", "")
	}
	if d.Pool.MaxOpen > 0 && d.Pool.MaxIdle > d.Pool.MaxOpen {
		result.addWarning("database.pool.max_idle",
			fmt.Sprintf("max_idle (%d) exceeds max_open (%d)", d.Pool.MaxIdle, d.Pool.MaxOpen),
			"the driver caps idle connections at max_open")
	}
	if d.Pool.MaxLifetime < 0 {
		result.addError("database.pool.max_lifetime", "max_lifetime cannot be negative", "")
	}
	if d.ConnectionTimeout < 0 {
		result.addError("database.connection_timeout", "connection_timeout cannot be negative", "")
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval <= 0 {
		result.addError("database.connection_retry_interval", "connection_retry_interval must be positive when connection_timeout is set", "")
	}
}

func (t *DatabaseTLSConfig) validate(result *ValidationResult) {
	validModes := map[string]bool{"": true, "off": true, "skip-verify": true, "verify-ca": true, "verify-full": true}
	if !validModes[t.Mode] {
		result.addError("database.tls.mode", fmt.Sprintf("invalid TLS mode %q", t.Mode), "valid values are: off, skip-verify, verify-ca, verify-full")
		return
	}

	if t.Mode == "verify-ca" && t.CAFile == "" {
		result.addError("database.tls.ca_file", "ca_file is required for verify-ca", "")
	}
	if (t.CertFile == "") != (t.KeyFile == "") {
		result.addError("database.tls", "cert_file and key_file must be set together", "")
	}
	if t.ServerName != "" && t.Mode != "verify-full" {
		result.addWarning("database.tls.server_name", "server_name only applies to verify-full", "")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.addError("server.port", fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port), "")
	}

	timeouts := []struct {
		field string
		value int64
	}{
		{"server.read_timeout", int64(s.ReadTimeout)},
		{"server.write_timeout", int64(s.WriteTimeout)},
		{"server.idle_timeout", int64(s.IdleTimeout)},
		{"server.shutdown_timeout", int64(s.ShutdownTimeout)},
		{"server.health_check_timeout", int64(s.HealthCheckTimeout)},
	}
	for _, timeout := range timeouts {
		if timeout.value < 0 {
			result.addError(timeout.field, "timeout cannot be negative", "")
		}
	}

	if s.GraphiQLEnabled {
		result.addWarning("server.graphiql_enabled", "GraphiQL is enabled", "disable it outside development")
	}
}

func (p *PreloadConfig) validate(result *ValidationResult) {
	if p.BatchSize < 1 {
		result.addError("preload.batch_size", fmt.Sprintf("batch_size must be positive, got %d", p.BatchSize), "the default is 500")
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.addError("observability.logging.level", fmt.Sprintf("invalid log level %q", o.Logging.Level), "valid values are: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.addError("observability.logging.format", fmt.Sprintf("invalid log format %q", o.Logging.Format), "valid values are: json, text")
	}

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio", fmt.Sprintf("trace_sample_ratio %v must be between 0 and 1", o.TraceSampleRatio), "")
	}

	if o.TracingEnabled || o.Logging.ExportsEnabled {
		o.OTLP.validate("observability.otlp", result)
		if o.Traces != nil {
			o.Traces.validate("observability.traces", result)
		}
		if o.Logs != nil {
			o.Logs.validate("observability.logs", result)
		}
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.addError(prefix+".protocol", fmt.Sprintf("invalid OTLP protocol %q", o.Protocol), "valid values are: grpc, http/protobuf")
	}

	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.addError(prefix+".endpoint", fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint), "use host:port or a full URL")
	}

	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.addError(prefix+".compression", fmt.Sprintf("invalid OTLP compression %q", o.Compression), "valid values are: none, gzip")
	}

	if o.Timeout < 0 {
		result.addError(prefix+".timeout", "timeout cannot be negative", "")
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}

func validateNamingConfig(result *ValidationResult, cfg naming.Config) {
	for word, override := range cfg.PluralOverrides {
		if strings.TrimSpace(word) == "" || strings.TrimSpace(override) == "" {
			result.addError("naming.plural_overrides", fmt.Sprintf("plural override %q -> %q cannot be empty", word, override), "")
		}
	}
	for word, override := range cfg.SingularOverrides {
		if strings.TrimSpace(word) == "" || strings.TrimSpace(override) == "" {
			result.addError("naming.singular_overrides", fmt.Sprintf("singular override %q -> %q cannot be empty", word, override), "")
		}
	}
}

func validateModels(result *ValidationResult, cfgs []model.Config) {
	if len(cfgs) == 0 {
		result.addError("models", "at least one model must be declared", "add a models section to the config file")
		return
	}

	registry, err := model.Build(cfgs)
	if err != nil {
		result.addError("models", err.Error(), "")
		return
	}

	relational := 0
	for _, m := range registry.Models() {
		if !m.IsRelational() {
			result.addWarning("models", fmt.Sprintf("model %s has no table and will not be exposed", m.Name), "")
			continue
		}
		relational++
	}
	if relational == 0 {
		result.addError("models", "no model is backed by a table", "set table on at least one model")
	}
}
