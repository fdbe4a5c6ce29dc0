package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const (
	configName = "graphql-preload"
	envPrefix  = "GQLPRELOAD"
)

var defineFlagsOnce sync.Once

// Load loads configuration from the process command line, with the following
// precedence:
// 1. Explicit overrides (v.Set) – used only for secret files and the password prompt
// 2. Command line flags
// 3. Environment variables
// 4. Config file
// 5. Default values
func Load() (*Config, error) {
	defineFlagsOnce.Do(func() {
		defineFlags(pflag.CommandLine)
	})
	if !pflag.Parsed() {
		pflag.Parse()
	}
	return load(pflag.CommandLine)
}

// LoadArgs loads configuration from the given arguments instead of os.Args.
func LoadArgs(args []string) (*Config, error) {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	return load(fs)
}

func load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Defaults (lowest priority)
	setDefaults(v)

	// --- Config file ---
	cfgPath, _ := fs.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/" + configName + "/")
		v.AddConfigPath("$HOME/." + configName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// --- Environment variables ---
	// Env vars: GQLPRELOAD_DATABASE_POOL_MAX_OPEN
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Flags binding (highest normal priority) ---
	bindChangedFlagsToViper(v, fs)
	if err := validateSingleStdinFileSource(v); err != nil {
		return nil, err
	}

	// --- DSN from file (explicit override) ---
	if v.GetString("database.dsn") == "" && v.GetString("database.dsn_file") != "" {
		dsn, err := readPasswordFile(v.GetString("database.dsn_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database DSN file: %w", err)
		}
		v.Set("database.dsn", dsn)
	}

	// --- Secure password input (explicit override) ---
	if v.GetString("database.password") == "" && v.GetString("database.password_file") != "" {
		pwd, err := readPasswordFile(v.GetString("database.password_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database password file: %w", err)
		}
		v.Set("database.password", pwd)
	}
	if v.GetString("database.password") == "" && v.GetBool("database.password_prompt") {
		pwd, err := promptPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		v.Set("database.password", pwd)
	}

	// --- Unmarshal (strict) ---
	var cfg Config
	if err := v.UnmarshalExact(
		&cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		),
	); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindChangedFlagsToViper copies only explicitly-set flags into Viper,
// preserving precedence: flags > env > file > defaults.
func bindChangedFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "version" {
			return
		}

		switch f.Value.Type() {
		case "string":
			val, _ := fs.GetString(f.Name)
			v.Set(f.Name, val)
		case "int":
			val, _ := fs.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := fs.GetBool(f.Name)
			v.Set(f.Name, val)
		case "float64":
			val, _ := fs.GetFloat64(f.Name)
			v.Set(f.Name, val)
		case "duration":
			val, _ := fs.GetDuration(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}

// defineFlags defines all command line flags using canonical snake_case keys.
func defineFlags(fs *pflag.FlagSet) {
	// Database connection flags
	fs.String("database.driver", "", "Database driver (mysql, tidb, sqlite3, postgres)")
	fs.String("database.dsn", "", "Complete driver-specific DSN")
	fs.String("database.dsn_file", "", "Path to file containing database DSN (use @- for stdin)")

	// Database discrete connection flags (used when DSN is not set)
	fs.String("database.host", "", "Database host")
	fs.Int("database.port", 0, "Database port (0 = driver default)")
	fs.String("database.user", "", "Database user")
	fs.String("database.password", "", "Database password")
	fs.String("database.password_file", "", "Path to file containing database password (use @- for stdin)")
	fs.Bool("database.password_prompt", false, "Prompt for database password securely")
	fs.String("database.database", "", "Database name (file path for sqlite3)")
	fs.Bool("database.log_queries", false, "Log every SQL statement at debug level")

	// Database TLS flags
	fs.String("database.tls.mode", "", "TLS mode (off, skip-verify, verify-ca, verify-full)")
	fs.String("database.tls.ca_file", "", "Path to CA certificate for server verification")
	fs.String("database.tls.cert_file", "", "Path to client certificate for mTLS")
	fs.String("database.tls.key_file", "", "Path to client private key for mTLS")
	fs.String("database.tls.server_name", "", "Override TLS server name for verification")

	// Database pool flags
	fs.Int("database.pool.max_open", 0, "Maximum open database connections")
	fs.Int("database.pool.max_idle", 0, "Maximum idle connections in pool")
	fs.Duration("database.pool.max_lifetime", 0, "Connection max lifetime (e.g. 5m, 30s)")
	fs.Duration("database.connection_timeout", 0, "Max time to wait for database on startup (0 = fail immediately)")
	fs.Duration("database.connection_retry_interval", 0, "Initial interval between connection retries")

	// Server flags
	fs.Int("server.port", 0, "HTTP server port")
	fs.Bool("server.graphiql_enabled", false, "Enable GraphiQL UI for /graphql (dev only)")
	fs.Duration("server.read_timeout", 0, "HTTP server read timeout")
	fs.Duration("server.write_timeout", 0, "HTTP server write timeout")
	fs.Duration("server.idle_timeout", 0, "HTTP server idle timeout")
	fs.Duration("server.shutdown_timeout", 0, "HTTP server graceful shutdown timeout")
	fs.Duration("server.health_check_timeout", 0, "Health check timeout")

	// Preload flags
	fs.Int("preload.batch_size", 0, "Maximum keys per batched preload query")

	// Observability flags
	fs.String("observability.service_name", "", "Service name for observability")
	fs.String("observability.service_version", "", "Service version for observability")
	fs.String("observability.environment", "", "Environment name (dev, staging, prod)")
	fs.Bool("observability.metrics_enabled", false, "Enable metrics collection")
	fs.Bool("observability.tracing_enabled", false, "Enable distributed tracing")
	fs.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio from 0.0 to 1.0")

	// Logging flags (under observability)
	fs.String("observability.logging.level", "", "Log level (debug, info, warn, error)")
	fs.String("observability.logging.format", "", "Log format (json, text)")
	fs.Bool("observability.logging.exports_enabled", false, "Enable OTLP log export")

	// Global OTLP flags
	fs.String("observability.otlp.endpoint", "", "OTLP endpoint for all signals (e.g., localhost:4317)")
	fs.String("observability.otlp.protocol", "", "OTLP protocol for all signals (grpc, http/protobuf)")
	fs.Bool("observability.otlp.insecure", false, "Use insecure connection (no TLS)")
	fs.String("observability.otlp.tls_cert_file", "", "Path to TLS certificate file for server verification")
	fs.String("observability.otlp.tls_client_cert_file", "", "Path to client certificate file for mTLS")
	fs.String("observability.otlp.tls_client_key_file", "", "Path to client key file for mTLS")
	fs.Duration("observability.otlp.timeout", 0, "OTLP export timeout")
	fs.String("observability.otlp.compression", "", "OTLP compression (none, gzip)")
	fs.Bool("observability.otlp.retry_enabled", false, "Enable retry on transient errors")

	// Signal-specific OTLP flags (traces)
	fs.String("observability.traces.endpoint", "", "OTLP endpoint for traces only")
	fs.String("observability.traces.protocol", "", "OTLP protocol for traces (grpc, http/protobuf)")
	fs.Bool("observability.traces.insecure", false, "Use insecure connection for traces")
	fs.Duration("observability.traces.timeout", 0, "Timeout for trace exports")

	// Signal-specific OTLP flags (logs)
	fs.String("observability.logs.endpoint", "", "OTLP endpoint for logs only")
	fs.String("observability.logs.protocol", "", "OTLP protocol for logs (grpc, http/protobuf)")
	fs.Bool("observability.logs.insecure", false, "Use insecure connection for logs")
	fs.Duration("observability.logs.timeout", 0, "Timeout for log exports")

	// Config file flag
	fs.StringP("config", "c", "", "Config file path")
}

// setDefaults sets default values (lowest precedence).
func setDefaults(v *viper.Viper) {
	// Database connection defaults
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_file", "")

	// Database discrete connection defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.password_prompt", false)
	v.SetDefault("database.database", "")
	v.SetDefault("database.log_queries", false)

	// Database TLS defaults
	v.SetDefault("database.tls.mode", "")
	v.SetDefault("database.tls.ca_file", "")
	v.SetDefault("database.tls.cert_file", "")
	v.SetDefault("database.tls.key_file", "")
	v.SetDefault("database.tls.server_name", "")

	// Database pool defaults
	v.SetDefault("database.pool.max_open", 25)
	v.SetDefault("database.pool.max_idle", 5)
	v.SetDefault("database.pool.max_lifetime", 5*time.Minute)
	v.SetDefault("database.connection_timeout", 60*time.Second)
	v.SetDefault("database.connection_retry_interval", 2*time.Second)

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.graphiql_enabled", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.health_check_timeout", 2*time.Second)

	// Preload defaults
	v.SetDefault("preload.batch_size", 500)

	// Observability defaults
	v.SetDefault("observability.service_name", configName)
	v.SetDefault("observability.service_version", "")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)

	// Logging defaults (under observability)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.exports_enabled", false)

	// Global OTLP defaults
	v.SetDefault("observability.otlp.endpoint", "localhost:4317")
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.tls_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_key_file", "")
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.otlp.timeout", 10*time.Second)
	v.SetDefault("observability.otlp.compression", "gzip")
	v.SetDefault("observability.otlp.retry_enabled", true)

	// Naming defaults
	v.SetDefault("naming.plural_overrides", map[string]string{})
	v.SetDefault("naming.singular_overrides", map[string]string{})
}

// promptPassword prompts the user for a password without echoing to terminal.
func promptPassword() (string, error) {
	fmt.Print("Enter database password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func readPasswordFile(path string) (string, error) {
	var data []byte
	var err error

	if path == "@-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func validateSingleStdinFileSource(v *viper.Viper) error {
	stdinBackedKeys := []string{
		"database.dsn_file",
		"database.password_file",
	}

	var configured []string
	for _, key := range stdinBackedKeys {
		if strings.TrimSpace(v.GetString(key)) == "@-" {
			configured = append(configured, key)
		}
	}

	if len(configured) > 1 {
		return fmt.Errorf(
			"multiple stdin-backed file settings use @- (%s); only one @- source is allowed",
			strings.Join(configured, ", "),
		)
	}

	return nil
}
