package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"graphql-preload/internal/sqlutil"
)

// tlsConfigName is the name used to register custom TLS configs with the MySQL driver.
const tlsConfigName = "graphql-preload-custom"

const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// Dialect returns the SQL dialect of the configured driver.
func (d *DatabaseConfig) Dialect() (sqlutil.Dialect, error) {
	return sqlutil.DialectFor(d.Driver)
}

// EffectivePort returns the configured port, or the driver default when unset.
func (d *DatabaseConfig) EffectivePort() int {
	if d.Port != 0 {
		return d.Port
	}
	dialect, err := d.Dialect()
	if err != nil {
		return 0
	}
	switch dialect.Driver {
	case sqlutil.Postgres.Driver:
		return defaultPostgresPort
	case sqlutil.MySQL.Driver:
		return defaultMySQLPort
	}
	return 0
}

// DSN returns the data source name for the configured driver.
// If ConnectionString is set it is used as the base. Otherwise the DSN is
// built from the discrete fields.
func (d *DatabaseConfig) DSN() (string, error) {
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}

	switch dialect.Driver {
	case sqlutil.MySQL.Driver:
		return d.mysqlDSN()
	case sqlutil.Postgres.Driver:
		return d.postgresDSN(), nil
	default:
		if d.ConnectionString != "" {
			return d.ConnectionString, nil
		}
		if strings.TrimSpace(d.Database) == "" {
			return "", fmt.Errorf("sqlite3 requires database.database or database.dsn")
		}
		return d.Database, nil
	}
}

func (d *DatabaseConfig) mysqlDSN() (string, error) {
	var cfg *mysql.Config
	if d.ConnectionString != "" {
		parsed, err := mysql.ParseDSN(d.ConnectionString)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.EffectivePort()))
		cfg.DBName = d.Database
	}
	cfg.ParseTime = true

	if tlsParam := d.effectiveTLSParam(); tlsParam != "" && cfg.TLSConfig == "" {
		cfg.TLSConfig = tlsParam
	}

	return cfg.FormatDSN(), nil
}

func (d *DatabaseConfig) postgresDSN() string {
	if d.ConnectionString != "" {
		return d.ConnectionString
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.EffectivePort())),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}

	q := url.Values{}
	q.Set("sslmode", postgresSSLMode(d.TLS.Mode))
	if d.TLS.CAFile != "" {
		q.Set("sslrootcert", d.TLS.CAFile)
	}
	if d.TLS.CertFile != "" {
		q.Set("sslcert", d.TLS.CertFile)
	}
	if d.TLS.KeyFile != "" {
		q.Set("sslkey", d.TLS.KeyFile)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func postgresSSLMode(mode string) string {
	switch mode {
	case "skip-verify":
		return "require"
	case "verify-ca", "verify-full":
		return mode
	default:
		return "disable"
	}
}

// effectiveTLSParam returns the MySQL tls parameter value.
// Returns the registered config name for custom TLS, or empty string if no TLS is configured.
func (d *DatabaseConfig) effectiveTLSParam() string {
	switch d.TLS.Mode {
	case "":
		return ""
	case "off":
		return "false"
	case "skip-verify":
		return "skip-verify"
	case "verify-ca", "verify-full":
		return tlsConfigName
	default:
		return d.TLS.Mode
	}
}

// RegisterTLS registers a custom TLS configuration with the MySQL driver.
// Must be called before opening the database connection when using verify-ca or verify-full modes.
// Returns nil if no custom TLS configuration is needed.
func (d *DatabaseConfig) RegisterTLS() error {
	dialect, err := d.Dialect()
	if err != nil {
		return err
	}
	if dialect.Driver != sqlutil.MySQL.Driver {
		return nil
	}

	mode := d.TLS.Mode
	if mode != "verify-ca" && mode != "verify-full" {
		return nil
	}

	tlsCfg, err := d.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}

	if err := mysql.RegisterTLSConfig(tlsConfigName, tlsCfg); err != nil {
		return fmt.Errorf("failed to register TLS config: %w", err)
	}

	return nil
}

// buildTLSConfig creates a tls.Config based on the DatabaseTLSConfig settings.
func (d *DatabaseConfig) buildTLSConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if d.TLS.CAFile != "" {
		caCert, err := os.ReadFile(d.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %q: %w", d.TLS.CAFile, err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %q", d.TLS.CAFile)
		}
		tlsCfg.RootCAs = certPool
	}

	if d.TLS.CertFile != "" && d.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(d.TLS.CertFile, d.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	} else if d.TLS.CertFile != "" || d.TLS.KeyFile != "" {
		return nil, fmt.Errorf("both cert_file and key_file must be specified for client certificate authentication")
	}

	if d.TLS.Mode == "verify-full" && d.TLS.ServerName != "" {
		tlsCfg.ServerName = d.TLS.ServerName
	}

	return tlsCfg, nil
}
