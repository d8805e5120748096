package connpool

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/gnemet/crudgrid/internal/logger"
)

// Dialect selects the SQL driver and its quoting and placeholder rules.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// tlsConfigName is the name the CA bundle is registered under for MySQL.
const tlsConfigName = "crudgrid"

// ParseDialect maps common driver aliases to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database type: %q", s)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Placeholder is the squirrel placeholder format for the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// Quote quotes an identifier that has already passed the whitelist.
func (d Dialect) Quote(ident string) string {
	if d == MySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

// Options describes how to reach the database.
type Options struct {
	Dialect    Dialect
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	CACertPath string
	SQLitePath string

	MaxConns        int
	ConnectTimeout  time.Duration
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// DSN builds the driver connection string. For MySQL with a CA bundle the TLS
// configuration has to be registered first, which Open does.
func (o Options) DSN() (string, error) {
	switch o.Dialect {
	case MySQL:
		cfg := mysql.NewConfig()
		cfg.User = o.User
		cfg.Passwd = o.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
		cfg.DBName = o.Database
		// rows matched, not rows changed, so a no-op update still finds its row
		cfg.ClientFoundRows = true
		if o.CACertPath != "" {
			cfg.TLSConfig = tlsConfigName
		}
		return cfg.FormatDSN(), nil
	case SQLite:
		path := o.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		return "file:" + path + "?_pragma=foreign_keys(1)", nil
	case Postgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(o.User, o.Password),
			Host:   net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
			Path:   "/" + o.Database,
		}
		q := url.Values{}
		if o.CACertPath != "" {
			q.Set("sslmode", "verify-full")
			q.Set("sslrootcert", o.CACertPath)
		} else {
			q.Set("sslmode", "disable")
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported database type: %q", o.Dialect)
}

func (o Options) inMemory() bool {
	return o.Dialect == SQLite && (o.SQLitePath == "" || o.SQLitePath == ":memory:")
}

// Open creates the process-wide database handle, tunes its pool and checks
// that the server answers within the connect timeout.
func Open(ctx context.Context, o Options, log logger.LoggerI) (*sqlx.DB, error) {
	if o.Dialect == MySQL && o.CACertPath != "" {
		if err := registerCA(o.CACertPath); err != nil {
			return nil, err
		}
	}

	dsn, err := o.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(o.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := o.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	// every connection to :memory: is a separate database
	if o.inMemory() {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns/2 + 1)
	if o.ConnMaxLifetime > 0 && !o.inMemory() {
		db.SetConnMaxLifetime(o.ConnMaxLifetime)
	}
	if o.ConnMaxIdleTime > 0 && !o.inMemory() {
		db.SetConnMaxIdleTime(o.ConnMaxIdleTime)
	}

	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connected",
		logger.String("dialect", string(o.Dialect)),
		logger.String("database", o.Database),
		logger.Int("max_conns", maxConns),
	)
	return db, nil
}

func registerCA(path string) error {
	pem, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("no certificates found in %s", path)
	}
	return mysql.RegisterTLSConfig(tlsConfigName, &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	})
}
