package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/gnemet/crudgrid/database/connpool"
)

const (
	// DebugMode indicates service mode is debug.
	DebugMode = "debug"
	// TestMode indicates service mode is test.
	TestMode = "test"
	// ReleaseMode indicates service mode is release.
	ReleaseMode = "release"
)

type Config struct {
	ServiceName string
	HTTPPort    string

	Environment string // debug, test, release
	LogLevel    string

	DBType     string // mysql, sqlite, postgres
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBCACert   string
	SQLitePath string

	DBMaxConnections int
	DBConnectTimeout time.Duration
	DBConnMaxIdle    time.Duration
	DBConnMaxLife    time.Duration

	RegistryPath string
}

// Load reads configuration from the environment, after loading .env if present.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefaultValue("SERVICE_NAME", "crudgrid"))
	cfg.HTTPPort = ":" + cast.ToString(getOrReturnDefaultValue("PORT", 3001))

	cfg.Environment = cast.ToString(getOrReturnDefaultValue("ENVIRONMENT", DebugMode))
	cfg.LogLevel = cast.ToString(getOrReturnDefaultValue("LOG_LEVEL", "info"))

	cfg.DBType = cast.ToString(getOrReturnDefaultValue("DB_TYPE", "mysql"))
	cfg.DBHost = cast.ToString(getOrReturnDefaultValue("DB_ENDPOINT", "localhost"))
	cfg.DBPort = cast.ToInt(getOrReturnDefaultValue("DB_PORT", 0))
	cfg.DBUser = cast.ToString(getOrReturnDefaultValue("DB_USER", ""))
	cfg.DBPassword = cast.ToString(getOrReturnDefaultValue("DB_PASSWORD", ""))
	cfg.DBName = cast.ToString(getOrReturnDefaultValue("DB_NAME", "mapequipment"))
	cfg.DBCACert = cast.ToString(getOrReturnDefaultValue("DB_CA_CERT", ""))
	cfg.SQLitePath = cast.ToString(getOrReturnDefaultValue("SQLITE_DB", "crudgrid.db"))

	cfg.DBMaxConnections = cast.ToInt(getOrReturnDefaultValue("DB_MAX_CONNECTIONS", 10))
	cfg.DBConnectTimeout = cast.ToDuration(getOrReturnDefaultValue("DB_CONNECT_TIMEOUT", "5s"))
	cfg.DBConnMaxIdle = cast.ToDuration(getOrReturnDefaultValue("DB_CONN_MAX_IDLE", "5m"))
	cfg.DBConnMaxLife = cast.ToDuration(getOrReturnDefaultValue("DB_CONN_MAX_LIFETIME", "1h"))

	cfg.RegistryPath = cast.ToString(getOrReturnDefaultValue("REGISTRY_PATH", ""))

	return cfg
}

// defaultPorts applies when DB_PORT is unset.
var defaultPorts = map[connpool.Dialect]int{
	connpool.MySQL:    3306,
	connpool.Postgres: 5432,
}

// Database returns the connection options described by the DB_* variables.
func (c Config) Database() (connpool.Options, error) {
	dialect, err := connpool.ParseDialect(c.DBType)
	if err != nil {
		return connpool.Options{}, err
	}
	port := c.DBPort
	if port == 0 {
		port = defaultPorts[dialect]
	}
	return connpool.Options{
		Dialect:         dialect,
		Host:            c.DBHost,
		Port:            port,
		User:            c.DBUser,
		Password:        c.DBPassword,
		Database:        c.DBName,
		CACertPath:      c.DBCACert,
		SQLitePath:      c.SQLitePath,
		MaxConns:        c.DBMaxConnections,
		ConnectTimeout:  c.DBConnectTimeout,
		ConnMaxIdleTime: c.DBConnMaxIdle,
		ConnMaxLifetime: c.DBConnMaxLife,
	}, nil
}

func getOrReturnDefaultValue(key string, defaultValue any) any {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return defaultValue
}
