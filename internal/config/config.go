// Package config reads sqlkit settings from command-line flags, falling back
// to SQLKIT_* environment variables for anything not given on the command line.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Driver string

const (
	DriverSqlite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMssql    Driver = "mssql"
	DriverMysql    Driver = "mysql"
)

// DB holds connection settings. DSN wins over the discrete fields.
type DB struct {
	Driver   Driver
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type Cache struct {
	Dir   string
	Redis string
	TTL   time.Duration
}

type Config struct {
	DB    DB
	Cache Cache

	Query    string
	Args     []string
	Shape    string
	ListJoin string
	Describe string
	Enum     string
	Save     string
	Record   string
	ShowLog  bool
	LogLevel slog.Level
}

// NonInteractive reports whether an action flag was given.
func (c Config) NonInteractive() bool {
	return c.Query != "" || c.Describe != "" || c.Enum != "" || c.Save != ""
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse reads args (without the program name). getenv supplies fallbacks.
func Parse(args []string, getenv func(string) string, output io.Writer) (Config, error) {
	var cfg Config
	var driver, level string
	var argList stringList

	fs := flag.NewFlagSet("sqlkit", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&driver, "driver", envOr(getenv, "SQLKIT_DRIVER", string(DriverSqlite)), "database driver: sqlite, mysql, postgres, mssql")
	fs.StringVar(&cfg.DB.DSN, "dsn", getenv("SQLKIT_DSN"), "data source name (sqlite: file path)")
	fs.StringVar(&cfg.DB.Host, "host", envOr(getenv, "SQLKIT_HOST", "localhost"), "database host")
	fs.IntVar(&cfg.DB.Port, "port", envInt(getenv, "SQLKIT_PORT"), "database port (0 = driver default)")
	fs.StringVar(&cfg.DB.User, "user", getenv("SQLKIT_USER"), "database user")
	fs.StringVar(&cfg.DB.Password, "password", getenv("SQLKIT_PASSWORD"), "database password")
	fs.StringVar(&cfg.DB.Database, "database", getenv("SQLKIT_DATABASE"), "database name")

	fs.StringVar(&cfg.Query, "q", "", "SQL query to run in non-interactive mode")
	fs.Var(&argList, "arg", "placeholder value, repeatable (name=value for :name templates)")
	fs.StringVar(&cfg.Shape, "shape", "all", "result shape: all, row, one, col, list, exec")
	fs.StringVar(&cfg.ListJoin, "join", "", "with -shape list: join remaining columns with this separator")
	fs.StringVar(&cfg.Describe, "describe", "", "print the columns of a table")
	fs.StringVar(&cfg.Enum, "enum", "", "print the options of an enum column, as table.column")
	fs.StringVar(&cfg.Save, "save", "", "save -record into this table (insert or update)")
	fs.StringVar(&cfg.Record, "record", "", "JSON object to save with -save")
	fs.BoolVar(&cfg.ShowLog, "log", false, "print the executed query log on exit")

	fs.StringVar(&cfg.Cache.Dir, "cache-dir", getenv("SQLKIT_CACHE_DIR"), "directory for the file result cache")
	fs.StringVar(&cfg.Cache.Redis, "cache-redis", getenv("SQLKIT_CACHE_REDIS"), "redis address for the result cache")
	fs.DurationVar(&cfg.Cache.TTL, "cache-ttl", 5*time.Minute, "result cache expiry")

	fs.StringVar(&level, "log-level", envOr(getenv, "SQLKIT_LOG_LEVEL", "warn"), "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.DB.Driver = Driver(strings.ToLower(driver))
	switch cfg.DB.Driver {
	case DriverSqlite, DriverPostgres, DriverMssql, DriverMysql:
	default:
		return Config{}, fmt.Errorf("unsupported driver %q", driver)
	}

	// a bare positional argument is the DSN, as in "sqlkit app.db"
	if cfg.DB.DSN == "" && fs.NArg() > 0 {
		cfg.DB.DSN = fs.Arg(0)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return Config{}, fmt.Errorf("log level: %w", err)
	}

	if cfg.Save != "" && cfg.Record == "" {
		return Config{}, fmt.Errorf("-save requires -record")
	}

	cfg.Args = argList
	return cfg, nil
}

// FromOS parses os.Args and the process environment.
func FromOS() (Config, error) {
	return Parse(os.Args[1:], os.Getenv, os.Stderr)
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string) int {
	n, _ := strconv.Atoi(getenv(key))
	return n
}
