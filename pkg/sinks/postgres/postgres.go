// Package postgres provides a sink that writes rows into a PostgreSQL
// database, one table per object.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leapfake/pkg/sink"
)

func init() {
	sink.Register("postgres", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

// Dialect is the PostgreSQL column mapping.
var Dialect = sink.Dialect{
	Name: "postgres",
	Types: sink.ColumnTypes{
		Integer:   "BIGINT",
		Float:     "DOUBLE PRECISION",
		Boolean:   "BOOLEAN",
		Text:      "TEXT",
		Timestamp: "TIMESTAMPTZ",
	},
	Placeholder: sink.DollarPlaceholder,
}

// Params holds the connection settings used when Config.Path is not a DSN.
type Params struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Sink writes rows to PostgreSQL.
type Sink struct {
	sink.BaseSQLSink
}

// New creates a postgres sink.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{BaseSQLSink: sink.BaseSQLSink{Logger: logger, Dialect: Dialect}}
}

// Open connects to PostgreSQL. Config.Path is used as the DSN when set,
// otherwise the DSN is built from Params.
func (s *Sink) Open(ctx context.Context, cfg sink.Config) error {
	connCfg, err := connConfig(cfg)
	if err != nil {
		return err
	}

	s.Logger.Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

func connConfig(cfg sink.Config) (*pgx.ConnConfig, error) {
	dsn := cfg.Path
	if dsn == "" {
		var params Params
		if err := cfg.DecodeParams(&params); err != nil {
			return nil, err
		}
		dsn = buildDSN(params)
	}

	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}
	return connCfg, nil
}

// buildDSN constructs a key=value PostgreSQL connection string.
func buildDSN(p Params) string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, p.Database, sslmode)
	if p.User != "" {
		dsn += fmt.Sprintf(" user=%s", p.User)
	}
	if p.Password != "" {
		dsn += fmt.Sprintf(" password=%s", p.Password)
	}
	return dsn
}
