package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapfake/pkg/core"
)

// ColumnTypes maps inferred value kinds to a dialect's column types.
type ColumnTypes struct {
	Integer   string
	Float     string
	Boolean   string
	Text      string
	Timestamp string
}

// Dialect describes the SQL differences between database sinks.
type Dialect struct {
	Name  string
	Types ColumnTypes

	// Placeholder returns the bind parameter for 1-based position i.
	// Nil means "?".
	Placeholder func(i int) string
}

// QuestionPlaceholder is the "?" placeholder style (SQLite, DuckDB).
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the "$N" placeholder style (PostgreSQL).
func DollarPlaceholder(i int) string { return "$" + strconv.Itoa(i) }

// Quote quotes an identifier.
func (d Dialect) Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d Dialect) placeholder(i int) string {
	if d.Placeholder == nil {
		return "?"
	}
	return d.Placeholder(i)
}

// ColumnType infers the column type of a value. References are stored as
// the referenced row's ID; nil is stored as text.
func (d Dialect) ColumnType(v any) string {
	switch v.(type) {
	case int, int64, core.Reference:
		return d.Types.Integer
	case float64:
		return d.Types.Float
	case bool:
		return d.Types.Boolean
	case time.Time:
		return d.Types.Timestamp
	default:
		return d.Types.Text
	}
}

// SQLValue converts a row value to a driver argument.
func SQLValue(v any) any {
	if ref, ok := v.(core.Reference); ok {
		return ref.ID
	}
	return v
}

// BaseSQLSink provides database/sql functionality for SQL sinks. It creates
// one table per object on the object's first row and adds columns when a
// later row carries new fields.
// Embed this struct in concrete sinks and implement Open.
type BaseSQLSink struct {
	DB      *sql.DB
	Cfg     Config
	Logger  *slog.Logger
	Dialect Dialect

	tables map[string]map[string]bool // object -> columns
}

// Close closes the database connection.
func (b *BaseSQLSink) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection", "sink", b.Dialect.Name)
		}
		return b.DB.Close()
	}
	return nil
}

func (b *BaseSQLSink) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLSink) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLSink) Exec(ctx context.Context, query string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := b.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// TableName returns the table a row's object is written to.
func (b *BaseSQLSink) TableName(object string) string {
	return b.Cfg.TablePrefix + object
}

// WriteRow inserts a row, creating or extending its table first.
func (b *BaseSQLSink) WriteRow(ctx context.Context, row *core.Row) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if err := b.ensureTable(ctx, row); err != nil {
		return err
	}

	fields := row.Fields()
	values := row.Values()

	cols := make([]string, 0, len(fields)+1)
	marks := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)

	cols = append(cols, b.Dialect.Quote("id"))
	marks = append(marks, b.Dialect.placeholder(1))
	args = append(args, row.ID())
	for i, f := range fields {
		if f == "id" {
			// an explicit id field replaces the generated one
			args[0] = SQLValue(values[i])
			continue
		}
		cols = append(cols, b.Dialect.Quote(f))
		args = append(args, SQLValue(values[i]))
		marks = append(marks, b.Dialect.placeholder(len(args)))
	}

	//nolint:gosec // G201: identifiers are quoted, values are bound
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.Dialect.Quote(b.TableName(row.Object())), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if err := b.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s row %d: %w", row.Object(), row.ID(), err)
	}
	return nil
}

func (b *BaseSQLSink) ensureTable(ctx context.Context, row *core.Row) error {
	if b.tables == nil {
		b.tables = make(map[string]map[string]bool)
	}
	table := b.Dialect.Quote(b.TableName(row.Object()))
	fields := row.Fields()
	values := row.Values()

	columns, ok := b.tables[row.Object()]
	if !ok {
		defs := make([]string, 0, len(fields)+1)
		defs = append(defs, b.Dialect.Quote("id")+" "+b.Dialect.Types.Integer)
		columns = map[string]bool{"id": true}
		for i, f := range fields {
			if columns[f] {
				continue
			}
			defs = append(defs, b.Dialect.Quote(f)+" "+b.Dialect.ColumnType(values[i]))
			columns[f] = true
		}
		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
		if err := b.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create table for %s: %w", row.Object(), err)
		}
		b.log().Debug("created table", "sink", b.Dialect.Name, "table", b.TableName(row.Object()), "columns", len(defs))
		b.tables[row.Object()] = columns
		return nil
	}

	for i, f := range fields {
		if columns[f] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, b.Dialect.Quote(f), b.Dialect.ColumnType(values[i]))
		if err := b.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to add column %s to %s: %w", f, row.Object(), err)
		}
		columns[f] = true
	}
	return nil
}
