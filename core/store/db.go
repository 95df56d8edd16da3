package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"saker-rro/config"
	"saker-rro/core/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps *sql.DB with the configured driver so store code can be written
// once with `?` placeholders; statements are rebound to `$n` for postgres.
type DB struct {
	sqlDB  *sql.DB
	driver string
}

// Querier is the subset of DB/Tx the stores run statements through. Service
// code passes a *Tx so a whole mutation commits or rolls back as one unit.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
}

func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch driver {
	case "", DriverSQLite, "sqlite3":
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			path = "data/saker.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		sqlDB, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// modernc sqlite serializes writers; a single connection avoids
		// SQLITE_BUSY under concurrent transactions.
		sqlDB.SetMaxOpenConns(1)
		logger.Printf("store: sqlite at %s", path)
		return &DB{sqlDB: sqlDB, driver: DriverSQLite}, nil
	case DriverPostgres, "pgx":
		if strings.TrimSpace(cfg.DBURL) == "" {
			return nil, fmt.Errorf("db_url is required for the postgres driver")
		}
		sqlDB, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Printf("store: postgres")
		return &DB{sqlDB: sqlDB, driver: DriverPostgres}, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

func (d *DB) Driver() string { return d.driver }

func (d *DB) SQL() *sql.DB { return d.sqlDB }

func (d *DB) Close() error { return d.sqlDB.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.sqlDB.PingContext(ctx) }

func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sqlDB.ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sqlDB.QueryContext(ctx, d.rebind(query), args...)
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sqlDB.QueryRowContext(ctx, d.rebind(query), args...)
}

// Tx is a driver-aware transaction handle implementing Querier.
type Tx struct {
	tx     *sql.Tx
	driver string
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.driver, query), args...)
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, rebind(t.driver, query), args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.driver, query), args...)
}

// RunInTx runs fn inside a transaction and commits when it returns nil. Any
// error (or panic) rolls the whole unit of work back.
func (d *DB) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(&Tx{tx: tx, driver: d.driver}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *DB) rebind(query string) string { return rebind(d.driver, query) }

// rebind translates `?` placeholders to `$n` for postgres. Store queries do
// not embed `?` inside string literals so a plain scan is enough.
func rebind(driver, query string) string {
	if driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
