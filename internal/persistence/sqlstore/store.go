// Package sqlstore implements persistence.Store on top of sqlx. SQLite (modernc.org/sqlite) is
// the default engine; DSNs with a postgres:// or postgresql:// scheme are served by pgx.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/example/sublease-marketplace/internal/persistence"
	"github.com/example/sublease-marketplace/internal/persistence/sqlstore/migration"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func init() {
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
	sqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1, unicodeLower)
}

// unicodeLower folds text with Go's Unicode tables, matching strings.ToLower on the caller side.
func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Store is a persistence.Store backed by a SQL database.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database named by dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, source := resolveDSN(dsn)
	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}

	if driver == driverSQLite {
		// SQLite allows one writer; a single connection keeps transactions from tripping over
		// SQLITE_BUSY and keeps :memory: databases alive for the life of the pool.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driver, err)
	}

	logger.With("component", "sqlstore", "driver", driver).InfoContext(ctx, "database connected")
	return &Store{db: db, logger: logger}, nil
}

// resolveDSN selects the driver for dsn and enables the SQLite pragmas the schema relies on.
func resolveDSN(dsn string) (driver, source string) {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return driverPostgres, trimmed
	}

	if trimmed == "" || trimmed == ":memory:" {
		trimmed = "file::memory:"
	}
	var pragmas []string
	if !strings.Contains(trimmed, "foreign_keys") {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(trimmed, "busy_timeout") {
		pragmas = append(pragmas, "_pragma=busy_timeout(5000)")
	}
	if len(pragmas) == 0 {
		return driverSQLite, trimmed
	}
	sep := "?"
	if strings.Contains(trimmed, "?") {
		sep = "&"
	}
	return driverSQLite, trimmed + sep + strings.Join(pragmas, "&")
}

// DB exposes the underlying handle for tooling and tests.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrationManager() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(s.db),
		s.logger,
	)
}

// Migrate applies every pending embedded migration.
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrationManager().RunMigrations(ctx)
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Store) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return s.migrationManager().Status(ctx)
}

// Users returns a repository bound to the connection pool.
func (s *Store) Users() persistence.UserRepository { return NewUserRepository(s.db) }

// Listings returns a repository bound to the connection pool.
func (s *Store) Listings() persistence.ListingRepository { return NewListingRepository(s.db) }

// BookingRequests returns a repository bound to the connection pool.
func (s *Store) BookingRequests() persistence.BookingRequestRepository {
	return NewBookingRequestRepository(s.db)
}

// Sessions returns a repository bound to the connection pool.
func (s *Store) Sessions() persistence.SessionRepository { return NewSessionRepository(s.db) }

// WithinTx executes fn within a database transaction.
// If fn returns an error or panics, the transaction is rolled back.
// Otherwise, the transaction is committed.
func (s *Store) WithinTx(ctx context.Context, fn func(repos persistence.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.ErrorContext(ctx, "rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err = fn(txRepositories{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

type txRepositories struct {
	tx *sqlx.Tx
}

func (r txRepositories) Users() persistence.UserRepository       { return NewUserRepository(r.tx) }
func (r txRepositories) Listings() persistence.ListingRepository { return NewListingRepository(r.tx) }
func (r txRepositories) BookingRequests() persistence.BookingRequestRepository {
	return NewBookingRequestRepository(r.tx)
}
func (r txRepositories) Sessions() persistence.SessionRepository { return NewSessionRepository(r.tx) }
