// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database. It lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. One file holds
// users, roles and photo metadata; image bytes live in the media store.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// REPOSITORY LAYOUT:
// DB owns the connection pool. It hands out three repositories:
//
//	db.Users()  → *UserDB   (repository.UserRepository)
//	db.Photos() → *PhotoDB  (repository.PhotoRepository)
//	db.Roles()  → *RoleDB   (repository.RoleRepository)
//
// Each repository runs its SQL through a querier, which is either the pool
// (*sql.DB) or a transaction (*sql.Tx). WithinTx builds the same three
// repositories on top of a *sql.Tx, so the code that runs inside a transaction
// is identical to the code that runs outside one.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named "sqlite".
	_ "modernc.org/sqlite"

	"github.com/sakif/datingapp/internal/repository"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ repository.Transactor = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/datingapp.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests, lost on close)
//
// ONE CONNECTION:
// SQLite allows a single writer at a time. Capping the pool at one connection
// serialises writers inside the process, so two concurrent set-main requests
// run one after the other instead of failing with SQLITE_BUSY. It is also
// what makes ":memory:" usable: every new connection to ":memory:" would
// otherwise get its own empty database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent readers while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. photos and user_roles
	// reference users with ON DELETE CASCADE, which needs them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Users returns the user repository bound to the pool.
func (db *DB) Users() *UserDB { return &UserDB{q: db.conn} }

// Photos returns the photo repository bound to the pool.
func (db *DB) Photos() *PhotoDB { return &PhotoDB{q: db.conn} }

// Roles returns the role repository bound to the pool.
func (db *DB) Roles() *RoleDB { return &RoleDB{q: db.conn} }

// WithinTx runs fn inside a single transaction.
//
// fn must only use the Stores it is given. Because the pool holds one
// connection, calling a pool-bound repository from inside fn would wait
// forever for the connection the transaction is holding.
//
// A panic inside fn rolls back (via the deferred Rollback) and is re-raised
// for chi's Recoverer to handle.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op that returns sql.ErrTxDone.
	defer tx.Rollback()

	stores := repository.Stores{
		Users:  &UserDB{q: tx},
		Photos: &PhotoDB{q: tx},
		Roles:  &RoleDB{q: tx},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so migrate runs on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			known_as      TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_active   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role    TEXT NOT NULL,
			PRIMARY KEY (user_id, role)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating user_roles table: %w", err)
	}

	// The partial unique index is the storage-level guard for the main-photo
	// invariant: a second is_main = 1 row for the same user fails to commit.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS photos (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			url         TEXT NOT NULL,
			public_id   TEXT,
			description TEXT NOT NULL DEFAULT '',
			is_main     INTEGER NOT NULL DEFAULT 0,
			date_added  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_photos_user_id ON photos(user_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_photos_one_main_per_user
			ON photos(user_id) WHERE is_main = 1;
	`)
	if err != nil {
		return fmt.Errorf("creating photos table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
