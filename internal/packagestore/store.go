// Package packagestore is the on-disk tier underneath
// internal/engine's in-memory BytecodeCache (spec section 3.6):
// a durable, fingerprint-keyed cache of compiled IR functions so a
// second process (or a restarted one) can skip recompiling a function
// it has already seen. Grounded on internal/database/db_manager.go's
// DBManager: a database/sql handle behind a dialect switch, the same
// driver set (modernc.org/sqlite, lib/pq, go-sql-driver/mysql,
// denisenkom/go-mssqldb) registered the same way, via blank imports.
package packagestore

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"sentra/internal/ir"
)

// Dialect selects the SQL backend, mirroring DBManager.Connect's
// dbType switch.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLServer Dialect = "sqlserver"
)

func driverName(d Dialect) (string, error) {
	switch d {
	case SQLite:
		return "sqlite", nil
	case Postgres:
		return "postgres", nil
	case MySQL:
		return "mysql", nil
	case SQLServer:
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("packagestore: unsupported dialect %q", d)
	}
}

// Store persists compiled ir.Function blobs keyed by their
// ir.Fingerprint. One Store wraps one database/sql connection pool;
// safe for concurrent use the same way *sql.DB is.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to dsn under the given dialect, configures the pool
// the way DBManager.Connect does (bounded open/idle connections, a
// connection lifetime), and ensures the function-cache table exists.
func Open(dialect Dialect, dsn string) (*Store, error) {
	driver, err := driverName(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("packagestore: connect: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("packagestore: ping: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, dialect: dialect}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

var createTable = map[Dialect]string{
	SQLite: `CREATE TABLE IF NOT EXISTS ir_functions (
		fingerprint TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		blob        BLOB NOT NULL,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	Postgres: `CREATE TABLE IF NOT EXISTS ir_functions (
		fingerprint TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		blob        BYTEA NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	MySQL: `CREATE TABLE IF NOT EXISTS ir_functions (
		fingerprint VARCHAR(20) PRIMARY KEY,
		name        TEXT NOT NULL,
		blob        LONGBLOB NOT NULL,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	SQLServer: `IF OBJECT_ID('ir_functions', 'U') IS NULL
		CREATE TABLE ir_functions (
			fingerprint VARCHAR(20) PRIMARY KEY,
			name        NVARCHAR(256) NOT NULL,
			blob        VARBINARY(MAX) NOT NULL,
			created_at  DATETIME2 NOT NULL,
			updated_at  DATETIME2 NOT NULL
		)`,
}

func (s *Store) ensureSchema() error {
	stmt, ok := createTable[s.dialect]
	if !ok {
		return fmt.Errorf("packagestore: no schema for dialect %q", s.dialect)
	}
	_, err := s.db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("packagestore: ensure schema: %w", err)
	}
	return nil
}

// fpKey renders a fingerprint as the decimal string every dialect's
// primary-key column stores it as - uint64 has no portable native SQL
// type across sqlite/postgres/mysql/sqlserver, so it travels as text.
func fpKey(fp uint64) string { return strconv.FormatUint(fp, 10) }

// upsertSQL returns the dialect-specific upsert statement; placeholder
// syntax alone differs enough between drivers (postgres's $1.. vs
// every other driver's ?) that a single query string can't be shared.
func (s *Store) upsertSQL() string {
	switch s.dialect {
	case Postgres:
		return `INSERT INTO ir_functions (fingerprint, name, blob, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (fingerprint) DO UPDATE SET name = $2, blob = $3, updated_at = $4`
	case MySQL:
		return `INSERT INTO ir_functions (fingerprint, name, blob, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), blob = VALUES(blob), updated_at = VALUES(updated_at)`
	case SQLServer:
		return `MERGE ir_functions AS target
			USING (SELECT ? AS fingerprint) AS src
			ON target.fingerprint = src.fingerprint
			WHEN MATCHED THEN UPDATE SET name = ?, blob = ?, updated_at = ?
			WHEN NOT MATCHED THEN INSERT (fingerprint, name, blob, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)`
	default: // SQLite
		return `INSERT INTO ir_functions (fingerprint, name, blob, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (fingerprint) DO UPDATE SET name = excluded.name, blob = excluded.blob, updated_at = excluded.updated_at`
	}
}

// Put persists fn under fingerprint fp, overwriting any prior blob for
// the same fingerprint (a recompiled-but-identical function re-caches
// to the same key; spec section 3.6 treats the fingerprint, not the
// function identity, as the cache key).
func (s *Store) Put(fp uint64, fn *ir.Function) error {
	var buf bytes.Buffer
	if err := ir.WriteFunction(&buf, fn); err != nil {
		return fmt.Errorf("packagestore: encode: %w", err)
	}

	now := time.Now().UTC()
	key := fpKey(fp)

	var err error
	switch s.dialect {
	case Postgres:
		_, err = s.db.Exec(s.upsertSQL(), key, fn.Name, buf.Bytes(), now)
	case SQLServer:
		_, err = s.db.Exec(s.upsertSQL(), key, fn.Name, buf.Bytes(), now, key, fn.Name, buf.Bytes(), now)
	default:
		_, err = s.db.Exec(s.upsertSQL(), key, fn.Name, buf.Bytes(), now, now)
	}
	if err != nil {
		return fmt.Errorf("packagestore: put %s: %w", key, err)
	}
	return nil
}

// Get looks up the function cached under fingerprint fp. ok is false
// if the fingerprint has never been stored - a cache miss, not an
// error, matching how Engine.strategyFor treats an absent cache entry.
func (s *Store) Get(fp uint64) (fn *ir.Function, ok bool, err error) {
	row := s.db.QueryRow(s.selectSQL(), fpKey(fp))
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("packagestore: get %d: %w", fp, err)
	}
	fn, err = ir.ReadFunction(bytes.NewReader(blob))
	if err != nil {
		return nil, false, fmt.Errorf("packagestore: decode %d: %w", fp, err)
	}
	return fn, true, nil
}

func (s *Store) selectSQL() string {
	if s.dialect == Postgres {
		return `SELECT blob FROM ir_functions WHERE fingerprint = $1`
	}
	return `SELECT blob FROM ir_functions WHERE fingerprint = ?`
}

// Delete removes a cached function, e.g. after its source module is
// known to have been recompiled in a way that changed its fingerprint
// elsewhere but left a stale entry under the old one.
func (s *Store) Delete(fp uint64) error {
	stmt := `DELETE FROM ir_functions WHERE fingerprint = ?`
	if s.dialect == Postgres {
		stmt = `DELETE FROM ir_functions WHERE fingerprint = $1`
	}
	if _, err := s.db.Exec(stmt, fpKey(fp)); err != nil {
		return fmt.Errorf("packagestore: delete %d: %w", fp, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }
