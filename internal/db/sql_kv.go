package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver

	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

// SQLKV keeps the documents in a single kv(key, value, version) table. It
// suits a deployment that must survive restarts without Redis or Mongo.
type SQLKV struct {
	db      *sql.DB
	dialect string
	stmts   sqlStatements
}

type sqlStatements struct {
	schema string
	// upsert writes unconditionally and bumps version.
	upsert string
	// insert creates the row only when the key is absent.
	insert string
}

var (
	sqliteStatements = sqlStatements{
		schema: `CREATE TABLE IF NOT EXISTS kv (
		key     TEXT PRIMARY KEY,
		value   TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	)`,
		upsert: `INSERT INTO kv (key, value, version) VALUES (?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = kv.version + 1`,
		insert: `INSERT INTO kv (key, value, version) VALUES (?, ?, 1)
		ON CONFLICT(key) DO NOTHING`,
	}

	mysqlStatements = sqlStatements{
		schema: "CREATE TABLE IF NOT EXISTS kv (" +
			"`key` VARCHAR(64) NOT NULL PRIMARY KEY, " +
			"`value` LONGTEXT NOT NULL, " +
			"version BIGINT NOT NULL DEFAULT 0" +
			") CHARACTER SET utf8mb4",
		upsert: "INSERT INTO kv (`key`, `value`, version) VALUES (?, ?, 1) " +
			"ON DUPLICATE KEY UPDATE `value` = VALUES(`value`), version = version + 1",
		insert: "INSERT IGNORE INTO kv (`key`, `value`, version) VALUES (?, ?, 1)",
	}
)

// OpenSQLite opens (or creates) the database at path and prepares the kv table.
// Use ":memory:" for a throwaway database. A file may be shared by several
// processes; writers wait on each other's locks for up to five seconds.
func OpenSQLite(path string) (*SQLKV, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	// One connection keeps an in-memory database shared and serializes writers.
	db.SetMaxOpenConns(1)
	return prepare(db, "sqlite", sqliteStatements)
}

// OpenMySQL connects with dsn (go-sql-driver format) and prepares the kv table.
func OpenMySQL(dsn string) (*SQLKV, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return prepare(db, "mysql", mysqlStatements)
}

func prepare(db *sql.DB, dialect string, stmts sqlStatements) (*SQLKV, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}
	if _, err := db.Exec(stmts.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQLKV{db: db, dialect: dialect, stmts: stmts}, nil
}

func (s *SQLKV) Close() error {
	return s.db.Close()
}

func (s *SQLKV) quoteKey() string {
	if s.dialect == "mysql" {
		return "`key`"
	}
	return "key"
}

func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	query := fmt.Sprintf(`SELECT value FROM kv WHERE %s = ?`, s.quoteKey())
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s get %s: %w", s.dialect, key, err)
	}
	return []byte(value), nil
}

func (s *SQLKV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.stmts.upsert, key, string(value)); err != nil {
		return fmt.Errorf("%s set %s: %w", s.dialect, key, err)
	}
	return nil
}

// Update reads the row with its version and writes back only if the version
// is unchanged; a missing row is created only if still missing.
func (s *SQLKV) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	return store.RetryOnConflict(ctx, key, func() (bool, error) {
		var value string
		var version int64
		query := fmt.Sprintf(`SELECT value, version FROM kv WHERE %s = ?`, s.quoteKey())
		err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &version)
		exists := !errors.Is(err, sql.ErrNoRows)
		var current []byte
		if exists {
			if err != nil {
				return false, fmt.Errorf("%s get %s: %w", s.dialect, key, err)
			}
			current = []byte(value)
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return true, err
		}

		var res sql.Result
		if exists {
			query = fmt.Sprintf(`UPDATE kv SET value = ?, version = version + 1 WHERE %s = ? AND version = ?`, s.quoteKey())
			res, err = s.db.ExecContext(ctx, query, string(next), key, version)
		} else {
			res, err = s.db.ExecContext(ctx, s.stmts.insert, key, string(next))
		}
		if err != nil {
			return false, fmt.Errorf("%s update %s: %w", s.dialect, key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("%s update %s: %w", s.dialect, key, err)
		}
		return n == 1, nil
	})
}

// Delete removes the keys inside one transaction.
func (s *SQLKV) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s begin: %w", s.dialect, err)
	}
	query := fmt.Sprintf(`DELETE FROM kv WHERE %s = ?`, s.quoteKey())
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, query, k); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s delete %s: %w", s.dialect, k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s commit: %w", s.dialect, err)
	}
	return nil
}
