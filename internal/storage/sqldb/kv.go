package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"news_reader/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	item_key   TEXT PRIMARY KEY,
	item_value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// KV stores values in a single table of a sqlite or postgres database.
type KV struct {
	db *sqlx.DB
	tx *TxManager
}

// Open connects to driver ("sqlite" or "postgres") and creates the table if needed.
func Open(ctx context.Context, driver, dsn string) (*KV, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		// one connection keeps :memory: databases shared and writers serialized
		db.SetMaxOpenConns(1)

		pragmas := []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("execute %s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	kv := New(db)
	if err := kv.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// New wraps an existing connection. Call InitSchema before use.
func New(db *sqlx.DB) *KV {
	return &KV{db: db, tx: NewTxManager(db)}
}

func (k *KV) InitSchema(ctx context.Context) error {
	if _, err := k.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	exec := executor(ctx, k.db)

	var value string
	err := sqlx.GetContext(ctx, exec, &value,
		exec.Rebind("SELECT item_value FROM kv_store WHERE item_key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	exec := executor(ctx, k.db)

	query := `
		INSERT INTO kv_store (item_key, item_value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (item_key) DO UPDATE SET
			item_value = excluded.item_value,
			updated_at = CURRENT_TIMESTAMP`

	_, err := exec.ExecContext(ctx, exec.Rebind(query), key, string(value))
	return err
}

// SetMany writes all entries in one transaction.
func (k *KV) SetMany(ctx context.Context, entries map[string][]byte) error {
	return k.tx.Do(ctx, func(txCtx context.Context) error {
		for key, value := range entries {
			if err := k.Set(txCtx, key, value); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
		return nil
	})
}

func (k *KV) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM kv_store WHERE item_key IN (?)", keys)
	if err != nil {
		return err
	}

	exec := executor(ctx, k.db)
	_, err = exec.ExecContext(ctx, exec.Rebind(query), args...)
	return err
}

func (k *KV) Close() error {
	return k.db.Close()
}
