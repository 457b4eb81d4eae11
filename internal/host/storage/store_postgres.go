package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"credrec/internal/host"
	"credrec/pkg/domain"
	"credrec/pkg/platform/sentinel"
	txcontext "credrec/pkg/platform/tx"
)

// Serialization failures raised by PostgreSQL when a concurrent
// transaction wins.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// PostgresBackend stores instance storage in the instance_storage table.
// Each invocation runs in one REPEATABLE READ transaction, which gives it a
// snapshot for reads; writes go straight into the transaction and are
// discarded with it on failure.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Run(ctx context.Context, instance domain.InstanceID, fn func(ctx context.Context, s host.Storage) error) (err error) {
	sqlTx, err := b.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin invocation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
			err = translatePostgres(err, instance)
		}
	}()

	txCtx := txcontext.WithTx(ctx, sqlTx)
	if err := fn(txCtx, &postgresStorage{instance: instance}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit invocation: %w", err)
	}
	return nil
}

// Health pings the database.
func (b *PostgresBackend) Health(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// postgresStorage reads and writes through the transaction carried in ctx.
type postgresStorage struct {
	instance domain.InstanceID
}

func (s *postgresStorage) Get(ctx context.Context, key string) ([]byte, error) {
	sqlTx, ok := txcontext.From(ctx)
	if !ok {
		return nil, errors.New("instance storage used outside an invocation")
	}
	var value []byte
	err := sqlTx.QueryRowContext(ctx,
		`SELECT value FROM instance_storage WHERE instance_id = $1 AND key = $2`,
		s.instance.String(), key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read key %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *postgresStorage) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errEmptyKey
	}
	sqlTx, ok := txcontext.From(ctx)
	if !ok {
		return errors.New("instance storage used outside an invocation")
	}
	if value == nil {
		value = []byte{}
	}
	query := `
		INSERT INTO instance_storage (instance_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (instance_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := sqlTx.ExecContext(ctx, query, s.instance.String(), key, value); err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	return nil
}

func translatePostgres(err error, instance domain.InstanceID) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("instance %s: %w: %v", instance, sentinel.ErrConflict, err)
		}
		return err
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("instance %s: %w: %w", instance, sentinel.ErrUnavailable, err)
	}
	return err
}

var (
	_ host.Backend = (*PostgresBackend)(nil)
	_ host.Storage = (*postgresStorage)(nil)
)
