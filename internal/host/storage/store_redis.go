package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/redis/go-redis/v9"

	"credrec/internal/host"
	"credrec/pkg/domain"
	"credrec/pkg/platform/sentinel"
)

const (
	// Redis key prefix for instance storage hashes
	instanceKeyPrefix = "credrec:instance:"
)

// RedisBackend stores each instance as one Redis hash. An invocation
// WATCHes the hash, reads it whole as its snapshot, and flushes buffered
// writes in MULTI/EXEC. A concurrent commit to the same instance aborts
// the EXEC and the invocation fails with sentinel.ErrConflict.
type RedisBackend struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Run(ctx context.Context, instance domain.InstanceID, fn func(ctx context.Context, s host.Storage) error) error {
	key := instanceKey(instance)
	var fnErr error
	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("load instance snapshot: %w", err)
		}
		snapshot := make(map[string][]byte, len(fields))
		for field, value := range fields {
			snapshot[field] = []byte(value)
		}

		v := newView(snapshot)
		if fnErr = fn(ctx, v); fnErr != nil {
			return fnErr
		}
		writes := v.pending()
		if len(writes) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			values := make([]any, 0, len(writes)*2)
			for _, e := range writes {
				values = append(values, e.key, e.value)
			}
			pipe.HSet(ctx, key, values...)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil, fnErr != nil:
		return err
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("instance %s: %w", instance, sentinel.ErrConflict)
	case isRedisConnError(err):
		return fmt.Errorf("instance %s: %w: %w", instance, sentinel.ErrUnavailable, err)
	}
	return err
}

func isRedisConnError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF)
}

// Health pings Redis.
func (b *RedisBackend) Health(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func instanceKey(instance domain.InstanceID) string {
	return instanceKeyPrefix + instance.String()
}

var _ host.Backend = (*RedisBackend)(nil)
