//go:build integration

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"credrec/internal/host"
	"credrec/pkg/domain"
	"credrec/pkg/platform/sentinel"
	"credrec/pkg/testutil/containers"
)

type RedisBackendSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	backend  *RedisBackend
	instance domain.InstanceID
	ctx      context.Context
}

func TestRedisBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBackendSuite))
}

func (s *RedisBackendSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.backend = NewRedis(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisBackendSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.instance = domain.NewInstanceID()
}

func (s *RedisBackendSuite) set(instance domain.InstanceID, key, value string) error {
	return s.backend.Run(s.ctx, instance, func(ctx context.Context, st host.Storage) error {
		return st.Set(ctx, key, []byte(value))
	})
}

func (s *RedisBackendSuite) get(instance domain.InstanceID, key string) ([]byte, error) {
	var value []byte
	err := s.backend.Run(s.ctx, instance, func(ctx context.Context, st host.Storage) error {
		var err error
		value, err = st.Get(ctx, key)
		return err
	})
	return value, err
}

func (s *RedisBackendSuite) TestCommitAndRead() {
	_, err := s.get(s.instance, "hash")
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.backend.Run(s.ctx, s.instance, func(ctx context.Context, st host.Storage) error {
		if err := st.Set(ctx, "hash", []byte("ab12ef")); err != nil {
			return err
		}
		return st.Set(ctx, "status", []byte("Active"))
	})
	s.Require().NoError(err)

	hash, err := s.get(s.instance, "hash")
	s.Require().NoError(err)
	s.Equal([]byte("ab12ef"), hash)
	status, err := s.get(s.instance, "status")
	s.Require().NoError(err)
	s.Equal([]byte("Active"), status)
}

func (s *RedisBackendSuite) TestFailedInvocationWritesNothing() {
	boom := errors.New("boom")
	err := s.backend.Run(s.ctx, s.instance, func(ctx context.Context, st host.Storage) error {
		s.Require().NoError(st.Set(ctx, "hash", []byte("ab12ef")))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.get(s.instance, "hash")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisBackendSuite) TestConcurrentCommitIsConflict() {
	s.Require().NoError(s.set(s.instance, "status", "Active"))

	err := s.backend.Run(s.ctx, s.instance, func(ctx context.Context, st host.Storage) error {
		if _, err := st.Get(ctx, "status"); err != nil {
			return err
		}
		s.Require().NoError(s.set(s.instance, "status", "Suspended"))
		return st.Set(ctx, "status", []byte("Revoked"))
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	status, err := s.get(s.instance, "status")
	s.Require().NoError(err)
	s.Equal([]byte("Suspended"), status)
}

func (s *RedisBackendSuite) TestInstancesAreIsolated() {
	other := domain.NewInstanceID()
	s.Require().NoError(s.set(s.instance, "hash", "aaaa"))
	s.Require().NoError(s.set(other, "hash", "bbbb"))

	first, err := s.get(s.instance, "hash")
	s.Require().NoError(err)
	second, err := s.get(other, "hash")
	s.Require().NoError(err)
	s.Equal([]byte("aaaa"), first)
	s.Equal([]byte("bbbb"), second)
}

func (s *RedisBackendSuite) TestHealth() {
	s.NoError(s.backend.Health(s.ctx))
}
