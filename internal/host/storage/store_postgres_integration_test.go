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

type PostgresBackendSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	backend  *PostgresBackend
	instance domain.InstanceID
	ctx      context.Context
}

func TestPostgresBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresBackendSuite))
}

func (s *PostgresBackendSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.backend = NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresBackendSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "instance_storage"))
	s.instance = domain.NewInstanceID()
}

func (s *PostgresBackendSuite) set(instance domain.InstanceID, key, value string) error {
	return s.backend.Run(s.ctx, instance, func(ctx context.Context, st host.Storage) error {
		return st.Set(ctx, key, []byte(value))
	})
}

func (s *PostgresBackendSuite) get(instance domain.InstanceID, key string) ([]byte, error) {
	var value []byte
	err := s.backend.Run(s.ctx, instance, func(ctx context.Context, st host.Storage) error {
		var err error
		value, err = st.Get(ctx, key)
		return err
	})
	return value, err
}

func (s *PostgresBackendSuite) TestCommitAndRead() {
	_, err := s.get(s.instance, "hash")
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.backend.Run(s.ctx, s.instance, func(ctx context.Context, st host.Storage) error {
		if err := st.Set(ctx, "hash", []byte("ab12ef")); err != nil {
			return err
		}
		if err := st.Set(ctx, "status", []byte("Active")); err != nil {
			return err
		}
		return st.Set(ctx, "status", []byte("Revoked"))
	})
	s.Require().NoError(err)

	hash, err := s.get(s.instance, "hash")
	s.Require().NoError(err)
	s.Equal([]byte("ab12ef"), hash)
	status, err := s.get(s.instance, "status")
	s.Require().NoError(err)
	s.Equal([]byte("Revoked"), status)
}

func (s *PostgresBackendSuite) TestFailedInvocationRollsBack() {
	boom := errors.New("boom")
	err := s.backend.Run(s.ctx, s.instance, func(ctx context.Context, st host.Storage) error {
		s.Require().NoError(st.Set(ctx, "hash", []byte("ab12ef")))
		value, err := st.Get(ctx, "hash")
		s.Require().NoError(err)
		s.Equal([]byte("ab12ef"), value)
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.get(s.instance, "hash")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresBackendSuite) TestConcurrentCommitIsConflict() {
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

func (s *PostgresBackendSuite) TestSnapshotIgnoresLaterCommits() {
	s.Require().NoError(s.set(s.instance, "hash", "aaaa"))

	err := s.backend.Run(s.ctx, s.instance, func(ctx context.Context, st host.Storage) error {
		first, err := st.Get(ctx, "hash")
		s.Require().NoError(err)
		s.Require().NoError(s.set(s.instance, "hash", "bbbb"))
		second, err := st.Get(ctx, "hash")
		s.Require().NoError(err)
		s.Equal(first, second)
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresBackendSuite) TestEmptyKeyRejected() {
	err := s.set(s.instance, "", "value")
	s.ErrorIs(err, errEmptyKey)
}

func (s *PostgresBackendSuite) TestHealth() {
	s.NoError(s.backend.Health(s.ctx))
}
