// Package contract implements the credential record: one fingerprint and one
// lifecycle status kept in the instance storage of a deployed contract
// instance.
//
// Every operation reads and writes only through the host.Env it is given.
// Atomicity, ordering and durability belong to the host; nothing here
// locks, retries or times out.
package contract

import (
	"context"
	"errors"

	"credrec/internal/credential/models"
	"credrec/internal/host"
	dErrors "credrec/pkg/domain-errors"
	"credrec/pkg/platform/sentinel"
)

// Instance storage keys.
const (
	HashKey   = "hash"
	StatusKey = "status"
)

// Entry point names, used for authorization, metrics and logs.
const (
	OpInitialize        = "initialize"
	OpGetHash           = "get_hash"
	OpGetStatus         = "get_status"
	OpGetCredentialInfo = "get_credential_info"
	OpUpdateStatus      = "update_status"
)

var (
	// ErrNotInitialized is returned by reads when a key was never written.
	ErrNotInitialized = dErrors.New(dErrors.CodeNotInitialized, "credential record not initialized")
	// ErrAlreadyInitialized is returned by Initialize under WithInitializeOnce.
	ErrAlreadyInitialized = dErrors.New(dErrors.CodeConflict, "credential record already initialized")
	// ErrUnauthorized is returned by writes the configured Authorizer refuses.
	ErrUnauthorized = dErrors.New(dErrors.CodeForbidden, "caller not authorized")
)

// Contract holds the record's entry points. The zero configuration (New
// with no options) places no guard on Initialize or UpdateStatus.
type Contract struct {
	initializeOnce         bool
	initializedUpdatesOnly bool
	authorizer             Authorizer
}

// New constructs a Contract.
func New(opts ...Option) *Contract {
	c := &Contract{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize writes both fields, overwriting any previous values.
func (c *Contract) Initialize(ctx context.Context, env host.Env, hash string, status models.Status) error {
	if err := c.authorize(ctx, env, OpInitialize); err != nil {
		return err
	}
	encoded, err := encodeStatus(status)
	if err != nil {
		return err
	}

	store := env.Storage()
	if c.initializeOnce {
		initialized, err := isSet(ctx, store, HashKey)
		if err != nil {
			return err
		}
		if initialized {
			return ErrAlreadyInitialized
		}
	}

	if err := store.Set(ctx, HashKey, []byte(hash)); err != nil {
		return hostFailure(err, "write hash")
	}
	if err := store.Set(ctx, StatusKey, encoded); err != nil {
		return hostFailure(err, "write status")
	}
	return nil
}

// GetHash returns the stored fingerprint.
func (c *Contract) GetHash(ctx context.Context, env host.Env) (string, error) {
	return readHash(ctx, env.Storage())
}

// GetStatus returns the stored status.
func (c *Contract) GetStatus(ctx context.Context, env host.Env) (models.Status, error) {
	return readStatus(ctx, env.Storage())
}

// GetCredentialInfo returns both fields. The two reads share the
// invocation's snapshot, so they cannot straddle another invocation's write.
func (c *Contract) GetCredentialInfo(ctx context.Context, env host.Env) (models.CredentialInfo, error) {
	store := env.Storage()
	hash, err := readHash(ctx, store)
	if err != nil {
		return models.CredentialInfo{}, err
	}
	status, err := readStatus(ctx, store)
	if err != nil {
		return models.CredentialInfo{}, err
	}
	return models.CredentialInfo{Hash: hash, Status: status}, nil
}

// UpdateStatus overwrites the status and leaves the hash untouched. Any
// transition is accepted, including out of Revoked. Without
// WithInitializedUpdatesOnly it also succeeds before Initialize, leaving a
// status with no hash.
func (c *Contract) UpdateStatus(ctx context.Context, env host.Env, status models.Status) error {
	if err := c.authorize(ctx, env, OpUpdateStatus); err != nil {
		return err
	}
	encoded, err := encodeStatus(status)
	if err != nil {
		return err
	}

	store := env.Storage()
	if c.initializedUpdatesOnly {
		initialized, err := isSet(ctx, store, HashKey)
		if err != nil {
			return err
		}
		if !initialized {
			return ErrNotInitialized
		}
	}

	if err := store.Set(ctx, StatusKey, encoded); err != nil {
		return hostFailure(err, "write status")
	}
	return nil
}

func (c *Contract) authorize(ctx context.Context, env host.Env, op string) error {
	if c.authorizer == nil {
		return nil
	}
	if err := c.authorizer.Authorize(ctx, env.Caller(), op); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeForbidden, "caller not authorized")
	}
	return nil
}

func readHash(ctx context.Context, store host.Storage) (string, error) {
	raw, err := store.Get(ctx, HashKey)
	if err != nil {
		return "", readFailure(err, "read hash")
	}
	return string(raw), nil
}

func readStatus(ctx context.Context, store host.Storage) (models.Status, error) {
	raw, err := store.Get(ctx, StatusKey)
	if err != nil {
		return 0, readFailure(err, "read status")
	}
	status, err := models.ParseStatus(string(raw))
	if err != nil {
		return 0, hostFailure(err, "decode stored status")
	}
	return status, nil
}

func isSet(ctx context.Context, store host.Storage, key string) (bool, error) {
	_, err := store.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, hostFailure(err, "read "+key)
	}
}

func encodeStatus(status models.Status) ([]byte, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "status must be Active, Revoked or Suspended")
	}
	return []byte(status.String()), nil
}

func readFailure(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return ErrNotInitialized
	}
	return hostFailure(err, msg)
}

// hostFailure always classifies err as a host failure, even when the cause
// carries its own domain code (a corrupt stored status, for example).
func hostFailure(err error, msg string) error {
	return &dErrors.Error{Code: dErrors.CodeHostFailure, Message: msg, Err: err}
}
