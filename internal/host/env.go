package host

//go:generate mockgen -source=env.go -destination=mocks/mocks.go -package=mocks Storage,Env

import (
	"context"

	"credrec/pkg/domain"
)

// Storage is the instance-scoped key-value namespace one invocation sees.
// Get returns sentinel.ErrNotFound (possibly wrapped) for keys that were
// never set. Reads observe writes made earlier in the same invocation;
// writes become durable only if the invocation commits.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Env is the execution context handed to a contract operation.
type Env interface {
	Instance() domain.InstanceID
	Caller() domain.Caller
	Storage() Storage
}

type env struct {
	instance domain.InstanceID
	caller   domain.Caller
	storage  Storage
}

func (e *env) Instance() domain.InstanceID { return e.instance }
func (e *env) Caller() domain.Caller       { return e.caller }
func (e *env) Storage() Storage            { return e.storage }

// NewEnv builds an Env over an explicit storage handle. The host builds one
// per invocation; tests use it to run operations against a bare Storage.
func NewEnv(instance domain.InstanceID, caller domain.Caller, storage Storage) Env {
	return &env{instance: instance, caller: caller, storage: storage}
}
