package contract

import (
	"context"

	"credrec/pkg/domain"
)

type Option func(*Contract)

// WithInitializeOnce rejects Initialize once a hash has been stored.
func WithInitializeOnce() Option {
	return func(c *Contract) {
		c.initializeOnce = true
	}
}

// WithInitializedUpdatesOnly rejects UpdateStatus with ErrNotInitialized
// until Initialize has run, so status never exists without a hash.
func WithInitializedUpdatesOnly() Option {
	return func(c *Contract) {
		c.initializedUpdatesOnly = true
	}
}

// WithAuthorizer checks the caller of every write. Reads stay open.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Contract) {
		c.authorizer = a
	}
}

// Authorizer decides whether caller may run the write op.
type Authorizer interface {
	Authorize(ctx context.Context, caller domain.Caller, op string) error
}

// AllowCallers authorizes exactly the listed callers for every write.
// Anonymous callers are never authorized.
func AllowCallers(callers ...domain.Caller) Authorizer {
	allowed := make(map[domain.Caller]struct{}, len(callers))
	for _, c := range callers {
		if !c.IsAnonymous() {
			allowed[c] = struct{}{}
		}
	}
	return allowList(allowed)
}

type allowList map[domain.Caller]struct{}

func (a allowList) Authorize(_ context.Context, caller domain.Caller, _ string) error {
	if _, ok := a[caller]; ok {
		return nil
	}
	return ErrUnauthorized
}
