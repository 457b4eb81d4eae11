package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Storage backends return these
// (optionally wrapped) so the contract and host can translate them into
// domain errors.
//
// These represent factual states about storage, not validation failures:
// - ErrNotFound: key does not exist in instance storage
// - ErrConflict: a concurrent invocation committed first
// - ErrUnavailable: backend temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
