package models

import (
	"strings"

	dErrors "credrec/pkg/domain-errors"
)

// CredentialInfo is the combined snapshot returned by get_credential_info.
type CredentialInfo struct {
	Hash   string `json:"hash"`
	Status Status `json:"status"`
}

// InitializeRequest is the body of an initialize invocation.
type InitializeRequest struct {
	Hash   string `json:"hash"`
	Status Status `json:"status"`
}

// Validate requires a non-blank fingerprint and a declared status. The
// fingerprint is stored byte for byte; its format is otherwise unconstrained.
func (r *InitializeRequest) Validate() error {
	if strings.TrimSpace(r.Hash) == "" {
		return dErrors.New(dErrors.CodeValidation, "hash is required")
	}
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	return nil
}

// UpdateStatusRequest is the body of an update_status invocation.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// Validate requires a declared status.
func (r *UpdateStatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	return nil
}

// HashResponse is returned by get_hash.
type HashResponse struct {
	Hash string `json:"hash"`
}

// StatusResponse is returned by get_status.
type StatusResponse struct {
	Status Status `json:"status"`
}
