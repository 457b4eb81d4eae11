// Package domain provides type-safe identifiers shared across the host and
// the credential contract.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "credrec/pkg/domain-errors"
)

// InstanceID addresses one deployed credential contract instance.
type InstanceID uuid.UUID

// Caller identifies the party invoking an operation. The empty Caller is
// anonymous.
type Caller string

// Anonymous is the caller used when no identity was presented.
const Anonymous Caller = ""

// NewInstanceID returns a random instance id.
func NewInstanceID() InstanceID { return InstanceID(uuid.New()) }

// ParseInstanceID parses an instance id at a trust boundary.
func ParseInstanceID(s string) (InstanceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return InstanceID{}, dErrors.New(dErrors.CodeInvalidInput, "instance ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return InstanceID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid instance ID")
	}
	if parsed == uuid.Nil {
		return InstanceID{}, dErrors.New(dErrors.CodeInvalidInput, "instance ID cannot be nil")
	}
	return InstanceID(parsed), nil
}

func (id InstanceID) String() string { return uuid.UUID(id).String() }
func (id InstanceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (c Caller) String() string    { return string(c) }
func (c Caller) IsAnonymous() bool { return c == Anonymous }
