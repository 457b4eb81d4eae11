package models

import (
	"fmt"

	dErrors "credrec/pkg/domain-errors"
)

// Status is the lifecycle state of a credential. The zero value is not a
// valid status; only the declared constants are representable in storage
// and on the wire.
type Status int

const (
	StatusActive Status = iota + 1
	StatusRevoked
	StatusSuspended
)

// Statuses lists every valid status in declaration order.
var Statuses = []Status{StatusActive, StatusRevoked, StatusSuspended}

// ParseStatus converts a status name into a Status. Names are case-sensitive
// and match String().
func ParseStatus(s string) (Status, error) {
	switch s {
	case "Active":
		return StatusActive, nil
	case "Revoked":
		return StatusRevoked, nil
	case "Suspended":
		return StatusSuspended, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown credential status %q", s))
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusRevoked:
		return "Revoked"
	case StatusSuspended:
		return "Suspended"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusSuspended:
		return true
	default:
		return false
	}
}

// MarshalText encodes the status by name. Invalid statuses do not encode.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("cannot encode invalid status %d", int(s)))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name, rejecting anything outside the set.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
