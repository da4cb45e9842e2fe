package nodestore

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when a requested node ID has no record.
var ErrNodeNotFound = errors.New("node not found")

// ErrIntegrity is matched by any IntegrityError via errors.Is.
var ErrIntegrity = errors.New("integrity violation")

// IntegrityError is returned when an insert references a parent that does not
// exist. No record is created.
type IntegrityError struct {
	Parent NodeID
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("parent node %d does not exist", e.Parent)
}

func (e IntegrityError) Is(target error) bool {
	if target == ErrIntegrity {
		return true
	}
	_, ok := target.(IntegrityError)
	return ok
}

// NewIntegrityError constructs an IntegrityError for the given parent.
func NewIntegrityError(parent NodeID) IntegrityError {
	return IntegrityError{Parent: parent}
}
