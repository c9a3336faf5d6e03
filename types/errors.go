package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds shared by every package. Callers test with errors.Is / errors.As.
var (
	// ErrContractViolation marks invalid shapes or counts passed to a core function.
	// Nothing is computed when it is returned.
	ErrContractViolation = errors.New("contract violation")

	// ErrOracleFailure marks a neighbor-finding failure for a given set of coordinates.
	// It is fatal for that mesh, retrying with the same input gives the same answer.
	ErrOracleFailure = errors.New("connectivity oracle failure")

	// ErrMissingField marks a field name that is absent from a mesh file.
	ErrMissingField = errors.New("field not found")
)

func ContractViolation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

func OracleFailure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrOracleFailure, fmt.Sprintf(format, args...))
}

// MissingFieldError names the requested field and everything that was available instead.
type MissingFieldError struct {
	Field     string
	Available []string
	Source    string
}

func NewMissingFieldError(field, source string, available []string) *MissingFieldError {
	names := make([]string, len(available))
	copy(names, available)
	sort.Strings(names)
	return &MissingFieldError{
		Field:     field,
		Available: names,
		Source:    source,
	}
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %q not available in [%s] for %s",
		ErrMissingField, e.Field, strings.Join(e.Available, ", "), e.Source)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }
