package services

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input. Nothing has been written when it
// is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DuplicateError is returned when a record with the same unique key already
// exists. No chain call has been made.
type DuplicateError struct {
	Kind string
	Key  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %s is already registered", e.Kind, e.Key)
}

// Saga steps
const (
	StepMint        = "mint"
	StepLink        = "link"
	StepSetTokenURI = "set_token_uri"
)

// SagaError describes a registration that failed after its record was
// created. State is the state the saga ended in. When Compensated is false
// the record was kept; TokenID is set when a token was minted.
type SagaError struct {
	Kind        string
	Key         string
	State       string
	Step        string
	TokenID     string
	Compensated bool
	Err         error
}

func (e *SagaError) Error() string {
	action := "kept"
	if e.Compensated {
		action = "rolled back"
	}
	return fmt.Sprintf("register %s %s: %s failed, record %s: %v", e.Kind, e.Key, e.Step, action, e.Err)
}

func (e *SagaError) Unwrap() error { return e.Err }

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}
