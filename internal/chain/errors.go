package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrChainUnavailable is returned when no signing account or contract is
	// configured. It is never retried.
	ErrChainUnavailable = errors.New("chain unavailable: account or contract not configured")

	ErrTokenNotFound   = errors.New("token not found")
	ErrInvalidTokenID  = errors.New("invalid token id")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrTxReverted      = errors.New("transaction reverted")
	ErrDegradedTokenID = errors.New("token id not recovered from receipt")
	ErrValueOutOfRange = errors.New("value does not fit in uint64")
)

// MintError wraps any failure of a mint call.
type MintError struct {
	Err error
}

func (e *MintError) Error() string { return fmt.Sprintf("mint failed: %v", e.Err) }
func (e *MintError) Unwrap() error { return e.Err }

// MetadataWriteError wraps any failure of a setTokenURI call.
type MetadataWriteError struct {
	TokenID string
	Err     error
}

func (e *MetadataWriteError) Error() string {
	return fmt.Sprintf("set token uri %s failed: %v", e.TokenID, e.Err)
}
func (e *MetadataWriteError) Unwrap() error { return e.Err }

// QueryError wraps a failed read-only call.
type QueryError struct {
	Method string
	Err    error
}

func (e *QueryError) Error() string { return fmt.Sprintf("%s query failed: %v", e.Method, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

func mintErr(err error) error {
	if errors.Is(err, ErrChainUnavailable) {
		return err
	}
	return &MintError{Err: err}
}

func metadataErr(tokenID string, err error) error {
	if errors.Is(err, ErrChainUnavailable) {
		return err
	}
	return &MetadataWriteError{TokenID: tokenID, Err: err}
}

func queryErr(method string, err error) error {
	return &QueryError{Method: method, Err: err}
}
