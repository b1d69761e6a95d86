package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoAccounts       = errors.New("no accounts found")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyUserID      = errors.New("empty user id")
	ErrEmptyID          = errors.New("empty transaction id")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrNotFound         = errors.New("not found")
	ErrNoAccessToken    = errors.New("no access token")
)

// SourceError wraps a failure talking to the bank-data source.
// It is surfaced to the caller and is user-retriable.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// StorageError wraps a local persistence fault.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MirrorError wraps a remote mirror failure. It is logged and never returned
// from engine operations.
type MirrorError struct {
	Op     string
	UserID string
	Err    error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("mirror %s (user %s): %v", e.Op, e.UserID, e.Err)
}

func (e *MirrorError) Unwrap() error { return e.Err }

// IsSourceError reports whether err is or wraps a *SourceError.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
