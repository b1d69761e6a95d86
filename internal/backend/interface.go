package backend

import (
	"context"

	"trackify/internal/mirror"
	"trackify/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// MirrorResult contains the remote mirror and everything built around it.
type MirrorResult struct {
	// Mirror serves reads and score publication.
	Mirror mirror.Mirror
	// Writer receives transaction writes. It is the AMQP publisher when a
	// queue is configured and Mirror otherwise.
	Writer mirror.Writer
	// Tokens is nil when the backend cannot hold access tokens.
	Tokens mirror.TokenStore
	// Queued reports whether Writer publishes to AMQP.
	Queued  bool
	Cleanup CleanupFunc
}

// Factory creates the remote mirror and the bank source from configuration.
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
	CreateSource(config Config) (source.Source, error)
}

// Config holds configuration for backend creation
type Config struct {
	Mirror MirrorType
	Source SourceType

	// Firestore specific
	FirebaseCredentialsFile string
	FirebaseProjectID       string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP; an empty URL writes the mirror directly
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Teller specific
	TellerBaseURL string
	TellerVersion string

	// Plaid specific
	PlaidClientID     string
	PlaidSecret       string
	PlaidEnv          string
	PlaidLookbackDays int
}

// MirrorType represents the type of remote mirror
type MirrorType string

const (
	MemoryMirror    MirrorType = "memory"
	FirestoreMirror MirrorType = "firestore"
	SheetsMirror    MirrorType = "sheets"
)

// String implements fmt.Stringer
func (mt MirrorType) String() string {
	return string(mt)
}

// IsValid returns true if the mirror type is valid
func (mt MirrorType) IsValid() bool {
	switch mt {
	case MemoryMirror, FirestoreMirror, SheetsMirror:
		return true
	default:
		return false
	}
}

// SourceType represents the bank-data provider
type SourceType string

const (
	TellerSource SourceType = "teller"
	PlaidSource  SourceType = "plaid"
)

func (st SourceType) String() string {
	return string(st)
}

func (st SourceType) IsValid() bool {
	return st == TellerSource || st == PlaidSource
}
