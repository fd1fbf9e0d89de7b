// Package common defines sentinel errors shared by the store, transport and
// sync layers of the indexer. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors.
	ErrorInvalidInput = errors.New("invalid input")

	// Raised when the external credentials (database DSN, API client
	// credentials) are rejected and should be reloaded from their source.
	ErrExternalCredential = errors.New("external credential error")
)
