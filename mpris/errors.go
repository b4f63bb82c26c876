package mpris

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTransport is returned when a player is composed without a transport
	ErrNoTransport = errors.New("mpris: transport is required")

	// ErrMissingMetadata is returned when the player config carries no current track
	ErrMissingMetadata = errors.New("mpris: player metadata must be set")

	// ErrMissingActivePlaylist is returned when a playlists config has no active playlist
	ErrMissingActivePlaylist = errors.New("mpris: active playlist must be set")

	// ErrNullMetadata is returned by SetMetadata for an unbuilt Metadata value
	ErrNullMetadata = errors.New("mpris: metadata is empty")

	// ErrIntentDisabled is returned by a relay whose capability flags are off
	ErrIntentDisabled = errors.New("mpris: intent disabled by capability flags")

	ErrQueueClosed = errors.New("mpris: intent queue closed")
	ErrClosed      = errors.New("mpris: player closed")

	// Inbound dispatch failures; transports map these onto their own error names.
	ErrUnknownInterface = errors.New("mpris: unknown interface")
	ErrUnknownMethod    = errors.New("mpris: unknown method")
	ErrUnknownProperty  = errors.New("mpris: unknown property")
	ErrPropertyReadOnly = errors.New("mpris: property is read-only")
	ErrInvalidArgs      = errors.New("mpris: invalid arguments")
)

// ValidationError reports a configuration or metadata field that failed validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mpris: invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps a failure reported by the Transport
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mpris: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
