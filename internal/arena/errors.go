package arena

import "errors"

var (
	// ErrNotConnected is returned when a replicated call needs a transport
	ErrNotConnected = errors.New("arena: not connected")
	// ErrUnknownKind is returned for message kinds this build does not know
	ErrUnknownKind = errors.New("arena: unknown message kind")
	// ErrBadVersion is returned for messages with another schema version
	ErrBadVersion = errors.New("arena: unsupported schema version")
	// ErrInvalidName is returned for blank nicknames and room names
	ErrInvalidName = errors.New("arena: name must not be blank")
)
