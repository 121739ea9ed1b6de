// Package errs defines the tile-serving error taxonomy shared by every
// backend and the request coordinator.
package errs

import "errors"

// Kind classifies a tile-serving failure so the coordinator can map it
// to an HTTP status and a caching decision.
type Kind int

const (
	// KindNotFound covers unknown sources, out-of-bounds zoom/bounds,
	// and tiles absent from an archive.
	KindNotFound Kind = iota
	// KindMalformedRequest covers bad paths, invalid coordinates, and
	// invalid query JSON.
	KindMalformedRequest
	// KindTimeout covers an exceeded per-request deadline.
	KindTimeout
	// KindUpstream covers database and archive I/O failures.
	KindUpstream
	// KindMalformedTile covers corrupt PMTiles headers/directories or
	// unrecognized tile bytes.
	KindMalformedTile
	// KindConfig covers fatal startup configuration errors.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindMalformedRequest:
		return "MalformedRequest"
	case KindTimeout:
		return "Timeout"
	case KindUpstream:
		return "Upstream"
	case KindMalformedTile:
		return "MalformedTile"
	case KindConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// Error is a tile-serving failure tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given Kind around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound, MalformedRequest, Timeout, Upstream, MalformedTile, and
// Config are convenience constructors for the corresponding Kind.
func NotFound(message string) *Error         { return New(KindNotFound, message) }
func MalformedRequest(message string) *Error { return New(KindMalformedRequest, message) }
func Timeout(message string) *Error          { return New(KindTimeout, message) }
func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}
func MalformedTile(message string) *Error { return New(KindMalformedTile, message) }
func Config(message string, err error) *Error {
	return Wrap(KindConfig, message, err)
}

// KindOf extracts the Kind from err, defaulting to KindUpstream for an
// error not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}
