package models

import "errors"

// Failure taxonomy. Callers wrap these with fmt.Errorf("...: %w", ...) and
// match with errors.Is.
var (
	// ErrMalformedFeed marks a feed message that could not be decoded
	// against the wire schema. Logged and skipped, never fatal.
	ErrMalformedFeed = errors.New("malformed feed payload")

	// ErrStoreUnavailable marks any failed store call. The triggering
	// operation is abandoned for the current cycle; no retry, no buffering
	// beyond the realtime pipeline.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVenueRejected marks an order the venue refused or that failed to
	// submit. Recorded with status REJECTED, never retried.
	ErrVenueRejected = errors.New("venue rejected order")

	// ErrNoToken means no broker access token was supplied. Startup fatal
	// for every component that talks to the venue.
	ErrNoToken = errors.New("no access token")
)
