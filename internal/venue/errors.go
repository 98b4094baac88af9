package venue

import "errors"

var (
	// ErrUnsupportedVenue is returned at construction when the venue
	// identifier does not name a supported exchange.
	ErrUnsupportedVenue = errors.New("venue: unsupported venue")
	// ErrUnsupportedSymbol is returned at construction when a symbol
	// cannot be parsed into a supported product class for the venue.
	ErrUnsupportedSymbol = errors.New("venue: unsupported symbol")
	// ErrUnsupportedStream is returned by a Decoder method the venue does
	// not implement for the requested product class (e.g. incremental
	// depth on a venue that only publishes level snapshots).
	ErrUnsupportedStream = errors.New("venue: unsupported stream for this venue/product")
	// ErrMalformedFrame is returned when a frame cannot be decoded at all;
	// callers treat this as a transient, per-frame error.
	ErrMalformedFrame = errors.New("venue: malformed frame")
)
