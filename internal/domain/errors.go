package domain

import "errors"

// ErrNotFound is returned by store and service functions when the requested
// job does not exist. Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. empty destination, non-positive duration) or when generated output
// does not match the required itinerary shape.
// Handlers should map this to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrAuth is returned when minting or exchanging an access token fails.
var ErrAuth = errors.New("auth error")

// ErrStore is returned when a document store write reports a non-success
// result. Reads map store failures to ErrNotFound instead.
var ErrStore = errors.New("store error")

// ErrEncoding is returned when a value cannot be represented in the store's
// tagged wire format.
var ErrEncoding = errors.New("encoding error")

// ErrBadResponse is returned when the generative service produces output
// that is not parseable as the expected JSON document. Unlike ErrValidation
// it is subject to the generation retry budget.
var ErrBadResponse = errors.New("malformed generation response")
