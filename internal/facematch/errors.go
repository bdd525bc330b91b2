package facematch

import "errors"

// Sentinel errors returned by engine operations. Callers translate these
// into response codes with errors.Is.
var (
	// ErrFaceNotFound indicates the face id does not resolve.
	ErrFaceNotFound = errors.New("face not found")

	// ErrPersonNotFound indicates the person id does not resolve.
	ErrPersonNotFound = errors.New("person not found")

	// ErrOwnerMismatch indicates an attempt to merge people belonging to
	// different owners.
	ErrOwnerMismatch = errors.New("people belong to different owners")
)
