package domain

import "errors"

// Error kinds shared across the core. Adapters map these onto their own
// surfaces: the HTTP layer to status codes, the realtime layer to error
// events.
var (
	// ErrInvalidParameter marks caller-correctable input problems: bad
	// coordinates, out-of-range radii, malformed bounding boxes.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnauthorized is returned when a credential is missing, invalid or
	// expired. Only raised at connection/authentication time.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccountInactive is returned when the credential is valid but the
	// account has been deactivated.
	ErrAccountInactive = errors.New("account inactive")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrQueryFailed wraps storage-level failures from the spatial index.
	ErrQueryFailed = errors.New("query failed")
)
