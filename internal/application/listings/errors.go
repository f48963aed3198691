package listings

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrMissingExternal = errors.New("external_id is required")
)
