package fetch

import "errors"

var (
	// ErrFetchBlocked is returned once every attempt for a URL failed validation or transport.
	ErrFetchBlocked = errors.New("fetch blocked")
	// ErrMissingCredentials means neither Bright Data nor ScraperAPI is configured.
	ErrMissingCredentials = errors.New("no unblocking provider credentials configured")

	errTooShort  = errors.New("response too short, likely blocked")
	errChallenge = errors.New("got challenge page, provider did not bypass it")
)
