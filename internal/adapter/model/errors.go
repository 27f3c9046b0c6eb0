package model

import "errors"

var (
	// ErrMissingCredential indicates the adapter was constructed without
	// an API key.
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnauthorized indicates the configured API key was rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrModelUnavailable indicates the requested model does not exist or
	// returned nothing usable.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrContentBlocked indicates the provider refused the request on
	// safety grounds.
	ErrContentBlocked = errors.New("content blocked")
	// ErrInvalidImageFormat indicates an unsupported or empty image payload.
	ErrInvalidImageFormat = errors.New("invalid image format")
)
