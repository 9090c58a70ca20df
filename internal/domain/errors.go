package domain

import "errors"

var (
	// ErrInputMissing is returned when a meal analysis has neither image nor text.
	ErrInputMissing = errors.New("either an image or a meal description is required")

	// ErrMissingCredential is returned when the provider API key is not configured.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrUpstreamUnavailable wraps embedding and generation provider failures.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrUnsupportedImage is returned for image payloads that are not images.
	ErrUnsupportedImage = errors.New("unsupported image format")

	ErrEmptyEmbedding    = errors.New("chunk has an empty embedding")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
