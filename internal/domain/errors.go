package domain

import "errors"

var (
	// ErrInvalidRecord is returned when an input line is not a valid product or listing
	ErrInvalidRecord = errors.New("invalid input record")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrClassificationFailed is returned when classifying a single listing panics
	ErrClassificationFailed = errors.New("listing classification failed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
