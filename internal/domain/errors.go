package domain

import "errors"

var (
	// ErrProductNotFound is returned when no catalog product matches
	ErrProductNotFound = errors.New("product not found")

	// ErrProductExists is returned when (canonical name, canonical unit) is already taken
	ErrProductExists = errors.New("product already exists")

	// ErrAliasNotFound is returned when an alias id does not exist
	ErrAliasNotFound = errors.New("alias not found")

	// ErrAliasConflict is returned when an alias already maps to a different product
	ErrAliasConflict = errors.New("alias already maps to a different product")

	// ErrAliasExists is returned by stores when the (alias text, language) key is taken
	ErrAliasExists = errors.New("alias already exists")

	// ErrLowConfidence is returned when the match confidence is below the threshold
	ErrLowConfidence = errors.New("match confidence below threshold")

	// ErrStalePrice is returned when an observation predates the current one
	ErrStalePrice = errors.New("price observation older than current price")

	// ErrConcurrentUpdate is returned when another writer opened a price first
	ErrConcurrentUpdate = errors.New("concurrent price update")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
