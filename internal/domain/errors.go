package domain

import "errors"

var (
	// ErrCacheMiss is returned when data is not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidProduct is returned when a scraped offer violates the Product invariants
	ErrInvalidProduct = errors.New("invalid product")

	// ErrMalformedOffer is returned when a source payload is missing a required field
	ErrMalformedOffer = errors.New("malformed offer")

	// ErrUnavailable is returned when an offer exists but has no stock
	ErrUnavailable = errors.New("offer unavailable")

	// ErrSourceFailure is returned when a retailer cannot be reached or answers with an error
	ErrSourceFailure = errors.New("market source request failed")

	// ErrDuplicateMarket is returned when two providers share a name
	ErrDuplicateMarket = errors.New("market already registered")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
)
