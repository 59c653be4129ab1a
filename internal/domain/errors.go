package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrRateLimited      = errors.New("rate limited")
	ErrUpstream         = errors.New("upstream request failed")
)
