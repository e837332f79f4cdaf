package promo

import "errors"

var (
	ErrCodeRequired = errors.New("promo code is required")
	ErrCodeNotFound = errors.New("invalid promo code")
)
