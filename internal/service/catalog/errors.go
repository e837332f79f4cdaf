package catalog

import "errors"

var (
	ErrExperienceNotFound = errors.New("experience not found")
	ErrInvalidSlot        = errors.New("invalid slot")
)
