package domain

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrEntryExists              = errors.New("entry already exists for this day")
	ErrInvalidSubscriptionState = errors.New("invalid subscription state")
	ErrInvalidTone              = errors.New("invalid tone")
)
