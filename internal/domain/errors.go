package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotOwner          = errors.New("code belongs to another owner")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientData  = errors.New("insufficient market data")
	ErrAmbiguousIdentity = errors.New("item name matches no catalog entry")
	ErrInvalidCode       = errors.New("invalid listing code")
	ErrInvalidAPIKey     = errors.New("invalid marketplace api key")
	ErrLockHeld          = errors.New("lock already held")
)
