package service

import (
	"errors"

	"github.com/earnhub/backend/internal/repository"
)

// Callers match these with errors.Is; detail is attached by wrapping.
var (
	ErrValidation             = errors.New("validation error")
	ErrQuotaExceeded          = errors.New("daily quota exceeded")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrBelowMinimumWithdrawal = errors.New("amount is below the minimum withdrawal")
	ErrInvalidState           = errors.New("invalid state")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrAlreadyResolved        = errors.New("hold already resolved")
	ErrInvalidOffer           = errors.New("invalid offer")
	ErrForbidden              = errors.New("forbidden")

	ErrNotFound = repository.ErrNotFound
	ErrConflict = repository.ErrConflict
)
