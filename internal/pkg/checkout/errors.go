package checkout

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnprocessable    = errors.New("payment not completed")
	ErrConfiguration    = errors.New("invalid checkout configuration")
	ErrGateway          = errors.New("payment gateway returned no usable session")
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	ErrAlreadyPurchased = errors.New("course already purchased")
	ErrInvalidInput     = errors.New("invalid input")
)
