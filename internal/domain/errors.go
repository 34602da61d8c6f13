package domain

import "errors"

var (
	// ErrUnauthenticated means the backend rejected the bearer credential
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrCredentialNotFound means no credential is stored for a session
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialExpired means the stored credential is past its expiry
	ErrCredentialExpired = errors.New("credential expired")

	// ErrInsufficientFunds means the cost exceeds the cached balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientStock means a physical product has fewer units than requested
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantity means the requested quantity is not a positive number
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrNotFound means a referenced product or asset does not exist
	ErrNotFound = errors.New("not found")
)
