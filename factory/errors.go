package factory

import "errors"

var (
	ErrZeroAddress     = errors.New("Factory: Zero address")
	ErrInvalidPair     = errors.New("Factory: Invalid")
	ErrAlreadyDeployed = errors.New("Factory: Already deployed")
	ErrUnauthorized    = errors.New("Factory: Unauthorized")
	ErrTokenNotFound   = errors.New("Factory: token not found")
)
