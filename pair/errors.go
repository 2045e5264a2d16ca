package pair

import "errors"

var (
	ErrReentrancy              = errors.New("Pair: Reentrancy")
	ErrLowLiquidity            = errors.New("Pair: low liquidity")
	ErrInsufficientLiquidity   = errors.New("Pair: not enough liquidity")
	ErrNoZeroAmount            = errors.New("Pair: no zero amount")
	ErrInvalidRecipient        = errors.New("Pair: invalid recipient")
	ErrInsufficientInputAmount = errors.New("Pair: insufficient input amount")
	ErrKError                  = errors.New("Pair: K error")
	ErrMissingObservation      = errors.New("Pair: Missing observation")
	ErrExpired                 = errors.New("Pair: Expired")
	ErrInvalidSignature        = errors.New("Pair: invalid signature")
	ErrInvalidToken            = errors.New("Pair: invalid token")
	ErrInvalidCallee           = errors.New("Pair: invalid callee")
	ErrTransferFailed          = errors.New("Pair: transfer failed")
	ErrInsufficientBalance     = errors.New("Pair: insufficient balance")
	ErrInsufficientAllowance   = errors.New("Pair: insufficient allowance")

	ErrUnauthorized      = errors.New("Fees: only the pair")
	ErrFeeTransferFailed = errors.New("Fees: failed to transfer")
)
