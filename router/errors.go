package router

import "errors"

var (
	ErrExpired              = errors.New("Router: Expired")
	ErrIdenticalAddresses   = errors.New("Router: Same address")
	ErrZeroAddress          = errors.New("Router: Zero address")
	ErrInvalidPath          = errors.New("Router: invalid path")
	ErrZeroAmount           = errors.New("Router: zero amount")
	ErrNoLiquidity          = errors.New("Router: no liquidity")
	ErrInsufficientAmountA  = errors.New("Router: insufficient A amount")
	ErrInsufficientAmountB  = errors.New("Router: insufficient B amount")
	ErrInsufficientOutput   = errors.New("Router: insufficient output")
	ErrInvalidRoute         = errors.New("Router: invalid route")
	ErrTransferFailed       = errors.New("Router: transfer failed")
	ErrTransferFromFailed   = errors.New("Router: transfer from failed")
	ErrNativeTransferFailed = errors.New("Router: native token transfer failed")
	ErrPairNotFound         = errors.New("Router: pair not found")
	ErrUnexpectedNative     = errors.New("Router: native sends only from the wrapped token")
	ErrNoRoute              = errors.New("Router: no route")
)
