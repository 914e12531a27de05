package service

import "errors"

var (
	ErrValidation         = errors.New("validation")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOutOfStock         = errors.New("out of stock")
	ErrItemNotFound       = errors.New("item not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrNoPaymentIntent    = errors.New("no payment intent for order")

	// Amount and currency mismatches are fraud signals: the order is forced
	// to Failed and its reservation released, never silently accepted.
	ErrAmountMismatch   = errors.New("payment amount mismatch")
	ErrCurrencyMismatch = errors.New("payment currency mismatch")

	ErrInvalidSignature = errors.New("invalid webhook signature")
)
