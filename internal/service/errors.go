package service

import (
	"errors"
	"fmt"
)

var (
	ErrShowNotFound    = errors.New("show not found")
	ErrBookingNotFound = errors.New("booking not found")

	ErrSeatsUnavailable = errors.New("seats unavailable")
	ErrInvalidSeats     = errors.New("invalid seat selection")
	ErrTooManySeats     = errors.New("too many seats requested")
	ErrInvalidShowInput = errors.New("invalid show input")

	ErrMissingBookingID = errors.New("payment event has no booking id")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnauthorized     = errors.New("booking belongs to another user")

	ErrGateway          = errors.New("payment gateway error")
	ErrTransientStorage = errors.New("storage temporarily unavailable")
)

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrTransientStorage, err)
}

func gatewayErr(err error) error {
	return fmt.Errorf("%w: %v", ErrGateway, err)
}
