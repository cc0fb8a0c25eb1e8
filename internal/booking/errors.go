package booking

import (
	"context"
	"errors"

	"github.com/iliyamo/show-reservation/internal/catalog"
	"github.com/iliyamo/show-reservation/internal/errs"
	"github.com/iliyamo/show-reservation/internal/ledger"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// Errors shared with the catalog and the ledger keep their identity so
// errors.Is works across packages.
var (
	ErrShowNotFound      = catalog.ErrShowNotFound
	ErrInvalidSection    = catalog.ErrInvalidSection
	ErrPricingMismatch   = catalog.ErrPricingMismatch
	ErrInsufficientFunds = ledger.ErrInsufficientFunds

	ErrInvalidRequest           = errs.New(errs.KindValidation, "invalid_request", "user, show and seat are required")
	ErrInvalidDate              = errs.New(errs.KindValidation, "invalid_date", "the show does not play on that date")
	ErrInvalidSeat              = errs.New(errs.KindValidation, "invalid_seat", "seat number is outside the section")
	ErrSeatAlreadyBooked        = errs.New(errs.KindConcurrency, "seat_already_booked", "seat is already booked")
	ErrConflict                 = errs.New(errs.KindConcurrency, "conflict", "concurrent update, retry the request")
	ErrReservationNotFound      = errs.New(errs.KindNotFound, "reservation_not_found", "reservation not found")
	ErrUnauthorized             = errs.New(errs.KindUnauthorized, "forbidden", "reservation belongs to another user")
	ErrCancellationWindowClosed = errs.New(errs.KindBusinessRule, "cancellation_window_closed", "reservations cannot be cancelled this close to the performance")
)

// Retryable reports whether the same request may succeed when sent again.
func Retryable(err error) bool { return errors.Is(err, ErrConflict) }

// translate maps storage failures that escape a unit of work onto booking
// errors. Domain errors pass through untouched.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateKey):
		return ErrSeatAlreadyBooked
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, context.DeadlineExceeded):
		return ErrConflict
	}
	return err
}
