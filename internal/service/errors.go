// Package service implements seat-inventory arbitration for flight cabins:
// status derivation, overbooking, holds, the waitlist, allocation, expiry
// sweeps and demand forecasting.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// Error taxonomy returned by every exported operation.  Callers test with
// errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrConflict          = errors.New("conflict")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnavailable       = errors.New("unavailable")
)

// translate maps storage sentinels onto the service taxonomy.  Errors that
// already carry a service sentinel pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range []error{ErrNotFound, ErrInvalidArgument, ErrConflict, ErrResourceExhausted, ErrUnavailable} {
		if errors.Is(err, s) {
			return err
		}
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
