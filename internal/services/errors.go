package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

var (
	// ErrValidation marks malformed or out-of-range input. State is unchanged.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized marks an actor whose declared identity does not permit the action.
	ErrUnauthorized = errors.New("authorization error")
	// ErrNotFound marks a reference to an order, listing or conversation that does not exist.
	ErrNotFound = errors.New("not found")
)

// timeNow is the clock used for ids, timestamps and default dates. Tests replace it.
var timeNow = time.Now

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func unauthorizedError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// notFound converts a store miss into ErrNotFound and passes other errors through.
func notFound(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return err
}
