package db

import (
	"errors"
	"time"

	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsDuplicateKeyError is a function that checks if an error is a duplicate key error.
type IsDuplicateKeyError func(err error) bool

const DefaultMaxRetries = 3

// Try runs an insert that generates its own id, retrying with DefaultMaxRetries
// while the id collides with an existing record.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsDuplicateIDError)
}

// WithRetries executes an operation with a retry mechanism for duplicate key errors.
// It attempts the operation up to maxRetries+1 times. Any other error is returned immediately.
func WithRetries(op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		if !isDuplicateKey(err) {
			return err
		}
		time.Sleep(time.Duration(10*(attempt+1)) * time.Millisecond) // Simple incremental backoff
	}
	return err
}

// IsDuplicateIDError reports an id collision in the entity store.
func IsDuplicateIDError(err error) bool {
	return errors.Is(err, store.ErrDuplicateID)
}
