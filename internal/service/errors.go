package service

import (
	"errors"

	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/store"
)

// errInvalidURL is the message shown when a link cannot be normalized.
const errInvalidURL = "enter a valid URL that includes http or https"

// storeError maps a store failure onto a domain error, keeping the cause so
// the underlying message reaches the user.
func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, msg)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeInvalidInput, msg)
	default:
		return domainerrors.Store(err, msg)
	}
}
