package domain

import "errors"

// ErrLocked is returned when a page beyond the unlocked frontier is requested.
var ErrLocked = errors.New("page locked")

// ErrUnknownPage is returned when a key is not part of the configured page order.
var ErrUnknownPage = errors.New("unknown page")

// ErrItemNotFound is returned by storage adapters when a key is absent for a session.
var ErrItemNotFound = errors.New("item not found")

// ErrInvalidSession is returned when a session ID is empty or malformed.
var ErrInvalidSession = errors.New("invalid session id")
