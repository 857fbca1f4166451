package domain

import "errors"

// Login and admission errors, delivered to the offending caller only.
var (
	ErrValidation         = errors.New("invalid-username-or-room")
	ErrInvalidAdminSecret = errors.New("invalid-admin-secret")
	ErrAlreadyLoggedIn    = errors.New("already-logged-in")
	ErrRoomNotFound       = errors.New("room-not-found")
	ErrNoAdminOnline      = errors.New("no-admin-online")
	ErrRoomLocked         = errors.New("game-already-started")
)

// Draw errors.
var (
	ErrNotAdmin        = errors.New("not-admin")
	ErrInvalidNumber   = errors.New("invalid-number")
	ErrDuplicateNumber = errors.New("number-already-drawn")
)

// ErrStorage wraps adapter failures. They are logged and the in-memory
// registry stays authoritative; clients never see them.
var ErrStorage = errors.New("storage-error")
