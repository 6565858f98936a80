package domain

import "errors"

var (
	// Validation errors, rejected before any store call.
	ErrEmptyUserID        = errors.New("user id is required")
	ErrEmptyTitle         = errors.New("title is required")
	ErrEmptyName          = errors.New("requester name is required")
	ErrMessageTooLong     = errors.New("message exceeds 100 characters")
	ErrPhotoTooLarge      = errors.New("photo exceeds size limit")
	ErrInvalidSetListName = errors.New("set list name is required")

	// Request / queue errors.
	ErrRequestNotFound       = errors.New("request not found")
	ErrDuplicatePendingTitle = errors.New("a pending request with this title already exists")
	ErrRequestPlayed         = errors.New("request already played")

	// Set list errors.
	ErrSetListNotFound = errors.New("set list not found")
	ErrSetListActive   = errors.New("cannot delete the active set list")
	ErrSongNotFound    = errors.New("song not found")
)
