package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("report is no longer open")
	ErrUnknownEmoji      = errors.New("unknown reaction emoji")
	ErrUnknownAction     = errors.New("unknown report action")
)
