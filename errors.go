package main

import "errors"

// Errors surfaced by the query layer. Handlers translate them into
// HTTP statuses or form error messages at the request boundary.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmptyText     = errors.New("message text is empty")
)
