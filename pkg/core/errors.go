package core

import "errors"

// Common errors.
var (
	ErrNotFound       = errors.New("document not found")
	ErrReadOnly       = errors.New("repository is in read-only mode")
	ErrUnsupported    = errors.New("operation not supported by repository")
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrEmptyTitle     = errors.New("title cannot be empty")
	ErrEmptyContent   = errors.New("note content is empty")
	ErrCourseRequired = errors.New("a course must be selected")
	ErrInvalidID      = errors.New("invalid id")
)
