package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for normalization failures. Match with errors.Is.
var (
	ErrShapeMismatch   = errors.New("payload shape mismatch")
	ErrUnsupportedType = errors.New("unsupported post type")
)

// ShapeError reports a field the payload's type requires but lacks.
type ShapeError struct {
	Type   PostType
	Field  string
	Detail string
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("%s post: missing or invalid %s", e.Type, e.Field)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// TypeError reports a root post type that cannot be normalized.
type TypeError struct {
	Type PostType
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("unsupported post type %q: nothing in trail to extract", e.Type)
}

func (e *TypeError) Unwrap() error { return ErrUnsupportedType }
