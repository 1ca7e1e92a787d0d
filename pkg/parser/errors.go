package parser

import "fmt"

// MissingInputError is returned when a capture lacks data the pipeline cannot run without.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return "missing required input: " + e.Field
}

// InvalidInputError is returned when a supplied input cannot be decoded.
type InvalidInputError struct {
	Field string
	Err   error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Field, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }
