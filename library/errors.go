package library

import (
	stdErrors "errors"
	"fmt"
)

// Code classifies an error so callers can branch on the failure kind
// instead of matching message strings.
type Code string

const (
	CodeDuplicateKey    Code = "DUPLICATE_KEY"
	CodeNotFound        Code = "NOT_FOUND"
	CodeOutOfStock      Code = "OUT_OF_STOCK"
	CodeValidation      Code = "VALIDATION"
	CodeDeserialization Code = "DESERIALIZATION"
	CodeInternal        Code = "INTERNAL"
)

// Error is the tagged error type returned by the loan manager and the
// stores. Kind carries the entity kind for NOT_FOUND ("member", "material",
// "loan").
type Error struct {
	code    Code
	kind    string
	message string
	cause   error
}

func NewError(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func WrapError(code Code, err error, message string) *Error {
	if err == nil {
		return NewError(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// NotFound builds a NOT_FOUND error for the given entity kind.
func NotFound(kind string) *Error {
	return &Error{code: CodeNotFound, kind: kind, message: kind + " not found"}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Kind() string {
	if e == nil {
		return ""
	}
	return e.kind
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// AsError unwraps err down to a *Error, or nil when there is none.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf reports the code of err, CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := AsError(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	typed := AsError(err)
	return typed != nil && typed.Code() == code
}
