package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes reported to GraphQL clients in extensions.code.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeBadUserInput       = "BAD_USER_INPUT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Code       string
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// ErrUsernameTaken is returned by signup and by storage on a unique violation.
var ErrUsernameTaken = &ErrorWithStatusCode{
	Message:    "A user with this username already exists",
	StatusCode: http.StatusConflict,
	Code:       CodeBadUserInput,
}

func Unauthorized() error {
	return &ErrorWithStatusCode{Message: "Not Authenticated", StatusCode: http.StatusUnauthorized, Code: CodeUnauthenticated}
}

// InvalidCredentials is deliberately the same for unknown users and wrong passwords.
func InvalidCredentials() error {
	return &ErrorWithStatusCode{Message: "Incorrect username or password", StatusCode: http.StatusUnauthorized, Code: CodeInvalidCredentials}
}

func Validation(format string, args ...any) error {
	return &ErrorWithStatusCode{Message: fmt.Sprintf(format, args...), StatusCode: http.StatusBadRequest, Code: CodeBadUserInput}
}

type Class int

const (
	// ClassRepository covers everything without a domain meaning: storage and
	// connectivity failures, bugs. Callers only ever see an opaque message.
	ClassRepository Class = iota
	ClassAuthorization
	ClassValidation
	ClassCredential
)

func (c Class) String() string {
	switch c {
	case ClassAuthorization:
		return "authorization"
	case ClassValidation:
		return "validation"
	case ClassCredential:
		return "credential"
	default:
		return "repository"
	}
}

func ClassOf(err error) Class {
	var e *ErrorWithStatusCode
	if !errors.As(err, &e) {
		return ClassRepository
	}
	switch e.Code {
	case CodeUnauthenticated:
		return ClassAuthorization
	case CodeBadUserInput:
		return ClassValidation
	case CodeInvalidCredentials:
		return ClassCredential
	default:
		return ClassRepository
	}
}

// Is checks if err is instance of T for custom error types
func Is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
