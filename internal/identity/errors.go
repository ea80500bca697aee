package identity

import (
	"errors"

	"github.com/aws/smithy-go"
)

// Error kinds. Match with errors.Is; the wrapping *Error carries the
// user-facing message.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotConfirmed   = errors.New("user not confirmed")
	ErrUserExists         = errors.New("user exists")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrAlreadyConfirmed   = errors.New("already confirmed")
	ErrCodeMismatch       = errors.New("code mismatch")
	ErrCodeExpired        = errors.New("code expired")
	ErrInvalidCode        = errors.New("invalid code")
	ErrRateLimited        = errors.New("rate limited")
	ErrProvider           = errors.New("identity provider error")
)

// Error is a translated provider failure.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes both the kind and the provider error.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fail(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

type op int

const (
	opLogin op = iota
	opRegister
	opConfirm
	opResend
)

// translate maps provider error codes to error kinds. The same code can mean
// different things per operation (InvalidParameter is a bad email on sign-up
// and an already-verified user on resend).
func translate(o op, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fail(ErrProvider, "identity provider unavailable", err)
	}

	switch code := apiErr.ErrorCode(); {
	case o == opLogin && code == "UserNotConfirmedException":
		return fail(ErrUserNotConfirmed, "Please verify your email first", err)
	case o == opLogin && (code == "NotAuthorizedException" || code == "UserNotFoundException"):
		return fail(ErrInvalidCredentials, "Invalid email or password", err)

	case o == opRegister && code == "UsernameExistsException":
		return fail(ErrUserExists, "An account with this email already exists", err)
	case o == opRegister && code == "InvalidPasswordException":
		return fail(ErrWeakPassword, "Password must be at least 8 characters with uppercase, lowercase, and number", err)
	case o == opRegister && code == "InvalidParameterException":
		return fail(ErrInvalidEmail, "Invalid email format", err)

	case o == opConfirm && code == "CodeMismatchException":
		return fail(ErrCodeMismatch, "Invalid verification code. Please check and try again.", err)
	case o == opConfirm && code == "ExpiredCodeException":
		return fail(ErrCodeExpired, "Verification code expired. Please request a new code.", err)
	case o == opConfirm && code == "NotAuthorizedException":
		return fail(ErrAlreadyConfirmed, "User already verified. Please login.", err)
	case o == opConfirm && code == "LimitExceededException":
		return fail(ErrRateLimited, "Too many attempts. Please wait a few minutes and try again.", err)

	case o == opResend && code == "LimitExceededException":
		return fail(ErrRateLimited, "Too many requests. Please wait a few minutes before requesting a new code.", err)
	case o == opResend && code == "InvalidParameterException":
		return fail(ErrAlreadyConfirmed, "User already verified. Please login.", err)

	case code == "TooManyRequestsException":
		return fail(ErrRateLimited, "Too many requests. Please try again later.", err)
	}
	return fail(ErrProvider, apiErr.ErrorMessage(), err)
}
