package accounts

import (
	"errors"
)

// ErrIdentityNotFound is returned when no identity record exists for the
// given username.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrProfileNotFound is returned when no profile row exists for the user.
var ErrProfileNotFound = errors.New("user profile not found")

// ErrPasswordNotValid is the registration/merge failure for a wrong password
// against an existing identity.
var ErrPasswordNotValid = errors.New("password not valid for user")

// ErrPasswordComplexity signals a candidate password that fails policy.
var ErrPasswordComplexity = errors.New("password does not meet complexity requirements")

// ErrTokenRequired signals a missing token on an operation that needs one.
var ErrTokenRequired = errors.New("token is required")

// ErrTokenInvalid covers bad, expired, or purpose-mismatched tokens.
var ErrTokenInvalid = errors.New("token is invalid or expired")

// ErrNoEmptyString rejects empty input where a value is mandatory.
var ErrNoEmptyString = errors.New("value should not be an empty string")

// ErrMismatchedHashAndPassword is returned when a cleartext password does
// not match its stored hash.
var ErrMismatchedHashAndPassword = errors.New("mismatched password and hash")
