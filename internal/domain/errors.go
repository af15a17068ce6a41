package domain

import "fmt"

// ErrorKind classifies expected failures so handlers can map them to HTTP
// statuses without string matching.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindState
	KindInfrastructure
)

type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func State(msg string) *Error {
	return &Error{Kind: KindState, Message: msg}
}

func Infra(msg string, cause error) *Error {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{Kind: KindInfrastructure, Message: msg, cause: cause}
}

// KindOf extracts the kind from an error chain, defaulting to infrastructure
// for anything unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	for err != nil {
		if de, ok := err.(*Error); ok {
			e = de
			break
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return KindInfrastructure
	}
	return e.Kind
}

// Identity verifier errors
var (
	ErrInvalidEmail  = Validation("Invalid email")
	ErrInvalidPhone  = Validation("Invalid phone number format. Use XXX-XXX-XXXX format.")
	ErrUserNotFound  = NotFound("User not found.")
	ErrCodeNotFound  = NotFound("No verification code found for this email.")
	ErrCodeExpired   = State("Verification code has expired.")
	ErrCodeMismatch  = Conflict("Verification code does not match.")
	ErrNotVerified   = State("Email has not been verified.")
)

// Group lifecycle errors
var (
	ErrRestaurantRequired = Validation("Restaurant name is required.")
	ErrRestaurantTooLong  = Validation("Restaurant name is too long.")
	ErrInvalidExpiration  = Validation("Invalid expiration date.")
	ErrExpirationInPast   = Validation("Expiration must be in the future.")
	ErrInvalidLocation    = Validation("Invalid location.")
	ErrOrderNotFound      = NotFound("Order not found.")
	ErrCannotJoinOwnGroup = Conflict("You cannot join your own group.")
	ErrAlreadyMember      = Conflict("You are already a member of this group.")
	ErrGroupExpired       = Conflict("This group has expired.")
	ErrGroupClosed        = Conflict("This group is closed.")
	ErrNotAMember         = State("You are not a member of this group.")
	ErrCannotReopen       = State("A closed group cannot be reopened.")
)
