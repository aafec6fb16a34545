package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes returned to callers.
const (
	CodeDomainRejected     = "DOMAIN_REJECTED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountPending     = "ACCOUNT_PENDING"
	CodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInviteCodeInvalid  = "INVITE_CODE_INVALID"
	CodeInviteCodeUsed     = "INVITE_CODE_USED"
	CodeInviteCodeExpired  = "INVITE_CODE_EXPIRED"
	CodeRoleUnresolved     = "ROLE_UNRESOLVED"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeTicketNotFound     = "TICKET_NOT_FOUND"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUnauthenticated is returned when no valid session accompanies a request.
func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

// NewUnauthorized reports a scope violation: the caller is known but may not touch the record.
func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusForbidden, nil)
}

func NewDomainRejected(domain string) error {
	return NewDomainError(CodeDomainRejected,
		fmt.Sprintf("only %s email addresses are allowed", domain),
		http.StatusBadRequest, nil)
}

// NewInvalidCredentials deliberately carries no hint about which factor failed.
func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid email or password", http.StatusUnauthorized, nil)
}

func NewAccountPending() error {
	return NewDomainError(CodeAccountPending,
		"your account is awaiting approval by an administrator", http.StatusForbidden, nil)
}

func NewAccountSuspended() error {
	return NewDomainError(CodeAccountSuspended,
		"your account has been suspended, please contact support", http.StatusForbidden, nil)
}

func NewRateLimited(message string, retryAfterSeconds int) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests,
		map[string]any{"retry_after_seconds": retryAfterSeconds})
}

func NewInviteCodeInvalid() error {
	return NewDomainError(CodeInviteCodeInvalid, "invite code not recognised", http.StatusBadRequest, nil)
}

func NewInviteCodeUsed() error {
	return NewDomainError(CodeInviteCodeUsed, "invite code has already been used", http.StatusConflict, nil)
}

func NewInviteCodeExpired() error {
	return NewDomainError(CodeInviteCodeExpired, "invite code has expired", http.StatusGone, nil)
}

func NewRoleUnresolved() error {
	return NewDomainError(CodeRoleUnresolved,
		"could not determine an account type from this email address; an invite code is required",
		http.StatusBadRequest, nil)
}

func NewDuplicateEmail() error {
	return NewDomainError(CodeDuplicateEmail, "an account with this email already exists", http.StatusConflict, nil)
}

func NewTicketNotFound(details map[string]any) error {
	return NewDomainError(CodeTicketNotFound, "ticket not found", http.StatusNotFound, details)
}

func NewIllegalTransition(current, requested string) error {
	return NewDomainError(CodeIllegalTransition,
		fmt.Sprintf("illegal transition from %s to %s", current, requested),
		http.StatusConflict,
		map[string]any{"current": current, "requested": requested})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// CodeOf returns the stable code carried by err, or "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
