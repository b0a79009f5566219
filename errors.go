package webauth

import (
	"errors"
	"fmt"
	"net/url"
)

// Error codes for failures detected locally by the web auth flow. Failures
// reported by the identity provider keep whatever code the provider sent.
const (
	// ErrCodeUserCancelled indicates the user-agent closed without returning
	// a redirect.
	ErrCodeUserCancelled = "a0.session.user_cancelled"
	// ErrCodeRedirectNotExpected indicates the received redirect does not
	// start with the registered redirect URI.
	ErrCodeRedirectNotExpected = "a0.redirect_uri.not_expected"
	// ErrCodeInvalidState indicates the state returned in the redirect does
	// not match the state sent in the authorize request.
	ErrCodeInvalidState = "a0.state.invalid"
	// ErrCodeSessionPending indicates another authorize call is already in
	// flight on the same client.
	ErrCodeSessionPending = "a0.session.pending"
)

// AuthError is the single error shape surfaced by Authorize and ClearSession
// for every locally detected failure. Status is 0 for local failures since no
// real HTTP response backs them.
type AuthError struct {
	// Code is the machine-readable error code.
	Code string `json:"error"`
	// Description is a human-readable description of the error.
	Description string `json:"error_description,omitempty"`
	// Status is the HTTP status associated with the error, 0 when the
	// failure was detected locally.
	Status int `json:"status"`
	// Payload carries every query field of a provider-reported error
	// redirect, preserved verbatim.
	Payload map[string]string `json:"-"`
}

// Error returns a string representation of the auth error.
func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("auth error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("auth error: %s", e.Code)
}

// NewAuthError creates an AuthError with the specified code, description and
// status.
func NewAuthError(code, description string, status int) *AuthError {
	return &AuthError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

func newUserCancelledError() *AuthError {
	return NewAuthError(ErrCodeUserCancelled, "user cancelled the authentication", 0)
}

func newRedirectMismatchError(received, expected string) *AuthError {
	return NewAuthError(
		ErrCodeRedirectNotExpected,
		fmt.Sprintf("received redirect %q does not match the expected redirect uri %q", received, expected),
		0,
	)
}

func newStateMismatchError() *AuthError {
	return NewAuthError(ErrCodeInvalidState, "state parameter in the redirect does not match the expected state", 0)
}

func newSessionPendingError() *AuthError {
	return NewAuthError(ErrCodeSessionPending, "another authorize flow is already pending on this client", 0)
}

// newProviderError surfaces an error redirect sent by the identity provider.
// The entire parsed query is preserved so callers see exactly what the
// provider reported.
func newProviderError(query url.Values) *AuthError {
	payload := make(map[string]string, len(query))
	for key := range query {
		payload[key] = query.Get(key)
	}
	return &AuthError{
		Code:        query.Get("error"),
		Description: query.Get("error_description"),
		Status:      0,
		Payload:     payload,
	}
}

// IsAuthError checks if an error is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsUserCancelled reports whether the error indicates the user closed the
// user-agent without completing the flow.
func IsUserCancelled(err error) bool {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	return authErr.Code == ErrCodeUserCancelled
}
