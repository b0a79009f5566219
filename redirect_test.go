package webauth

import (
	"errors"
	"strings"
	"testing"
)

const expectedURI = "https://app/callback"

func TestValidateRedirect_Cancelled(t *testing.T) {
	_, _, err := validateRedirect("", expectedURI, "abc")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Code != ErrCodeUserCancelled || authErr.Status != 0 {
		t.Fatalf("unexpected error %+v", authErr)
	}
}

func TestValidateRedirect_PrefixMismatch(t *testing.T) {
	// A mismatched URL must never have its query fields inspected, even
	// when they would otherwise trip the error or state gates.
	_, _, err := validateRedirect("https://evil/callback?error=access_denied&state=WRONG", expectedURI, "abc")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Code != ErrCodeRedirectNotExpected {
		t.Fatalf("expected redirect mismatch, got %q", authErr.Code)
	}
	if authErr.Payload != nil {
		t.Fatal("mismatched redirect must not surface parsed query fields")
	}
}

func TestValidateRedirect_MismatchDescriptionCarriesBothURIs(t *testing.T) {
	_, _, err := validateRedirect("https://other/cb", expectedURI, "abc")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	for _, want := range []string{"https://other/cb", expectedURI} {
		if !strings.Contains(authErr.Description, want) {
			t.Fatalf("description %q missing %q", authErr.Description, want)
		}
	}
}

func TestValidateRedirect_ProviderError(t *testing.T) {
	_, _, err := validateRedirect(expectedURI+"?error=access_denied&error_description=no&state=WRONG", expectedURI, "abc")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	// The error gate precedes the state gate, and the payload preserves the
	// full parsed query verbatim.
	if authErr.Code != "access_denied" || authErr.Description != "no" {
		t.Fatalf("unexpected provider error %+v", authErr)
	}
	if authErr.Payload["state"] != "WRONG" {
		t.Fatalf("expected full query in payload, got %+v", authErr.Payload)
	}
}

func TestValidateRedirect_StateMismatch(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"wrong state", expectedURI + "?code=xyz&state=WRONG"},
		{"absent state", expectedURI + "?code=xyz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := validateRedirect(tc.url, expectedURI, "abc")
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if authErr.Code != ErrCodeInvalidState {
				t.Fatalf("expected state mismatch, got %q", authErr.Code)
			}
		})
	}
}

func TestValidateRedirect_Valid(t *testing.T) {
	code, received, err := validateRedirect(expectedURI+"/extra?code=xyz&state=abc", expectedURI, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "xyz" {
		t.Fatalf("expected code xyz, got %q", code)
	}
	// Providers may append routing segments; the received URL is carried
	// forward untouched for the exchange.
	if received != expectedURI+"/extra?code=xyz&state=abc" {
		t.Fatalf("unexpected received url %q", received)
	}
}
