package webauth

import (
	"fmt"
	"net/url"
	"strings"
)

// redirectState enumerates the terminal states of the redirect validation
// state machine. Transitions are evaluated strictly in declaration order:
// cancellation and the prefix check come before error and state inspection
// so an untrusted or malformed redirect is never parsed as if trusted.
type redirectState int

const (
	redirectCancelled redirectState = iota
	redirectPrefixMismatch
	redirectProviderError
	redirectStateMismatch
	redirectValid
)

// redirectOutcome is the typed result of classifying the user-agent's
// response. Only redirectValid carries a usable authorization code.
type redirectOutcome struct {
	state redirectState
	// code is the authorization code, set only when state is redirectValid.
	code string
	// rawURL is the redirect exactly as received from the user-agent.
	rawURL string
	// query is the parsed redirect query, set once the prefix check passed.
	query url.Values
	// parseErr records a query that could not be parsed at all.
	parseErr error
}

// classifyRedirect runs the validation state machine over the raw redirect
// returned by the user-agent. expectedURI is the resolved redirect URI the
// received URL must be prefixed by; expectedState is the state actually
// placed in the outgoing authorize query.
func classifyRedirect(rawURL, expectedURI, expectedState string) redirectOutcome {
	if rawURL == "" {
		return redirectOutcome{state: redirectCancelled}
	}

	if !strings.HasPrefix(rawURL, expectedURI) {
		return redirectOutcome{state: redirectPrefixMismatch, rawURL: rawURL}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return redirectOutcome{state: redirectPrefixMismatch, rawURL: rawURL, parseErr: err}
	}
	query := parsed.Query()

	if query.Get("error") != "" {
		return redirectOutcome{state: redirectProviderError, rawURL: rawURL, query: query}
	}

	if query.Get("state") != expectedState {
		return redirectOutcome{state: redirectStateMismatch, rawURL: rawURL, query: query}
	}

	return redirectOutcome{state: redirectValid, code: query.Get("code"), rawURL: rawURL, query: query}
}

// validateRedirect maps a classified redirect to either the authorization
// code plus the redirect URL as received, or the terminal error for that
// outcome.
func validateRedirect(rawURL, expectedURI, expectedState string) (code, receivedURL string, err error) {
	outcome := classifyRedirect(rawURL, expectedURI, expectedState)
	switch outcome.state {
	case redirectCancelled:
		return "", "", newUserCancelledError()
	case redirectPrefixMismatch:
		if outcome.parseErr != nil {
			return "", "", fmt.Errorf("failed to parse redirect URL: %w", outcome.parseErr)
		}
		return "", "", newRedirectMismatchError(outcome.rawURL, expectedURI)
	case redirectProviderError:
		return "", "", newProviderError(outcome.query)
	case redirectStateMismatch:
		return "", "", newStateMismatchError()
	default:
		return outcome.code, outcome.rawURL, nil
	}
}
