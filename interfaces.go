package webauth

import (
	"context"
	"net/url"
	"time"
)

// Transaction bundles the per-attempt PKCE and CSRF/replay values generated
// before launching the user-agent. A transaction is owned exclusively by one
// in-flight Authorize call and is never persisted beyond it.
type Transaction struct {
	// State is the random value round-tripped through the authorization
	// redirect to defeat CSRF.
	State string
	// Nonce is the random value echoed inside the identity token to defeat
	// replay of stolen tokens.
	Nonce string
	// Verifier is the PKCE code verifier. It is sent only in the token
	// exchange, never in the authorize query.
	Verifier string
	// Challenge is the code challenge derived from the verifier.
	Challenge string
	// ChallengeMethod names the derivation of Challenge, normally "S256".
	ChallengeMethod string
}

// TransactionProvider generates a fresh Transaction for each authorize
// attempt.
type TransactionProvider interface {
	NewTransaction(ctx context.Context) (*Transaction, error)
}

// UserAgent displays a URL in an in-app browser or system browser.
//
// In capture mode (closeOnLoad false) Show blocks until the agent intercepts
// a redirect and returns the raw redirect URL exactly as received. An empty
// URL with a nil error means the user closed the agent without completing
// the flow. In close-on-load mode (closeOnLoad true) the agent only displays
// the URL; no redirect is captured and the returned URL is always empty.
type UserAgent interface {
	Show(ctx context.Context, rawURL string, closeOnLoad bool) (string, error)
}

// ExchangeRequest binds an authorization code to the PKCE verifier of the
// transaction that produced it and to the redirect URL exactly as received
// from the user-agent.
type ExchangeRequest struct {
	Code        string
	Verifier    string
	RedirectURI string
}

// Credentials holds the tokens returned by a successful code exchange. Only
// IDToken is inspected locally; everything else is opaque to this package.
type Credentials struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// ProtocolClient builds the hosted authorize/logout URLs and performs the
// token-exchange HTTP call.
type ProtocolClient interface {
	AuthorizeURL(query url.Values) (string, error)
	LogoutURL(query url.Values) (string, error)
	Exchange(ctx context.Context, req ExchangeRequest) (*Credentials, error)
}

// VerifyOptions carries the expectations handed to the identity-token
// verifier after a successful exchange.
type VerifyOptions struct {
	// Domain is the identity provider domain the token must be issued by.
	Domain string
	// ClientID is the audience the token must be issued for.
	ClientID string
	// Nonce, when set, must match the nonce claim inside the token.
	Nonce string
	// MaxAge, when positive, bounds the allowed age of the authentication
	// recorded in the token's auth_time claim.
	MaxAge time.Duration
	// Scope is forwarded for provider-specific claim checks.
	Scope string
	// Leeway absorbs clock skew between this host and the provider.
	Leeway time.Duration
}

// TokenVerifier checks the signature and claims of an identity token.
// A nil return means the token is trusted.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string, expect VerifyOptions) error
}

// Parameters are caller-supplied authorize query fields. Recognized keys are
// state, nonce, audience, scope, connection and max_age; any other key is
// passed through to the provider untouched.
type Parameters map[string]string

// AuthorizeOptions tunes a single Authorize call.
type AuthorizeOptions struct {
	// Leeway absorbs clock skew during identity-token verification.
	// Zero selects DefaultLeeway.
	Leeway time.Duration
}

// LogoutOptions tunes a single ClearSession call.
type LogoutOptions struct {
	// Federated also terminates the session at the upstream identity
	// provider, not just the local one.
	Federated bool
}
