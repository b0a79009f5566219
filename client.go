// Package webauth implements the client side of an OAuth2 Authorization Code
// flow with PKCE driven through an external user-agent. It constructs the
// authorization request, launches the user-agent, validates the intercepted
// redirect against CSRF and replay protections, exchanges the authorization
// code for tokens and verifies the returned identity token before handing
// credentials to the caller. It also exposes a session-termination flow.
//
// The user-agent, transaction generation, the protocol HTTP client and the
// identity-token verifier are collaborators injected through interfaces; the
// package itself holds the orchestration state machine between "user-agent
// opened" and "credentials returned".
package webauth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultLeeway is the clock-skew allowance applied during identity-token
// verification when the caller does not supply one.
const DefaultLeeway = 60 * time.Second

// ClientConfig wires a Client with its identity-provider coordinates and
// collaborators.
type ClientConfig struct {
	// Domain is the identity provider domain, e.g. "tenant.example.com".
	Domain string
	// ClientID identifies the application at the provider.
	ClientID string
	// RedirectURI, when set, is used verbatim as the callback URI.
	RedirectURI string
	// Platform and AppIdentifier synthesize the callback URI when
	// RedirectURI is empty; see ResolveRedirectURI.
	Platform      string
	AppIdentifier string

	Transactions TransactionProvider
	UserAgent    UserAgent
	Protocol     ProtocolClient
	Verifier     TokenVerifier
}

// Client orchestrates browser-driven login and logout against one identity
// provider tenant. Each Authorize call owns its own transaction and query;
// no state is shared between calls beyond the pending-flow guard.
type Client struct {
	domain      string
	clientID    string
	redirectURI string

	transactions TransactionProvider
	agent        UserAgent
	protocol     ProtocolClient
	verifier     TokenVerifier

	mu      sync.Mutex
	pending bool
}

// New validates the configuration, resolves the callback URI and returns a
// ready Client.
func New(cfg ClientConfig) (*Client, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("webauth: domain is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("webauth: client id is required")
	}
	if cfg.RedirectURI == "" && cfg.AppIdentifier == "" {
		return nil, fmt.Errorf("webauth: either a redirect uri or an app identifier is required")
	}
	if cfg.Transactions == nil || cfg.UserAgent == nil || cfg.Protocol == nil || cfg.Verifier == nil {
		return nil, fmt.Errorf("webauth: all collaborators (transactions, user agent, protocol, verifier) are required")
	}

	return &Client{
		domain:       cfg.Domain,
		clientID:     cfg.ClientID,
		redirectURI:  ResolveRedirectURI(cfg.Domain, cfg.Platform, cfg.AppIdentifier, cfg.RedirectURI),
		transactions: cfg.Transactions,
		agent:        cfg.UserAgent,
		protocol:     cfg.Protocol,
		verifier:     cfg.Verifier,
	}, nil
}

// RedirectURI returns the resolved callback URI used for both login and
// logout.
func (c *Client) RedirectURI() string {
	return c.redirectURI
}

// Authorize runs one full login flow: generate a transaction, open the
// hosted authorize page in the user-agent, validate the intercepted
// redirect, exchange the authorization code and verify the identity token.
// Credentials are returned only after verification succeeds; every failure
// is terminal for this call and a retry is a fresh Authorize with a fresh
// transaction.
//
// A second Authorize while one is pending on the same Client is rejected,
// since both would compete for the same user-agent.
func (c *Client) Authorize(ctx context.Context, params Parameters, opts *AuthorizeOptions) (*Credentials, error) {
	if err := c.acquireFlow(); err != nil {
		return nil, err
	}
	defer c.releaseFlow()

	if ctx == nil {
		ctx = context.Background()
	}
	if params == nil {
		params = Parameters{}
	}
	leeway := DefaultLeeway
	if opts != nil && opts.Leeway > 0 {
		leeway = opts.Leeway
	}
	// max_age gates a security check downstream; a value that cannot be
	// interpreted fails the call instead of silently disabling the check.
	maxAge, err := maxAgeFromParams(params)
	if err != nil {
		return nil, err
	}

	flowID := uuid.NewString()[:8]
	logger := log.WithFields(log.Fields{"flow": flowID, "domain": c.domain})
	logger.Debug("starting authorize flow")

	txn, err := c.transactions.NewTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("transaction generation failed: %w", err)
	}

	query := buildAuthorizeQuery(txn, params, c.redirectURI, c.clientID)
	// The effective state is the one actually placed in the query, which a
	// caller may have overridden; it is not necessarily the transaction's.
	expectedState := query.Get("state")

	authorizeURL, err := c.protocol.AuthorizeURL(query)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorize url: %w", err)
	}

	redirectURL, err := c.agent.Show(ctx, authorizeURL, false)
	if err != nil {
		return nil, err
	}

	code, receivedURL, err := validateRedirect(redirectURL, c.redirectURI, expectedState)
	if err != nil {
		logger.WithField("error", err).Debug("redirect validation failed")
		return nil, err
	}

	logger.Debug("authorization code received; exchanging for tokens")

	// The exchange binds the redirect URL exactly as received, not the
	// resolved one: providers may append extra routing segments.
	creds, err := c.protocol.Exchange(ctx, ExchangeRequest{
		Code:        code,
		Verifier:    txn.Verifier,
		RedirectURI: receivedURL,
	})
	if err != nil {
		return nil, err
	}

	expect := VerifyOptions{
		Domain:   c.domain,
		ClientID: c.clientID,
		Nonce:    params["nonce"],
		MaxAge:   maxAge,
		Scope:    params["scope"],
		Leeway:   leeway,
	}
	if err = c.verifier.Verify(ctx, creds.IDToken, expect); err != nil {
		return nil, err
	}

	logger.Debug("identity token verified")
	return creds, nil
}

// ClearSession terminates the hosted session. It builds the logout URL with
// the client id, the resolved callback URI as the return target and the
// federated flag, then shows it in the user-agent in close-on-load mode.
// Logout has no CSRF-sensitive response, so no result is captured or
// validated; any failure to open the user-agent propagates as-is.
func (c *Client) ClearSession(ctx context.Context, opts LogoutOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	query := url.Values{}
	query.Set("client_id", c.clientID)
	query.Set("returnTo", c.redirectURI)
	query.Set("federated", strconv.FormatBool(opts.Federated))

	logoutURL, err := c.protocol.LogoutURL(query)
	if err != nil {
		return fmt.Errorf("failed to build logout url: %w", err)
	}

	_, err = c.agent.Show(ctx, logoutURL, true)
	return err
}

// acquireFlow marks an authorize flow as pending, rejecting a second flow
// while one is already in flight.
func (c *Client) acquireFlow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return newSessionPendingError()
	}
	c.pending = true
	return nil
}

func (c *Client) releaseFlow() {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
}

// maxAgeFromParams interprets the caller's max_age parameter as whole
// seconds. An absent value disables the check; a malformed one is an error.
func maxAgeFromParams(params Parameters) (time.Duration, error) {
	raw := params["max_age"]
	if raw == "" {
		return 0, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid max_age parameter %q: expected a positive number of seconds", raw)
	}
	return time.Duration(seconds) * time.Second, nil
}
