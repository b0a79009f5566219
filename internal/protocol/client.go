// Package protocol implements the HTTP side of the hosted authorization
// protocol: building the authorize and logout URLs for one identity-provider
// tenant and exchanging an authorization code plus PKCE verifier for tokens
// at the token endpoint.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nativeauth/webauth"
	log "github.com/sirupsen/logrus"
)

// Endpoint paths on the hosted tenant.
const (
	authorizePath = "/authorize"
	logoutPath    = "/v2/logout"
	tokenPath     = "/oauth/token"
)

// Client talks to one tenant. It implements webauth.ProtocolClient.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewClient creates a protocol client for the given tenant domain. The
// domain may be bare ("tenant.example.com") or carry an explicit scheme.
// A nil httpClient selects http.DefaultClient.
func NewClient(domain, clientID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL(domain),
		clientID:   clientID,
		httpClient: httpClient,
	}
}

// AuthorizeURL renders the hosted authorize URL for the given query.
func (c *Client) AuthorizeURL(query url.Values) (string, error) {
	if query.Get("state") == "" {
		return "", fmt.Errorf("authorize query is missing the state parameter")
	}
	return fmt.Sprintf("%s%s?%s", c.baseURL, authorizePath, query.Encode()), nil
}

// LogoutURL renders the hosted logout URL for the given query.
func (c *Client) LogoutURL(query url.Values) (string, error) {
	return fmt.Sprintf("%s%s?%s", c.baseURL, logoutPath, query.Encode()), nil
}

// Exchange posts the authorization code, the PKCE verifier and the redirect
// URL exactly as received to the token endpoint. Provider error responses
// are surfaced verbatim as webauth.AuthError carrying the HTTP status.
func (c *Client) Exchange(ctx context.Context, req webauth.ExchangeRequest) (*webauth.Credentials, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("authorization code is required for token exchange")
	}
	if req.Verifier == "" {
		return nil, fmt.Errorf("code verifier is required for token exchange")
	}

	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.clientID},
		"code":          {req.Code},
		"code_verifier": {req.Verifier},
		"redirect_uri":  {req.RedirectURI},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, exchangeError(resp.StatusCode, body)
	}

	var creds webauth.Credentials
	if err = json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if creds.IDToken == "" {
		log.Debug("token response carried no id token")
	}

	return &creds, nil
}

// exchangeError maps a non-200 token response to an error. JSON bodies with
// the standard error/error_description shape are forwarded untouched.
func exchangeError(status int, body []byte) error {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return webauth.NewAuthError(payload.Error, payload.ErrorDescription, status)
	}
	return fmt.Errorf("token exchange failed with status %d: %s", status, string(body))
}

// baseURL normalizes a tenant domain into a URL base without a trailing
// slash.
func baseURL(domain string) string {
	trimmed := strings.TrimSuffix(domain, "/")
	if strings.Contains(trimmed, "://") {
		return trimmed
	}
	return "https://" + trimmed
}
