// Package idtoken verifies identity tokens returned by the code exchange.
// Signature, issuer, audience and expiry checks are delegated to the
// provider's published JWKS via go-oidc; nonce and max_age expectations are
// enforced on top.
package idtoken

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/nativeauth/webauth"
)

// Verifier implements webauth.TokenVerifier against a hosted OpenID Connect
// issuer.
type Verifier struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewVerifier creates a token verifier. A nil httpClient selects
// http.DefaultClient for the discovery and JWKS requests.
func NewVerifier(httpClient *http.Client) *Verifier {
	return &Verifier{httpClient: httpClient, now: time.Now}
}

// Verify checks the token's signature and claims against the expectations.
// A nil return means the token is trusted; any failure is terminal for the
// authorize call that produced the token.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string, expect webauth.VerifyOptions) error {
	if rawIDToken == "" {
		return fmt.Errorf("id token is required for verification")
	}

	if v.httpClient != nil {
		ctx = oidc.ClientContext(ctx, v.httpClient)
	}

	provider, err := oidc.NewProvider(ctx, issuerURL(expect.Domain))
	if err != nil {
		return fmt.Errorf("failed to discover issuer: %w", err)
	}

	token, err := provider.Verifier(&oidc.Config{ClientID: expect.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return fmt.Errorf("id token verification failed: %w", err)
	}

	if expect.Nonce != "" && token.Nonce != expect.Nonce {
		return fmt.Errorf("id token nonce does not match the expected nonce")
	}

	if expect.MaxAge > 0 {
		var claims struct {
			AuthTime int64 `json:"auth_time"`
		}
		if err = token.Claims(&claims); err != nil {
			return fmt.Errorf("failed to read id token claims: %w", err)
		}
		if claims.AuthTime == 0 {
			return fmt.Errorf("id token is missing the auth_time claim required by max_age")
		}
		authTime := time.Unix(claims.AuthTime, 0)
		if v.now().After(authTime.Add(expect.MaxAge + expect.Leeway)) {
			return fmt.Errorf("authentication at %s is older than the requested max_age", authTime.UTC().Format(time.RFC3339))
		}
	}

	return nil
}

// issuerURL normalizes a tenant domain into the issuer form published in
// the provider's discovery document, which carries a trailing slash.
func issuerURL(domain string) string {
	issuer := domain
	if !strings.Contains(issuer, "://") {
		issuer = "https://" + issuer
	}
	if !strings.HasSuffix(issuer, "/") {
		issuer += "/"
	}
	return issuer
}
