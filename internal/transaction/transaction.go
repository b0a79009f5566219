// Package transaction generates the per-attempt PKCE and CSRF/replay values
// used by the browser-driven authorization flow. It creates a
// cryptographically random code verifier and its corresponding SHA256 code
// challenge as specified in RFC 7636, plus random state and nonce values.
package transaction

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/nativeauth/webauth"
)

// Provider implements webauth.TransactionProvider with crypto/rand backed
// values. The zero value is ready to use.
type Provider struct{}

// NewProvider returns a transaction provider.
func NewProvider() *Provider {
	return &Provider{}
}

// NewTransaction generates a fresh transaction: random state and nonce plus
// a PKCE verifier/challenge pair using the S256 method.
func (p *Provider) NewTransaction(ctx context.Context) (*webauth.Transaction, error) {
	state, err := generateRandomValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := generateRandomValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &webauth.Transaction{
		State:           state,
		Nonce:           nonce,
		Verifier:        verifier,
		Challenge:       generateCodeChallenge(verifier),
		ChallengeMethod: "S256",
	}, nil
}

// generateRandomValue creates a cryptographically secure random value for
// the state and nonce parameters.
func generateRandomValue() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// generateCodeVerifier creates the high-entropy PKCE code verifier. The
// verifier is later used to prove possession of the client that initiated
// the authorization request.
func generateCodeVerifier() (string, error) {
	// 96 random bytes encode to 128 base64 characters, the RFC 7636 maximum.
	bytes := make([]byte, 96)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(bytes), nil
}

// generateCodeChallenge derives the S256 code challenge sent in the
// authorize request: the SHA256 hash of the verifier, Base64 URL-encoded
// without padding.
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
}
