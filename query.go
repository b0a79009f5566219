package webauth

import "net/url"

// buildAuthorizeQuery assembles the authorize query as an explicit ordered
// merge with documented precedence: transaction defaults, then fixed protocol
// fields, then caller parameters. A caller may deliberately override state
// (or any other field); the state actually placed in the query is the one
// later required to match the redirect.
//
// The raw PKCE verifier never enters the query; the challenge travels only
// under its protocol names.
func buildAuthorizeQuery(txn *Transaction, params Parameters, redirectURI, clientID string) url.Values {
	query := url.Values{}

	// Transaction defaults, lowest precedence.
	query.Set("state", txn.State)
	if txn.Nonce != "" {
		query.Set("nonce", txn.Nonce)
	}
	if txn.Challenge != "" {
		query.Set("code_challenge", txn.Challenge)
		method := txn.ChallengeMethod
		if method == "" {
			method = "S256"
		}
		query.Set("code_challenge_method", method)
	}

	// Fixed protocol fields.
	query.Set("client_id", clientID)
	query.Set("response_type", "code")
	query.Set("redirect_uri", redirectURI)

	// Caller parameters win last.
	for key, value := range params {
		query.Set(key, value)
	}

	return query
}
