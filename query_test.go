package webauth

import "testing"

func testTransaction() *Transaction {
	return &Transaction{
		State:     "txn-state",
		Nonce:     "txn-nonce",
		Verifier:  "txn-verifier",
		Challenge: "txn-challenge",
	}
}

func TestBuildAuthorizeQuery_MergePrecedence(t *testing.T) {
	query := buildAuthorizeQuery(testTransaction(), Parameters{
		"audience": "https://api.example.com",
		"scope":    "openid profile",
	}, "myapp://tenant.example.com/ios/MyApp/callback", "client-1")

	if got := query.Get("state"); got != "txn-state" {
		t.Fatalf("expected transaction state, got %q", got)
	}
	if got := query.Get("nonce"); got != "txn-nonce" {
		t.Fatalf("expected transaction nonce, got %q", got)
	}
	if got := query.Get("client_id"); got != "client-1" {
		t.Fatalf("expected fixed client_id, got %q", got)
	}
	if got := query.Get("response_type"); got != "code" {
		t.Fatalf("expected response_type code, got %q", got)
	}
	if got := query.Get("redirect_uri"); got != "myapp://tenant.example.com/ios/MyApp/callback" {
		t.Fatalf("unexpected redirect_uri %q", got)
	}
	if got := query.Get("audience"); got != "https://api.example.com" {
		t.Fatalf("expected caller audience, got %q", got)
	}
	if got := query.Get("code_challenge"); got != "txn-challenge" {
		t.Fatalf("expected code_challenge, got %q", got)
	}
	if got := query.Get("code_challenge_method"); got != "S256" {
		t.Fatalf("expected S256 challenge method, got %q", got)
	}
}

func TestBuildAuthorizeQuery_CallerOverridesState(t *testing.T) {
	query := buildAuthorizeQuery(testTransaction(), Parameters{"state": "caller-state"}, "https://app/callback", "client-1")
	if got := query.Get("state"); got != "caller-state" {
		t.Fatalf("caller state should win the merge, got %q", got)
	}
}

func TestBuildAuthorizeQuery_VerifierNeverLeaks(t *testing.T) {
	query := buildAuthorizeQuery(testTransaction(), nil, "https://app/callback", "client-1")
	for key, values := range query {
		for _, value := range values {
			if value == "txn-verifier" {
				t.Fatalf("verifier leaked into authorize query under %q", key)
			}
		}
	}
	if _, ok := query["code_verifier"]; ok {
		t.Fatal("code_verifier must not appear in the authorize query")
	}
}

func TestBuildAuthorizeQuery_ChallengeMethodFromTransaction(t *testing.T) {
	txn := testTransaction()
	txn.ChallengeMethod = "plain"
	query := buildAuthorizeQuery(txn, nil, "https://app/callback", "client-1")
	if got := query.Get("code_challenge_method"); got != "plain" {
		t.Fatalf("expected transaction challenge method, got %q", got)
	}
}
