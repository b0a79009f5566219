package webauth

import (
	"fmt"
	"strings"
)

// ResolveRedirectURI derives the callback URI used both as the PKCE redirect
// target and as the logout return target. An explicit URI is returned
// unchanged and the caller takes responsibility for its registration.
// Otherwise a platform-specific custom-scheme URI is synthesized from the
// app identifier:
//
//	<app-identifier-lowercased>://<domain>/<platform>/<app-identifier>/callback
//
// The same URI must be sent in the authorize request and required as the
// prefix of the intercepted redirect; any mismatch between the two is a
// protocol violation, not a retryable error.
func ResolveRedirectURI(domain, platform, appIdentifier, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("%s://%s/%s/%s/callback", strings.ToLower(appIdentifier), domain, platform, appIdentifier)
}
