package useragent

import (
	"fmt"
	"strings"
)

// normalizePastedRedirect turns manual user input into a raw redirect URL.
// Accepted shapes: a full URL, a bare query string ("?code=..." or
// "code=..."), which is joined onto the registered redirect URI. Empty
// input means the user wants to keep waiting.
func normalizePastedRedirect(input, redirectURI string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}

	if strings.Contains(trimmed, "://") {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, "?") {
		return redirectURI + trimmed, nil
	}
	if strings.Contains(trimmed, "=") {
		return redirectURI + "?" + trimmed, nil
	}
	return "", fmt.Errorf("invalid callback URL %q", trimmed)
}
