// Package useragent implements the user-agent collaborator of the
// authorization flow on top of the system browser: it opens the hosted page
// and, in capture mode, runs a local callback server until the redirect
// arrives. A manual paste prompt covers hosts where no browser can open.
package useragent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/nativeauth/webauth/internal/browser"
	"github.com/nativeauth/webauth/internal/callback"
	log "github.com/sirupsen/logrus"
)

// DefaultTimeout bounds how long a capture-mode Show waits for the
// redirect before treating the attempt as cancelled.
const DefaultTimeout = 5 * time.Minute

// promptDelay is how long the redirect is awaited before the manual paste
// prompt is offered.
const promptDelay = 15 * time.Second

// PromptFunc asks the user for manual input, e.g. a pasted callback URL.
type PromptFunc func(message string) (string, error)

// BrowserAgent implements webauth.UserAgent with the system browser plus a
// localhost callback server.
type BrowserAgent struct {
	// RedirectURI is the registered callback URI; its port and path decide
	// where the capture server listens.
	RedirectURI string
	// Timeout bounds capture-mode waits. Zero selects DefaultTimeout.
	Timeout time.Duration
	// NoBrowser skips opening the browser and only prints the URL.
	NoBrowser bool
	// Prompt, when set, enables the manual paste fallback.
	Prompt PromptFunc
}

// Show displays the URL. In close-on-load mode it only opens the page; in
// capture mode it blocks until the redirect is intercepted and returns it
// exactly as received. An empty URL with a nil error means the user never
// completed the flow.
func (a *BrowserAgent) Show(ctx context.Context, rawURL string, closeOnLoad bool) (string, error) {
	if closeOnLoad {
		return "", a.display(rawURL, false)
	}

	port, path, err := callbackAddress(a.RedirectURI)
	if err != nil {
		return "", err
	}

	server := callback.NewServer(port, path)
	if err = server.Start(); err != nil {
		return "", err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if stopErr := server.Stop(stopCtx); stopErr != nil {
			log.Warnf("callback server stop error: %v", stopErr)
		}
	}()

	// A failed browser launch is not fatal in capture mode; the printed URL
	// still lets the user continue by hand.
	if errOpen := a.display(rawURL, true); errOpen != nil {
		log.Warnf("failed to open browser automatically: %v", errOpen)
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	fmt.Println("Waiting for the authentication callback...")

	// The waiter must not outlive Show: when the paste path wins, the
	// cancel below releases the goroutine instead of leaving it blocked
	// until the capture timeout.
	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()

	redirectCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		redirect, errWait := server.Wait(waitCtx, timeout)
		if errWait != nil {
			errCh <- errWait
			return
		}
		redirectCh <- redirect
	}()

	var promptC <-chan time.Time
	if a.Prompt != nil {
		timer := time.NewTimer(promptDelay)
		defer timer.Stop()
		promptC = timer.C
	}

	for {
		select {
		case redirect := <-redirectCh:
			return redirect, nil
		case errWait := <-errCh:
			if errors.Is(errWait, callback.ErrTimeout) {
				// The user never completed the hosted page.
				return "", nil
			}
			return "", errWait
		case <-promptC:
			promptC = nil
			input, errPrompt := a.Prompt("Paste the callback URL (or press Enter to keep waiting): ")
			if errPrompt != nil {
				return "", errPrompt
			}
			pasted, errParse := normalizePastedRedirect(input, a.RedirectURI)
			if errParse != nil {
				return "", errParse
			}
			if pasted == "" {
				continue
			}
			return pasted, nil
		}
	}
}

// display opens the URL in the browser or prints it for manual use.
func (a *BrowserAgent) display(rawURL string, printFallback bool) error {
	if a.NoBrowser || !browser.IsAvailable() {
		fmt.Printf("Visit the following URL to continue:\n%s\n", rawURL)
		return nil
	}
	if err := browser.OpenURL(rawURL); err != nil {
		if printFallback {
			fmt.Printf("Visit the following URL to continue:\n%s\n", rawURL)
		}
		return err
	}
	return nil
}

// callbackAddress derives the capture server's port and path from the
// registered redirect URI.
func callbackAddress(redirectURI string) (int, string, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return 0, "", fmt.Errorf("invalid redirect uri %q: %w", redirectURI, err)
	}
	if parsed.Scheme != "http" {
		return 0, "", fmt.Errorf("capture mode requires an http loopback redirect uri, got %q", redirectURI)
	}
	port := 80
	if parsed.Port() != "" {
		if port, err = parsePort(parsed.Port()); err != nil {
			return 0, "", err
		}
	}
	path := parsed.Path
	if path == "" {
		path = "/callback"
	}
	return port, path, nil
}

func parsePort(raw string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(raw, "%d", &port); err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid redirect uri port %q", raw)
	}
	return port, nil
}
