// Package main provides the webauth command, a browser-driven login and
// logout CLI against a hosted identity provider. It opens the hosted page in
// the system browser, captures the authorization redirect on a localhost
// callback server, exchanges the code with PKCE and verifies the returned
// identity token before reporting success.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nativeauth/webauth"
	"github.com/nativeauth/webauth/internal/config"
	"github.com/nativeauth/webauth/internal/idtoken"
	"github.com/nativeauth/webauth/internal/logging"
	"github.com/nativeauth/webauth/internal/protocol"
	"github.com/nativeauth/webauth/internal/transaction"
	"github.com/nativeauth/webauth/internal/useragent"
	"github.com/nativeauth/webauth/internal/util"
	log "github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	logging.SetupBaseLogger()

	var (
		configPath   = flag.String("config", "config.yaml", "path to the YAML configuration file")
		login        = flag.Bool("login", false, "run the browser-driven login flow")
		logout       = flag.Bool("logout", false, "terminate the hosted session")
		federated    = flag.Bool("federated", false, "also log out of the upstream identity provider")
		noBrowser    = flag.Bool("no-browser", false, "print the URL instead of opening a browser")
		callbackPort = flag.Int("callback-port", 0, "override the localhost callback port")
		debug        = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if v := os.Getenv("WEBAUTH_DOMAIN"); v != "" {
		cfg.Domain = v
	}
	if v := os.Getenv("WEBAUTH_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if *callbackPort > 0 {
		cfg.CallbackPort = *callbackPort
	}
	if err = cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}

	httpClient := util.SetProxy(cfg.ProxyURL, &http.Client{Timeout: 30 * time.Second})
	redirectURI := cfg.EffectiveRedirectURI()

	client, err := webauth.New(webauth.ClientConfig{
		Domain:       cfg.Domain,
		ClientID:     cfg.ClientID,
		RedirectURI:  redirectURI,
		Transactions: transaction.NewProvider(),
		UserAgent: &useragent.BrowserAgent{
			RedirectURI: redirectURI,
			NoBrowser:   *noBrowser,
			Prompt:      stdinPrompt,
		},
		Protocol: protocol.NewClient(cfg.Domain, cfg.ClientID, httpClient),
		Verifier: idtoken.NewVerifier(httpClient),
	})
	if err != nil {
		log.Fatalf("failed to construct client: %v", err)
	}

	ctx := context.Background()

	switch {
	case *login:
		runLogin(ctx, client, cfg)
	case *logout:
		runLogout(ctx, client, *federated)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runLogin(ctx context.Context, client *webauth.Client, cfg *config.Config) {
	params := webauth.Parameters{"scope": cfg.Scope}
	if cfg.Audience != "" {
		params["audience"] = cfg.Audience
	}
	if cfg.Connection != "" {
		params["connection"] = cfg.Connection
	}

	creds, err := client.Authorize(ctx, params, &webauth.AuthorizeOptions{
		Leeway: time.Duration(cfg.LeewaySeconds) * time.Second,
	})
	if err != nil {
		if webauth.IsUserCancelled(err) {
			fmt.Println("Login cancelled")
			os.Exit(1)
		}
		log.Fatalf("login failed: %v", err)
	}

	fmt.Println("Authentication successful")
	if claims, errClaims := idtoken.ParseUnverified(creds.IDToken); errClaims == nil {
		if claims.Email != "" {
			fmt.Printf("Logged in as %s\n", claims.Email)
		} else if claims.Sub != "" {
			fmt.Printf("Logged in as %s\n", claims.Sub)
		}
	}
	if creds.ExpiresIn > 0 {
		fmt.Printf("Access token expires in %s\n", time.Duration(creds.ExpiresIn)*time.Second)
	}
}

func runLogout(ctx context.Context, client *webauth.Client, federated bool) {
	if err := client.ClearSession(ctx, webauth.LogoutOptions{Federated: federated}); err != nil {
		log.Fatalf("logout failed: %v", err)
	}
	fmt.Println("Logout page opened; the hosted session will be terminated")
}

// stdinPrompt reads one line from standard input for the manual callback
// paste fallback.
func stdinPrompt(message string) (string, error) {
	fmt.Print(message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
