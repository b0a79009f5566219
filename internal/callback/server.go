// Package callback runs the local HTTP server that intercepts the
// authorization redirect when the user-agent is the system browser. It
// captures the redirect URL exactly as received and hands it back to the
// flow; all validation of the redirect happens in the caller.
package callback

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrTimeout is returned by Wait when no redirect arrives in time.
var ErrTimeout = errors.New("timeout waiting for authorization callback")

// Server listens for the authorization redirect on localhost.
type Server struct {
	server     *http.Server
	port       int
	path       string
	resultChan chan string
	errorChan  chan error
	mu         sync.Mutex
	running    bool
}

// NewServer creates a callback server listening on the given port for the
// given callback path ("/callback" when empty).
func NewServer(port int, path string) *Server {
	if path == "" {
		path = "/callback"
	}
	return &Server{
		port:       port,
		path:       path,
		resultChan: make(chan string, 1),
		errorChan:  make(chan error, 1),
	}
}

// Start begins listening. It fails when the server is already running or
// the port is taken.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("callback server is already running")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("callback port %d is unavailable: %w", s.port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	// Providers may append routing segments below the registered path.
	mux.HandleFunc(s.path+"/", s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.running = true

	go func() {
		if errServe := s.server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			s.errorChan <- fmt.Errorf("callback server failed: %w", errServe)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	log.Debug("stopping callback server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false
	s.server = nil

	return err
}

// Wait blocks until a redirect is captured, the server fails, the context
// is done or the timeout elapses. The returned string is the redirect URL
// exactly as received.
func (s *Server) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case redirect := <-s.resultChan:
		return redirect, nil
	case err := <-s.errorChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(timeout):
		return "", ErrTimeout
	}
}

// handleCallback captures the redirect and serves a terminal page. The
// received URL is reconstructed from the request so provider-appended
// segments and every query field survive untouched.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log.Debug("authorization callback received")

	received := "http://" + r.Host + r.URL.RequestURI()
	s.sendResult(received)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		w.WriteHeader(http.StatusOK)
		// The error code is provider-controlled input; escape it before it
		// reaches the loopback origin's HTML.
		_, _ = fmt.Fprintf(w, errorPageHTML, html.EscapeString(errParam))
		return
	}
	_, _ = w.Write([]byte(successPageHTML))
}

// sendResult delivers the redirect without blocking the handler; only the
// first redirect of a flow counts.
func (s *Server) sendResult(redirect string) {
	select {
	case s.resultChan <- redirect:
	default:
		log.Warn("duplicate authorization callback dropped")
	}
}

// IsRunning reports whether the server is currently listening.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
