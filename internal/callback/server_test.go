package callback

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()
	return port
}

func startServer(t *testing.T, path string) (*Server, int) {
	t.Helper()
	port := freePort(t)
	server := NewServer(port, path)
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	t.Cleanup(func() {
		_ = server.Stop(context.Background())
	})
	return server, port
}

func TestServer_CapturesRedirect(t *testing.T) {
	server, port := startServer(t, "")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?code=xyz&state=abc", port))
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Authentication Successful") {
		t.Fatal("expected the success page")
	}

	received, err := server.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	want := fmt.Sprintf("http://127.0.0.1:%d/callback?code=xyz&state=abc", port)
	if received != want {
		t.Fatalf("expected %q, got %q", want, received)
	}
}

func TestServer_CapturesAppendedSegments(t *testing.T) {
	server, port := startServer(t, "")

	if _, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback/extra?code=xyz&state=abc", port)); err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	received, err := server.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if !strings.Contains(received, "/callback/extra?") {
		t.Fatalf("appended segment lost: %q", received)
	}
}

func TestServer_ErrorRedirectServesErrorPage(t *testing.T) {
	server, port := startServer(t, "")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?error=access_denied&error_description=no", port))
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "access_denied") {
		t.Fatal("expected the provider error on the page")
	}

	// The raw redirect is still delivered; classification happens upstream.
	received, err := server.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if !strings.Contains(received, "error=access_denied") {
		t.Fatalf("error redirect not captured: %q", received)
	}
}

func TestServer_ErrorPageEscapesProviderInput(t *testing.T) {
	_, port := startServer(t, "")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?error=%%3Cscript%%3Ealert(1)%%3C%%2Fscript%%3E", port))
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	page := string(body)
	if strings.Contains(page, "<script>alert(1)</script>") {
		t.Fatal("provider error reflected into HTML unescaped")
	}
	if !strings.Contains(page, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatalf("expected escaped error code on the page, got %q", page)
	}
}

func TestServer_RejectsNonGET(t *testing.T) {
	_, port := startServer(t, "")

	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/callback", port), "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestServer_WaitTimeout(t *testing.T) {
	server, _ := startServer(t, "")

	_, err := server.Wait(context.Background(), 50*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestServer_WaitReturnsOnContextCancel(t *testing.T) {
	server, _ := startServer(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := server.Wait(ctx, time.Minute)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not return after context cancellation")
	}
}

func TestServer_DoubleStartRejected(t *testing.T) {
	server, _ := startServer(t, "")
	if err := server.Start(); err == nil {
		t.Fatal("expected second start to fail")
	}
	if !server.IsRunning() {
		t.Fatal("server should still be running")
	}
}
