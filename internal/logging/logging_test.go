package logging

import (
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestLogFormatter_OrdersKnownFields(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 8, 24, 10, 32, 1, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "starting authorize flow\n",
		Data: log.Fields{
			"domain":    "tenant.example.com",
			"flow":      "4f1c9a02",
			"ignored":   "x",
			"client_id": "client-1",
		},
	}

	out, err := (&LogFormatter{}).Format(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := string(out)
	if !strings.HasPrefix(line, "[2026-08-24 10:32:01] [info ] starting authorize flow") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	flowIdx := strings.Index(line, "flow=")
	domainIdx := strings.Index(line, "domain=")
	clientIdx := strings.Index(line, "client_id=")
	if flowIdx < 0 || domainIdx < 0 || clientIdx < 0 {
		t.Fatalf("expected ordered fields in %q", line)
	}
	if !(flowIdx < domainIdx && domainIdx < clientIdx) {
		t.Fatalf("fields out of order in %q", line)
	}
	if strings.Contains(line, "ignored=") {
		t.Fatalf("unknown field must not be printed: %q", line)
	}
}

func TestLogFormatter_WarnLevelShortened(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 8, 24, 10, 32, 1, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "x",
	}
	out, err := (&LogFormatter{}).Format(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "[warn ]") {
		t.Fatalf("expected shortened warn level, got %q", string(out))
	}
}
