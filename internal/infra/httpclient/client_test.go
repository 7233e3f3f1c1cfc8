package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesTimeout(t *testing.T) {
	client := New(5 * time.Second)
	if client.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", client.Timeout)
	}
	if _, ok := client.Transport.(*http.Transport); !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
}

func TestNewDefaultsNonPositiveTimeout(t *testing.T) {
	if got := New(0).Timeout; got != 30*time.Second {
		t.Fatalf("unexpected default timeout: %s", got)
	}
}
