package worldtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientCurrentTime(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"abbreviation":"IST","datetime":"2024-01-01T10:00:00.123456+05:30","utc_offset":"+05:30"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/api/timezone/", "Asia/Kolkata", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	got, err := client.CurrentTime(context.Background())
	if err != nil {
		t.Fatalf("current time: %v", err)
	}
	if got != "2024-01-01T10:00:00.123456+05:30" {
		t.Fatalf("unexpected datetime: %q", got)
	}
	if gotPath != "/api/timezone/Asia/Kolkata" {
		t.Fatalf("unexpected request path: %q", gotPath)
	}
}

func TestClientCurrentTimeFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{name: "server error", status: http.StatusServiceUnavailable, body: `{"error":"down"}`, reason: ReasonStatus},
		{name: "not found", status: http.StatusNotFound, body: ``, reason: ReasonStatus},
		{name: "malformed body", status: http.StatusOK, body: `{"datetime":`, reason: ReasonDecode},
		{name: "empty body", status: http.StatusOK, body: ``, reason: ReasonEmpty},
		{name: "missing datetime", status: http.StatusOK, body: `{"timezone":"Asia/Kolkata"}`, reason: ReasonEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := NewClient(srv.URL, "Asia/Kolkata", time.Second)
			if err != nil {
				t.Fatalf("new client: %v", err)
			}

			_, err = client.CurrentTime(context.Background())
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if perr.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q (%v)", tc.reason, perr.Reason, err)
			}
			if tc.reason == ReasonStatus && perr.Status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, perr.Status)
			}
		})
	}
}

func TestClientCurrentTimeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, "Asia/Kolkata", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.CurrentTime(context.Background())
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Reason != ReasonTransport {
		t.Fatalf("expected transport ProviderError, got %v", err)
	}
}

func TestClientTimeoutIsBounded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewClient(srv.URL, "Asia/Kolkata", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	start := time.Now()
	_, err = client.CurrentTime(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("call not bounded by timeout: %v", elapsed)
	}
}

func TestNewClientValidatesInput(t *testing.T) {
	if _, err := NewClient(" ", "Asia/Kolkata", time.Second); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient("http://example.com", "", time.Second); err == nil {
		t.Fatal("expected error for empty timezone")
	}
	client, err := NewClient("http://example.com/api/timezone/", "/Asia/Kolkata", 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Endpoint() != "http://example.com/api/timezone/Asia/Kolkata" {
		t.Fatalf("unexpected endpoint: %s", client.Endpoint())
	}
}
