package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleListing(url string) model.Listing {
	posted := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	return model.Listing{
		Title:       "Software Engineer",
		Company:     "Acme",
		Description: "Build things.",
		Location:    "Remote",
		URL:         url,
		Source:      "indeed",
		PostedDate:  &posted,
		FirstSeen:   time.Now(),
	}
}

func TestSlackNotify_SendsBlockKitPayload(t *testing.T) {
	var received slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify([]model.Listing{sampleListing("https://example.com/j/1")}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if len(received.Blocks) == 0 {
		t.Fatal("expected at least one block in payload")
	}
	header := received.Blocks[0]
	if header.Type != "header" || header.Text == nil {
		t.Fatalf("first block = %+v, want header with text", header)
	}
	if header.Text.Text != "Acme: Software Engineer" {
		t.Errorf("header text = %q", header.Text.Text)
	}
}

func TestSlackNotify_RetriesOn429(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify([]model.Listing{sampleListing("https://example.com/j/1")}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (original + retry)", calls)
	}
}

func TestSlackNotify_AllFailuresReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	err := n.Notify([]model.Listing{sampleListing("https://example.com/j/1")})
	if err == nil {
		t.Fatal("expected error when every notification fails")
	}
}

func TestSlackNotify_EmptyListIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for empty listing set")
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(nil); err != nil {
		t.Fatalf("Notify(nil) returned error: %v", err)
	}
}
