package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDeliver_SignsBody(t *testing.T) {
	const secret = "s3cret"

	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-PageMiner-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(5 * time.Second)
	event := &Event{Type: EventCrawlCompleted, JobID: "crawl-abc", Timestamp: 1700000000}
	if err := n.Deliver(context.Background(), srv.URL, secret, event); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}

	var decoded Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if decoded.Type != EventCrawlCompleted || decoded.JobID != "crawl-abc" {
		t.Errorf("decoded event = %+v", decoded)
	}
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-PageMiner-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(5 * time.Second)
	if err := n.Deliver(context.Background(), srv.URL, "", &Event{Type: EventCrawlFailed}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if gotSig != "" {
		t.Errorf("signature header set without a secret: %q", gotSig)
	}
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(5 * time.Second)
	if err := n.Deliver(context.Background(), srv.URL, "", &Event{Type: EventCrawlCompleted}); err == nil {
		t.Fatal("Deliver() error = nil for a 500 endpoint")
	}
}

func TestNewNotifier_DefaultTimeout(t *testing.T) {
	n := NewNotifier(0)
	if n.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s default", n.timeout)
	}
}
