package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/information-sharing-networks/verifiedid-demo/internal/server/handlers"
)

// statusServer returns the statuses in order, then repeats the last one
func statusServer(t *testing.T, statuses ...string) *httptest.Server {
	t.Helper()
	var calls atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/request-status/missing" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"Request not found","message":"Request not found"}`))
			return
		}
		if r.URL.Path != "/api/request-status/r1" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}

		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handlers.RequestStatusResponse{
			Success:   true,
			RequestID: "r1",
			Status:    statuses[n],
			Type:      "verification",
		})
	}))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "none"))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	srv := statusServer(t, "request_retrieved")
	defer srv.Close()

	out, err := run(t, "status", "r1", "--server", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"status": "request_retrieved"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestStatusCommand_NotFound(t *testing.T) {
	srv := statusServer(t, "request_created")
	defer srv.Close()

	_, err := run(t, "status", "missing", "--server", srv.URL)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("got %v, want ErrRequestNotFound", err)
	}
}

func TestWatch(t *testing.T) {
	srv := statusServer(t, "request_created", "request_created", "request_retrieved", "presentation_verified")
	defer srv.Close()

	var seen []string
	final, err := watch(context.Background(), NewClient(srv.URL, time.Second), "r1", 10*time.Millisecond, func(s *handlers.RequestStatusResponse) {
		seen = append(seen, s.Status)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Status != "presentation_verified" {
		t.Errorf("got final status %q", final.Status)
	}

	want := []string{"request_created", "request_retrieved", "presentation_verified"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("got changes %v, want %v", seen, want)
	}
}

func TestWatch_Timeout(t *testing.T) {
	srv := statusServer(t, "request_retrieved")
	defer srv.Close()

	_, err := run(t, "watch", "r1", "--server", srv.URL, "--interval", "10ms", "--timeout", "50ms")
	if !errors.Is(err, ErrWatchTimeout) {
		t.Errorf("got %v, want ErrWatchTimeout", err)
	}
}

func TestVerifyCommand(t *testing.T) {
	var gotFaceCheck bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/verify-credential" {
			http.NotFound(w, r)
			return
		}
		var body map[string]bool
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotFaceCheck = body["includeFaceCheck"]

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"requestId":"r9","url":"openid-vc://?request_uri=x","expiry":1760612400,"faceCheckEnabled":true}`))
	}))
	defer srv.Close()

	out, err := run(t, "verify", "--face-check", "--server", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotFaceCheck {
		t.Error("face check flag not sent")
	}
	if !strings.Contains(out, "r9") || !strings.Contains(out, "openid-vc://") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestVerifyCommand_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Failed to create presentation request","message":"invalid_client"}`))
	}))
	defer srv.Close()

	_, err := run(t, "verify", "--server", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "invalid_client") {
		t.Errorf("expected the service message in the error, got %v", err)
	}
}

func TestGenkey(t *testing.T) {
	out, err := run(t, "genkey", "--bytes", "24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(out))
	if err != nil || len(key) != 24 {
		t.Errorf("got %q, want 24 base64url encoded bytes", out)
	}

	if _, err := run(t, "genkey", "--bytes", "4"); err == nil {
		t.Error("short keys should be rejected")
	}
}
