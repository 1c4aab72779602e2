package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDTransport(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(HeaderRequestID))
	}))
	defer srv.Close()

	client := &http.Client{Transport: RequestIDTransport(func() string { return "fixed-id" }, http.DefaultTransport)}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set(HeaderRequestID, "caller-id")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if len(seen) != 2 || seen[0] != "fixed-id" || seen[1] != "caller-id" {
		t.Fatalf("request ids = %v", seen)
	}
}

func TestTransportLogsFailuresAsWarnings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Output: &buf, Level: slog.LevelDebug, Component: ComponentRemote})
	client := &http.Client{Transport: Transport(l, http.DefaultTransport)}

	resp, err := client.Get(srv.URL + "/api/v1/expenses/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"status_code":404`) {
		t.Fatalf("unexpected log output %q", out)
	}
	if !strings.Contains(out, `"path":"/api/v1/expenses/"`) {
		t.Fatalf("path missing from %q", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
	l := Discard().WithComponent(ComponentSession)
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}
