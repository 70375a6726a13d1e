package mediaserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/metrics"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/testsupport/mediastub"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := Config{BaseURL: baseURL}.NewClient(WithRecorder(metrics.New()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestProvisionKeySendsCommandForm(t *testing.T) {
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		captured = r.PostFormValue("command")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.ProvisionKey(context.Background(), "abc123"); err != nil {
		t.Fatalf("ProvisionKey: %v", err)
	}

	var document map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(captured), &document); err != nil {
		t.Fatalf("command field is not a JSON document: %v", err)
	}
	payload, ok := document["addstream"]
	if !ok {
		t.Fatalf("expected addstream command, got %v", document)
	}
	if _, ok := payload["abc123"]; !ok {
		t.Fatalf("expected key entry in payload, got %v", payload)
	}
	if _, ok := payload["stop_sessions"]; !ok {
		t.Fatalf("expected stop_sessions in payload, got %v", payload)
	}
}

func TestProvisionKeyAcceptsVaryingSuccessShapes(t *testing.T) {
	cases := []struct {
		name     string
		response map[string]any
		wantErr  bool
	}{
		{name: "key echoed as object", response: map[string]any{"k1": map[string]any{}}},
		{name: "general success flag", response: map[string]any{"success": true}},
		{name: "status OK", response: map[string]any{"k1": map[string]any{"status": "OK"}}},
		{name: "no marker", response: map[string]any{"error": "denied"}, wantErr: true},
		{name: "status not OK", response: map[string]any{"k1": map[string]any{"status": "FAILED"}}, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(tc.response)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			err := client.ProvisionKey(context.Background(), "k1")
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestActiveStreamsParsesStatusDocument(t *testing.T) {
	stub := mediastub.Start(mediastub.Options{Active: []string{"k1", "k2"}})
	defer stub.Close()

	client := newTestClient(t, stub.BaseURL())
	active, err := client.ActiveStreams(context.Background())
	if err != nil {
		t.Fatalf("ActiveStreams: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active keys, got %v", active)
	}
	if _, ok := active["k1"]; !ok {
		t.Fatalf("expected k1 active, got %v", active)
	}
}

func TestActiveStreamsEmptyWhenStatusDocumentMissing(t *testing.T) {
	stub := mediastub.Start(mediastub.Options{})
	defer stub.Close()

	client := newTestClient(t, stub.BaseURL())
	active, err := client.ActiveStreams(context.Background())
	if err != nil {
		t.Fatalf("ActiveStreams: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected empty set, got %v", active)
	}
}

func TestActiveStreamsUnavailableOnTransportFailure(t *testing.T) {
	stub := mediastub.Start(mediastub.Options{FailStatusCalls: 1})
	defer stub.Close()

	client := newTestClient(t, stub.BaseURL())
	if _, err := client.ActiveStreams(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestActiveStreamsUnavailableOnBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.ActiveStreams(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRevokeKeyIncompleteDelete(t *testing.T) {
	stub := mediastub.Start(mediastub.Options{IncompleteDelete: true})
	defer stub.Close()

	client := newTestClient(t, stub.BaseURL())
	if err := client.RevokeKey(context.Background(), "k1"); err == nil {
		t.Fatalf("expected error for incomplete delete")
	}
}

func TestRevokeKeySucceeds(t *testing.T) {
	stub := mediastub.Start(mediastub.Options{Active: []string{"k1"}})
	defer stub.Close()

	client := newTestClient(t, stub.BaseURL())
	if err := client.RevokeKey(context.Background(), "k1"); err != nil {
		t.Fatalf("RevokeKey: %v", err)
	}

	active, err := client.ActiveStreams(context.Background())
	if err != nil {
		t.Fatalf("ActiveStreams: %v", err)
	}
	if _, ok := active["k1"]; ok {
		t.Fatalf("expected k1 removed from active set")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "disabled", cfg: Config{}},
		{name: "base url only", cfg: Config{BaseURL: "http://media:4242/api2"}},
		{name: "host and port", cfg: Config{Host: "media", APIPort: 4242}},
		{name: "host without port", cfg: Config{Host: "media"}, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
