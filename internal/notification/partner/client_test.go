package partner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPostLeadSendsSnakeCasePayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, time.Second, srv.Client())
	err := c.PostLead(context.Background(), Lead{ID: 3, Name: "Asha", AssignedTo: 4, MobileNumber: "+919876543210", PreferredTimeSlot: "Morning"})
	if err != nil {
		t.Fatalf("PostLead: %v", err)
	}
	for _, key := range []string{"assigned_to", "mobile_number", "preferred_time_slot", "checkbox_ids", "created_at"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("payload misses %q: %v", key, got)
		}
	}
	if ids, ok := got["checkbox_ids"].([]any); !ok || len(ids) != 0 {
		t.Fatalf("checkbox_ids must be an empty list, got %v", got["checkbox_ids"])
	}
}

func TestPostLeadReportsFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		want    string
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "mailer down", http.StatusBadGateway) },
			timeout: time.Second,
			want:    "mailer down",
		},
		{
			name:    "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				// The connection close is only noticed once the body is consumed.
				_, _ = io.Copy(io.Discard, r.Body)
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
			want:    "Client.Timeout",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			err := NewClientWithHTTP(srv.URL, tc.timeout, srv.Client()).PostLead(context.Background(), Lead{ID: 1})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	var c *Client
	if c.Enabled() || c.PostLead(context.Background(), Lead{}) != nil {
		t.Fatal("nil client must be a disabled no-op")
	}
	if (&Client{}).Enabled() {
		t.Fatal("client without url must be disabled")
	}
}
