package statuscheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/local/manualrebuild/internal/config"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestChecker_Summary(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		c := New(Options{
			Redis:    stubPinger{},
			Storage:  stubPinger{},
			Provider: config.ProviderConfig{APIKey: "k", AccountID: "a", GatewayID: "g", Routing: config.RoutingGateway},
		})
		s := c.Summary(context.Background())
		if !s.Redis.OK || !s.Storage.OK || !s.Provider.OK {
			t.Errorf("summary = %+v", s)
		}
		if !strings.Contains(s.Provider.Message, "gateway.ai.cloudflare.com/v1/a/g/google-ai-studio") {
			t.Errorf("provider message = %q", s.Provider.Message)
		}
	})

	t.Run("disabled and failing", func(t *testing.T) {
		c := New(Options{
			Storage:  stubPinger{err: errors.New(strings.Repeat("x", 200))},
			Provider: config.ProviderConfig{APIKey: "k", Routing: config.RoutingGateway},
		})
		s := c.Summary(context.Background())
		if s.Redis.OK || s.Redis.Message != "Audit log disabled" {
			t.Errorf("redis = %+v", s.Redis)
		}
		if s.Storage.OK || len(s.Storage.Message) != 120 {
			t.Errorf("storage = %+v", s.Storage)
		}
		if s.Provider.OK || !strings.HasPrefix(s.Provider.Message, "Missing CF_ACCOUNT_ID") {
			t.Errorf("provider = %+v", s.Provider)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		s := New(Options{Provider: config.ProviderConfig{Routing: config.RoutingDirect}}).Summary(context.Background())
		if s.Provider.OK || s.Provider.Message != "API key missing" {
			t.Errorf("provider = %+v", s.Provider)
		}
	})
}

func TestHandleStatus(t *testing.T) {
	mux := http.NewServeMux()
	New(Options{Redis: stubPinger{}, Provider: config.ProviderConfig{APIKey: "k", Routing: config.RoutingDirect}}).RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var s Summary
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if !s.Redis.OK || !s.Provider.OK || s.Storage.OK {
		t.Errorf("summary = %+v", s)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/status", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", w.Code)
	}
}
