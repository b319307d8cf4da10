package statuscheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/local/manualrebuild/internal/ai"
	"github.com/local/manualrebuild/internal/config"
)

// Pinger models the minimal capability we need from Redis and the bucket.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates health checks for the services the reconstructor depends on.
type Checker struct {
	redis    Pinger
	storage  Pinger
	provider config.ProviderConfig
}

// Options configures the Checker. Nil pingers mean the feature is disabled.
type Options struct {
	Redis    Pinger
	Storage  Pinger
	Provider config.ProviderConfig
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis    Status `json:"redis"`
	Storage  Status `json:"storage"`
	Provider Status `json:"provider"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	return &Checker{
		redis:    opts.Redis,
		storage:  opts.Storage,
		provider: opts.Provider,
	}
}

func (c *Checker) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", c.handleStatus)
}

func (c *Checker) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Summary(r.Context()))
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:    ping(ctx, c.redis, "Audit log disabled"),
		Storage:  ping(ctx, c.storage, "Bucket not configured"),
		Provider: c.checkProvider(),
	}
}

func ping(ctx context.Context, p Pinger, disabled string) Status {
	if p == nil {
		return Status{OK: false, Message: disabled}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

// checkProvider validates provider configuration without calling out, so
// /status never spends quota.
func (c *Checker) checkProvider() Status {
	if strings.TrimSpace(c.provider.APIKey) == "" {
		return Status{OK: false, Message: "API key missing"}
	}
	ep, err := ai.ResolverFor(c.provider.Routing).Resolve(c.provider)
	if err != nil {
		return Status{OK: false, Message: ai.Message(err)}
	}
	return Status{OK: true, Message: ep.Route + " " + ep.BaseURL}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
