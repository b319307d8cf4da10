package ai

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/local/manualrebuild/internal/config"
)

const (
	DefaultGatewayHost   = "gateway.ai.cloudflare.com"
	DefaultDirectBaseURL = "https://generativelanguage.googleapis.com"

	gatewayProviderSegment = "google-ai-studio"
)

// Endpoint is a resolved upstream base URL plus where the credential goes.
type Endpoint struct {
	BaseURL    string
	Route      string // config.RoutingGateway or config.RoutingDirect
	KeyInQuery bool   // direct form: ?key=..., otherwise x-goog-api-key header
}

// GenerateURL returns the generateContent URL for model, without credentials.
func (e Endpoint) GenerateURL(model string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/v1/models/" + model + ":generateContent"
}

// requestURL returns the URL actually dialed, credential included when it
// travels in the query string. Errors never carry the credential.
func (e Endpoint) requestURL(model, apiKey string) (string, error) {
	u, err := url.Parse(e.GenerateURL(model))
	if err != nil {
		return "", &ConfigurationError{Message: fmt.Sprintf("invalid upstream base URL %q", e.BaseURL)}
	}
	if e.KeyInQuery {
		q := u.Query()
		q.Set("key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// checkBaseURL rejects base URLs that cannot be dialed.
func checkBaseURL(base string) error {
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Message: fmt.Sprintf("invalid upstream base URL %q", base)}
	}
	return nil
}

// EndpointResolver picks the upstream base URL from provider configuration.
type EndpointResolver interface {
	Resolve(cfg config.ProviderConfig) (Endpoint, error)
}

// GatewayResolver routes through an AI gateway: an explicit base URL override
// wins, otherwise the account/gateway pair is required.
type GatewayResolver struct {
	Host string
}

func (r GatewayResolver) Resolve(cfg config.ProviderConfig) (Endpoint, error) {
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if err := checkBaseURL(base); err != nil {
			return Endpoint{}, err
		}
		return Endpoint{BaseURL: base, Route: config.RoutingGateway}, nil
	}
	if cfg.AccountID == "" || cfg.GatewayID == "" {
		return Endpoint{}, &ConfigurationError{
			Message: "Missing CF_ACCOUNT_ID/CF_GATEWAY_ID. Or set API_BASE_URL to the full google-ai-studio provider baseUrl.",
		}
	}
	host := r.Host
	if host == "" {
		host = DefaultGatewayHost
	}
	base := fmt.Sprintf("https://%s/v1/%s/%s/%s", host, cfg.AccountID, cfg.GatewayID, gatewayProviderSegment)
	if err := checkBaseURL(base); err != nil {
		return Endpoint{}, err
	}
	return Endpoint{BaseURL: base, Route: config.RoutingGateway}, nil
}

// DirectResolver calls the provider itself with the key in the query string.
type DirectResolver struct {
	DefaultBaseURL string
}

func (r DirectResolver) Resolve(cfg config.ProviderConfig) (Endpoint, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = r.DefaultBaseURL
	}
	if base == "" {
		base = DefaultDirectBaseURL
	}
	if err := checkBaseURL(base); err != nil {
		return Endpoint{}, err
	}
	return Endpoint{BaseURL: base, Route: config.RoutingDirect, KeyInQuery: true}, nil
}

// ResolverFor returns the resolver for a routing mode.
func ResolverFor(routing string) EndpointResolver {
	if routing == config.RoutingDirect {
		return DirectResolver{}
	}
	return GatewayResolver{}
}
