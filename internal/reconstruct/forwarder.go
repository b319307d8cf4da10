package reconstruct

import (
	"context"
	"strings"
	"time"

	"github.com/local/manualrebuild/internal/ai"
	"github.com/local/manualrebuild/internal/config"
	"github.com/local/manualrebuild/internal/metrics"
	"github.com/local/manualrebuild/internal/prompt"
)

// Request is the inbound reconstruct payload.
type Request struct {
	ImageBase64 string `json:"imageBase64"`
	MIMEType    string `json:"mimeType"`
	PageRange   string `json:"pageRange"`
}

// Debug describes which upstream was used. It never carries the credential.
type Debug struct {
	APIURL      string `json:"apiUrl,omitempty"`
	BaseURLUsed string `json:"baseUrlUsed"`
	Model       string `json:"model"`
	Route       string `json:"-"`
}

type Result struct {
	Text  string
	Debug Debug
}

type Options struct {
	Config   config.ProviderConfig
	Resolver ai.EndpointResolver // defaults to ai.ResolverFor(Config.Routing)
	Client   ai.Client           // defaults to a Gemini client bounded by Config.Timeout
	Prompt   string              // defaults to the embedded prompt
}

// Forwarder turns one page image into one upstream generateContent call.
// It holds read-only configuration only and is safe for concurrent use.
type Forwarder struct {
	cfg      config.ProviderConfig
	resolver ai.EndpointResolver
	client   ai.Client
	prompt   string
}

func NewForwarder(opts Options) *Forwarder {
	f := &Forwarder{cfg: opts.Config, resolver: opts.Resolver, client: opts.Client, prompt: opts.Prompt}
	if f.resolver == nil {
		f.resolver = ai.ResolverFor(opts.Config.Routing)
	}
	if f.client == nil {
		f.client = ai.NewGeminiClient(opts.Config.Timeout)
	}
	if f.prompt == "" {
		f.prompt = prompt.Default()
	}
	if strings.TrimSpace(f.cfg.Model) == "" {
		f.cfg.Model = config.DefaultModel
	}
	return f
}

// NormalizeImageData strips a data-URL prefix, keeping what follows the first comma.
func NormalizeImageData(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Reconstruct validates req, resolves the upstream and performs the call.
// Configuration and input problems are reported before any network traffic.
func (f *Forwarder) Reconstruct(ctx context.Context, req Request) (Result, error) {
	if f.cfg.APIKey == "" {
		return Result{}, &ai.ConfigurationError{Message: "Missing GEMINI_API_KEY"}
	}
	if req.ImageBase64 == "" || req.MIMEType == "" || req.PageRange == "" {
		return Result{}, &ai.InvalidRequestError{Message: "Missing imageBase64 / mimeType / pageRange"}
	}
	data := NormalizeImageData(req.ImageBase64)
	if data == "" {
		return Result{}, &ai.InvalidRequestError{Message: "imageBase64 has no data after the data-URL prefix"}
	}

	ep, err := f.resolver.Resolve(f.cfg)
	if err != nil {
		return Result{}, err
	}
	model := strings.TrimSpace(f.cfg.Model)
	debug := Debug{BaseURLUsed: ep.BaseURL, Model: model, Route: ep.Route}

	start := time.Now()
	resp, err := f.client.Do(ctx, ai.Request{
		Endpoint:    ep,
		Model:       model,
		APIKey:      f.cfg.APIKey,
		Temperature: f.cfg.Temperature,
		Prompt:      f.prompt,
		ImageBase64: data,
		ImageMIME:   req.MIMEType,
		Instruction: prompt.PageInstruction(req.PageRange),
	})
	metrics.ObserveUpstream(ep.Route, model, ai.Kind(err), time.Since(start))
	if err != nil {
		debug.APIURL = ep.GenerateURL(model)
		return Result{Debug: debug}, err
	}
	metrics.AddTokens(model, resp.TokensIn, resp.TokensOut)
	return Result{Text: resp.Text, Debug: debug}, nil
}
