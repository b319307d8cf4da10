package reconstruct

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/local/manualrebuild/internal/ai"
	"github.com/local/manualrebuild/internal/config"
)

// fakeClient records the requests it receives instead of calling out.
type fakeClient struct {
	calls int
	last  ai.Request
	resp  ai.Response
	err   error
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Do(ctx context.Context, req ai.Request) (ai.Response, error) {
	f.calls++
	f.last = req
	return f.resp, f.err
}

func gatewayConfig() config.ProviderConfig {
	return config.ProviderConfig{
		APIKey:      "test-key",
		AccountID:   "acct",
		GatewayID:   "gw",
		Routing:     config.RoutingGateway,
		Temperature: 0.1,
		Timeout:     5 * time.Second,
	}
}

func validRequest() Request {
	return Request{ImageBase64: "aGVsbG8=", MIMEType: "image/png", PageRange: "15-17"}
}

func TestForwarder_RejectsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ProviderConfig
		req     Request
		wantErr any
	}{
		{"missing image", gatewayConfig(), Request{MIMEType: "image/png", PageRange: "1"}, &ai.InvalidRequestError{}},
		{"missing mime", gatewayConfig(), Request{ImageBase64: "abc", PageRange: "1"}, &ai.InvalidRequestError{}},
		{"missing page range", gatewayConfig(), Request{ImageBase64: "abc", MIMEType: "image/png"}, &ai.InvalidRequestError{}},
		{"data url without payload", gatewayConfig(), Request{ImageBase64: "data:image/png;base64,", MIMEType: "image/png", PageRange: "1"}, &ai.InvalidRequestError{}},
		{"missing credential", config.ProviderConfig{AccountID: "a", GatewayID: "g"}, validRequest(), &ai.ConfigurationError{}},
		{"no endpoint source", config.ProviderConfig{APIKey: "k"}, validRequest(), &ai.ConfigurationError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{}
			f := NewForwarder(Options{Config: tt.cfg, Client: fc})

			_, err := f.Reconstruct(context.Background(), tt.req)
			switch tt.wantErr.(type) {
			case *ai.InvalidRequestError:
				var e *ai.InvalidRequestError
				if !errors.As(err, &e) {
					t.Fatalf("expected *InvalidRequestError, got %v", err)
				}
				if ai.StatusCode(err) != http.StatusBadRequest {
					t.Errorf("status = %d, want 400", ai.StatusCode(err))
				}
			case *ai.ConfigurationError:
				var e *ai.ConfigurationError
				if !errors.As(err, &e) {
					t.Fatalf("expected *ConfigurationError, got %v", err)
				}
				if ai.StatusCode(err) != http.StatusInternalServerError {
					t.Errorf("status = %d, want 500", ai.StatusCode(err))
				}
			}
			if fc.calls != 0 {
				t.Errorf("upstream called %d times, want 0", fc.calls)
			}
		})
	}
}

func TestForwarder_BuildsGatewayRequest(t *testing.T) {
	fc := &fakeClient{resp: ai.Response{Text: "<div>X</div>"}}
	f := NewForwarder(Options{Config: gatewayConfig(), Client: fc, Prompt: "PROMPT"})

	res, err := f.Reconstruct(context.Background(), Request{
		ImageBase64: "data:image/png;base64,aGVsbG8=",
		MIMEType:    "image/png",
		PageRange:   "15-17",
	})
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if fc.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", fc.calls)
	}

	wantURL := "https://gateway.ai.cloudflare.com/v1/acct/gw/google-ai-studio/v1/models/gemini-1.5-flash:generateContent"
	if got := fc.last.Endpoint.GenerateURL(fc.last.Model); got != wantURL {
		t.Errorf("upstream URL = %q, want %q", got, wantURL)
	}
	if fc.last.Endpoint.KeyInQuery {
		t.Error("gateway form must use the header")
	}
	if fc.last.ImageBase64 != "aGVsbG8=" {
		t.Errorf("ImageBase64 = %q, want payload after first comma", fc.last.ImageBase64)
	}
	if fc.last.Prompt != "PROMPT" || fc.last.ImageMIME != "image/png" || fc.last.APIKey != "test-key" {
		t.Errorf("unexpected request: %+v", fc.last)
	}
	if res.Text != "<div>X</div>" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Debug.BaseURLUsed != "https://gateway.ai.cloudflare.com/v1/acct/gw/google-ai-studio" || res.Debug.Model != config.DefaultModel {
		t.Errorf("Debug = %+v", res.Debug)
	}
}

func TestForwarder_UsesConfiguredModel(t *testing.T) {
	cfg := gatewayConfig()
	cfg.Model = "gemini-3-pro-preview"
	fc := &fakeClient{}
	if _, err := NewForwarder(Options{Config: cfg, Client: fc}).Reconstruct(context.Background(), validRequest()); err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if fc.last.Model != "gemini-3-pro-preview" {
		t.Errorf("Model = %q", fc.last.Model)
	}
}

func TestNormalizeImageData(t *testing.T) {
	tests := map[string]string{
		"aGVsbG8=":                       "aGVsbG8=",
		"data:image/png;base64,aGVsbG8=": "aGVsbG8=",
		"a,b,c":                          "b,c",
		",":                              "",
	}
	for in, want := range tests {
		if got := NormalizeImageData(in); got != want {
			t.Errorf("NormalizeImageData(%q) = %q, want %q", in, got, want)
		}
	}
}

// End to end against a fake provider, through the real Gemini client.
func TestForwarder_AgainstUpstream(t *testing.T) {
	t.Run("success joins parts", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			if r.URL.Path != "/google-ai-studio/v1/models/gemini-1.5-flash:generateContent" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Header.Get("x-goog-api-key") != "test-key" {
				t.Errorf("missing api key header")
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"A"},{"text":"B"}]}}]}`)
		}))
		defer server.Close()

		cfg := gatewayConfig()
		cfg.BaseURL = server.URL + "/google-ai-studio"
		res, err := NewForwarder(Options{Config: cfg}).Reconstruct(context.Background(), validRequest())
		if err != nil {
			t.Fatalf("Reconstruct() error = %v", err)
		}
		if res.Text != "A\nB" {
			t.Errorf("Text = %q, want %q", res.Text, "A\nB")
		}
		if atomic.LoadInt32(&hits) != 1 {
			t.Errorf("hits = %d, want exactly 1", hits)
		}
	})

	t.Run("upstream error keeps status and message", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
		}))
		defer server.Close()

		cfg := gatewayConfig()
		cfg.BaseURL = server.URL
		res, err := NewForwarder(Options{Config: cfg}).Reconstruct(context.Background(), validRequest())
		var up *ai.UpstreamError
		if !errors.As(err, &up) {
			t.Fatalf("expected *UpstreamError, got %v", err)
		}
		if up.Message != "quota exceeded" || up.StatusCode != http.StatusTooManyRequests {
			t.Errorf("upstream error = %+v", up)
		}
		if res.Debug.APIURL != server.URL+"/v1/models/gemini-1.5-flash:generateContent" {
			t.Errorf("Debug.APIURL = %q", res.Debug.APIURL)
		}
		if atomic.LoadInt32(&hits) != 1 {
			t.Errorf("hits = %d, no retries expected", hits)
		}
	})
}
