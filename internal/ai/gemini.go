package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type GeminiClient struct {
	http *http.Client
}

// NewGeminiClient returns a client whose single outbound call is bounded by timeout.
func NewGeminiClient(timeout time.Duration) *GeminiClient {
	return &GeminiClient{http: &http.Client{Timeout: timeout}}
}

func (c *GeminiClient) Name() string { return "gemini" }

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiGenerateReq struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResp struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func buildPayload(req Request) geminiGenerateReq {
	return geminiGenerateReq{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: req.Prompt},
				{InlineData: &geminiInlineData{MimeType: req.ImageMIME, Data: req.ImageBase64}},
				{Text: req.Instruction},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{Temperature: req.Temperature},
	}
}

// Do sends exactly one generateContent request. Non-2xx responses become
// *UpstreamError; a timed out call becomes an *UpstreamError with status 504.
func (c *GeminiClient) Do(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return Response{}, fmt.Errorf("marshal gemini request: %w", err)
	}

	target, err := req.Endpoint.requestURL(req.Model, req.APIKey)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if !req.Endpoint.KeyInQuery {
		httpReq.Header.Set("x-goog-api-key", req.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// never leak ?key= through the url.Error text
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = req.Endpoint.GenerateURL(req.Model)
		}
		if isTimeout(err) {
			return Response{}, &UpstreamError{StatusCode: http.StatusGatewayTimeout, Message: "upstream request timed out"}
		}
		return Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(resp.StatusCode, raw),
			Body:       string(raw),
		}
	}

	var r geminiGenerateResp
	if err := json.Unmarshal(raw, &r); err != nil {
		return Response{}, fmt.Errorf("decode gemini response: %w", err)
	}

	return Response{
		Text:      extractText(r),
		TokensIn:  r.UsageMetadata.PromptTokenCount,
		TokensOut: r.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// upstreamMessage prefers the provider's error.message, falling back to a
// status-derived message when the body is not the expected JSON.
func upstreamMessage(status int, raw []byte) string {
	var e geminiErrorResp
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return fmt.Sprintf("Gemini API Error: %d", status)
}

// extractText joins the non-empty text parts of the first candidate.
func extractText(r geminiGenerateResp) string {
	if len(r.Candidates) == 0 {
		return ""
	}
	parts := r.Candidates[0].Content.Parts
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if joined := strings.Join(texts, "\n"); joined != "" {
		return joined
	}
	if len(parts) > 0 {
		return parts[0].Text
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
