package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const reconstructPath = "/api/reconstruct"

// Options configures the Client.
type Options struct {
	BaseURL    string // server root, e.g. http://127.0.0.1:8080
	HTTPClient *http.Client
	Script     string // defaults to UploadScript()
}

// Client calls the reconstruct endpoint and prepares the returned HTML for display.
type Client struct {
	baseURL string
	http    *http.Client
	script  string
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		// a little above the server's own upstream timeout
		hc = &http.Client{Timeout: 150 * time.Second}
	}
	script := opts.Script
	if script == "" {
		script = uploadScript
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		script:  script,
	}
}

type reconstructReq struct {
	ImageBase64 string `json:"imageBase64"`
	MIMEType    string `json:"mimeType"`
	PageRange   string `json:"pageRange"`
}

type reconstructResp struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// ReconstructManualPage sends one page image to the server and returns the
// cleaned HTML with the upload script injected.
func (c *Client) ReconstructManualPage(ctx context.Context, imageBase64, mimeType, pageRange string) (string, error) {
	html, err := c.reconstruct(ctx, imageBase64, mimeType, pageRange)
	if err != nil {
		log.Error().Err(err).Str("page_range", pageRange).Msg("reconstruct request failed")
		return "", err
	}
	return html, nil
}

func (c *Client) reconstruct(ctx context.Context, imageBase64, mimeType, pageRange string) (string, error) {
	body, err := json.Marshal(reconstructReq{ImageBase64: imageBase64, MIMEType: mimeType, PageRange: pageRange})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+reconstructPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var r reconstructResp
		if json.Unmarshal(raw, &r) == nil && r.Error != "" {
			return "", errors.New(r.Error)
		}
		return "", fmt.Errorf("request failed: %d", resp.StatusCode)
	}

	var r reconstructResp
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return InjectScript(CleanHTML(r.Text), c.script), nil
}
