// Package model implements the external Model Adapter collaborator:
// given a prompt and a PNG patch, return the model's edited PNG bytes.
package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// geminiBaseURL is the Gemini REST API base URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiBaseURLOverride lets tests redirect requests at a local server.
var geminiBaseURLOverride string

func resolveBaseURL() string {
	if geminiBaseURLOverride != "" {
		return geminiBaseURLOverride
	}
	return geminiBaseURL
}

// DefaultModel is used when the caller does not override it.
const DefaultModel = "gemini-3-pro-image-preview"

// DefaultTimeout matches the configured model_timeout_s default.
const DefaultTimeout = 60 * time.Second

// Sentinel errors mapped by internal/editcore onto the public taxonomy.
var (
	ErrInvalidCredential = errors.New("model: invalid or rejected credential")
	ErrRateLimited       = errors.New("model: rate limited")
	ErrNoImageInResponse = errors.New("model: no image returned in response")
	ErrModelTimeout      = errors.New("model: request timed out")
	ErrModelUnavailable  = errors.New("model: upstream returned an error")
)

// GeminiClient calls the Gemini image model over its REST API. The Go
// SDK does not support image output, so this speaks the HTTP contract
// directly, matching the pattern the rest of this domain's clients use.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// ClientOption customizes a GeminiClient at construction time.
type ClientOption func(*GeminiClient)

// WithModel overrides DefaultModel.
func WithModel(model string) ClientOption {
	return func(c *GeminiClient) { c.model = model }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *GeminiClient) { c.httpClient.Timeout = d }
}

// NewGeminiClient builds a client for the given API key.
func NewGeminiClient(apiKey string, opts ...ClientOption) *GeminiClient {
	c := &GeminiClient{
		apiKey: apiKey,
		model:  DefaultModel,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Turn is one prior exchange in a multi-turn revise conversation
// (supports the multi-turn ReviseRequest flow).
type Turn struct {
	Role      string
	Text      string
	ImageData []byte
	ImageMIME string
}

// GenerateFromPatch implements the generate_from_patch contract: send
// a PNG patch and a prompt, get an edited PNG (or JPEG) back.
func (c *GeminiClient) GenerateFromPatch(ctx context.Context, prompt string, patchPNG []byte) ([]byte, error) {
	return c.generate(ctx, prompt, patchPNG, "image/png", nil)
}

// ReviseFromPatch is the multi-turn variant used by the supplemented
// ReviseRequest operation: it replays prior turns before the current
// instruction so the model has the conversation's context.
func (c *GeminiClient) ReviseFromPatch(ctx context.Context, prompt string, patchPNG []byte, history []Turn) ([]byte, error) {
	return c.generate(ctx, prompt, patchPNG, "image/png", history)
}

func (c *GeminiClient) generate(ctx context.Context, prompt string, patchPNG []byte, mimeType string, history []Turn) ([]byte, error) {
	start := time.Now()

	req := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	for _, turn := range history {
		content := geminiContent{Role: turn.Role}
		if turn.ImageData != nil {
			content.Parts = append(content.Parts, geminiPart{
				InlineData: &geminiBlobData{
					MIMEType: turn.ImageMIME,
					Data:     base64.StdEncoding.EncodeToString(turn.ImageData),
				},
			})
		}
		if turn.Text != "" {
			content.Parts = append(content.Parts, geminiPart{Text: turn.Text})
		}
		req.Contents = append(req.Contents, content)
	}

	req.Contents = append(req.Contents, geminiContent{
		Role: "user",
		Parts: []geminiPart{
			{InlineData: &geminiBlobData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(patchPNG)}},
			{Text: prompt},
		},
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", resolveBaseURL(), c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrModelTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrModelUnavailable, err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidCredential, resp.StatusCode)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("body", truncateString(string(respBody), 500)).Msg("model adapter returned error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrModelUnavailable, resp.StatusCode, truncateString(string(respBody), 200))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrModelUnavailable, err)
	}
	if geminiResp.Error != nil {
		if geminiResp.Error.Code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, geminiResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, geminiResp.Error.Message)
	}

	var imageData []byte
	var text string
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil {
				decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("%w: decode image: %v", ErrModelUnavailable, err)
				}
				imageData = decoded
			}
			if part.Text != "" {
				text += part.Text
			}
		}
	}

	if imageData == nil {
		return nil, fmt.Errorf("%w (text: %s)", ErrNoImageInResponse, truncateString(text, 200))
	}

	log.Debug().
		Int("output_bytes", len(imageData)).
		Dur("duration", time.Since(start)).
		Msg("model adapter patch generated")

	return imageData, nil
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
