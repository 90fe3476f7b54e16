package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewGeminiClient("test-key")
	c.httpClient = srv.Client()
	// Point requests at the test server rather than the real API.
	origBase := geminiBaseURLOverride
	geminiBaseURLOverride = srv.URL
	return c, func() { geminiBaseURLOverride = origBase; srv.Close() }
}

func TestGenerateFromPatch_Success(t *testing.T) {
	c, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Parts: []geminiPart{
					{InlineData: &geminiBlobData{MIMEType: "image/png", Data: base64.StdEncoding.EncodeToString([]byte("fake-png"))}},
				}},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	defer cleanup()

	out, err := c.GenerateFromPatch(context.Background(), "make it blue", []byte("patch"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-png"), out)
}

func TestGenerateFromPatch_NoImageInResponse(t *testing.T) {
	c, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: "I cannot do that"}}}}}}
		_ = json.NewEncoder(w).Encode(resp)
	})
	defer cleanup()

	_, err := c.GenerateFromPatch(context.Background(), "prompt", []byte("patch"))
	assert.ErrorIs(t, err, ErrNoImageInResponse)
}

func TestGenerateFromPatch_InvalidCredential(t *testing.T) {
	c, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	})
	defer cleanup()

	_, err := c.GenerateFromPatch(context.Background(), "prompt", []byte("patch"))
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGenerateFromPatch_RateLimited(t *testing.T) {
	c, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	})
	defer cleanup()

	_, err := c.GenerateFromPatch(context.Background(), "prompt", []byte("patch"))
	assert.ErrorIs(t, err, ErrRateLimited)
}
