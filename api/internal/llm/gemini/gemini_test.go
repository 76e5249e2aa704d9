package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"typing-assistant/api/internal/llm"
)

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestEngine_Generate_RequestShape(t *testing.T) {
	var got generateRequest
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"), "api key must not travel in the URL")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	_, err := e.Generate(context.Background(), "Correct the spelling of these words: helo", llm.DefaultGeneration)
	require.NoError(t, err)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "Correct the spelling of these words: helo", got.Contents[0].Parts[0].Text)
	assert.Equal(t, float32(0.7), got.GenerationConfig.Temperature)
	assert.Equal(t, int32(40), got.GenerationConfig.TopK)
	assert.Equal(t, float32(0.95), got.GenerationConfig.TopP)
	assert.Equal(t, int32(1000), got.GenerationConfig.MaxOutputTokens)
}

func TestEngine_Generate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr error
	}{
		{
			name:   "first candidate text returned verbatim",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"  hello world\n"},{"text":"ignored"}]}},{"content":{"parts":[{"text":"second"}]}}]}`,
			want:   "  hello world\n",
		},
		{
			name:   "empty text is still a valid answer",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
			want:   "",
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"message":"boom"}}`,
			wantErr: llm.ErrTransport,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"API key not valid"}}`,
			wantErr: llm.ErrTransport,
		},
		{
			name:    "no candidates",
			status:  http.StatusOK,
			body:    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantErr: llm.ErrMalformedResponse,
		},
		{
			name:    "candidate without content",
			status:  http.StatusOK,
			body:    `{"candidates":[{"finishReason":"SAFETY"}]}`,
			wantErr: llm.ErrMalformedResponse,
		},
		{
			name:    "content without parts",
			status:  http.StatusOK,
			body:    `{"candidates":[{"content":{"role":"model"}}]}`,
			wantErr: llm.ErrMalformedResponse,
		},
		{
			name:    "part without text",
			status:  http.StatusOK,
			body:    `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`,
			wantErr: llm.ErrMalformedResponse,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>gateway</html>`,
			wantErr: llm.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := e.Generate(context.Background(), "prompt", llm.DefaultGeneration)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_Generate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	e := New(Config{APIKey: "k", BaseURL: base, Timeout: time.Second}, nil)
	_, err := e.Generate(context.Background(), "prompt", llm.DefaultGeneration)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrTransport)
}

func TestEngine_Generate_MissingKey(t *testing.T) {
	e := New(Config{}, nil)
	_, err := e.Generate(context.Background(), "prompt", llm.DefaultGeneration)
	assert.ErrorIs(t, err, llm.ErrTransport)
	assert.Equal(t, DefaultModel, e.GetModel())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate([]byte("  short\n")))

	// one ASCII byte shifts every two-byte rune across the cut
	long := "x" + strings.Repeat("é", maxErrBody)
	got := truncate([]byte(long))
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len(strings.TrimSuffix(got, "…")), maxErrBody)
	assert.Equal(t, maxErrBody-1, len(strings.TrimSuffix(got, "…")))

	assert.True(t, utf8.ValidString(truncate([]byte{'a', 0xff, 'b'})))
}

func TestFirstText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil response", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "nil content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: true,
		},
		{
			name: "no parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Role: "model"}},
			}},
			wantErr: true,
		},
		{
			name: "blob part",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{&genai.Blob{MIMEType: "image/png"}}}},
			}},
			wantErr: true,
		},
		{
			name: "text part",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("fixed text "), genai.Text("more")}}},
			}},
			want: "fixed text ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := firstText(tt.resp)
			if tt.wantErr {
				assert.ErrorIs(t, err, llm.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToSDKConfig(t *testing.T) {
	c := toSDKConfig(llm.DefaultGeneration)
	require.NotNil(t, c.Temperature)
	require.NotNil(t, c.TopK)
	require.NotNil(t, c.TopP)
	require.NotNil(t, c.MaxOutputTokens)
	assert.Equal(t, float32(0.7), *c.Temperature)
	assert.Equal(t, int32(40), *c.TopK)
	assert.Equal(t, float32(0.95), *c.TopP)
	assert.Equal(t, int32(1000), *c.MaxOutputTokens)
}

func TestSDKEngine_Defaults(t *testing.T) {
	e := NewSDK(Config{APIKey: " key "}, nil)
	assert.Equal(t, "gemini-sdk", e.Name())
	assert.Equal(t, DefaultModel, e.GetModel())
	assert.Equal(t, "key", e.APIKey)
	assert.Len(t, e.clientOptions(), 1)

	e = NewSDK(Config{APIKey: "key", BaseURL: "http://localhost:9"}, nil)
	assert.Len(t, e.clientOptions(), 2)

	_, err := NewSDK(Config{}, nil).Generate(context.Background(), "p", llm.DefaultGeneration)
	assert.ErrorIs(t, err, llm.ErrTransport)
}
