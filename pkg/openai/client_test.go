package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     string
		wantContent string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "cmpl-9",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "ANCHOR|PARK|Chaparral Park|Lakeside trails."}}],
				"usage": {"prompt_tokens": 200, "completion_tokens": 40}
			}`,
			wantContent: "ANCHOR|PARK|Chaparral Park|Lakeside trails.",
		},
		{
			name:    "upstream_error",
			status:  http.StatusBadGateway,
			body:    `{"error": "overloaded"}`,
			wantErr: "unexpected status 502",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{broken`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", srv.URL, WithPath("/v1/chat/completions"), WithModel("gpt-4o-mini"))
			resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: "hi"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Len(t, resp.Choices, 1)
			assert.Equal(t, tt.wantContent, resp.Choices[0].Message.Content)
		})
	}
}

func TestChatCompletionTruncatesErrorBody(t *testing.T) {
	long := strings.Repeat("x", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
	// 500 chars of body plus the message prefix, nowhere near the full 2000.
	assert.Less(t, len(err.Error()), 700)
}
