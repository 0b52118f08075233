package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArticle = "Le groupe Renault a annoncé un investissement de 450 millions d'euros dans son usine de Tanger."

func chatResponse(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"model":   "gpt-4o-2024-08-06",
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 1200, "completion_tokens": 300},
	})
	require.NoError(t, err)
	return body
}

func newTestClient(t *testing.T, endpoint string, clock Clock) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.APIKey = "test-key"
	cfg.Retry.Clock = clock
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestClientExtract(t *testing.T) {
	var received ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write(chatResponse(t, `{"entities":[{"company_name":"Renault Group","mention_type":"primary_subject"}],"overall_confidence":0.9}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeClock{})
	result, err := client.Extract(context.Background(), sampleArticle)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "json_object", received.ResponseFormat.Type)

	assert.Equal(t, 1200, result.InputTokens)
	assert.Equal(t, 300, result.OutputTokens)
	assert.Equal(t, "gpt-4o-2024-08-06", result.Model)
	assert.Equal(t, PromptVersion, result.PromptVersion)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Renault Group", result.Entities[0].CompanyName)
}

func TestClientRetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(chatResponse(t, `{"entities":[],"overall_confidence":0.4}`))
	}))
	defer server.Close()

	clock := &fakeClock{}
	result, err := newTestClient(t, server.URL, clock).Extract(context.Background(), sampleArticle)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 0.4, result.OverallConfidence)
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, "3s", clock.sleeps[0].String())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "invalid model", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, &fakeClock{}).Extract(context.Background(), sampleArticle)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientMalformedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatResponse(t, "Sure! Here is the JSON you asked for"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, &fakeClock{}).Extract(context.Background(), sampleArticle)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClientRejectsShortInputWithoutCalling(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeClock{})

	_, err := client.Extract(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = client.Extract(context.Background(), "trop court")
	assert.ErrorIs(t, err, ErrInputTooShort)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPrepareInputTruncates(t *testing.T) {
	long := strings.Repeat("é", 50)
	out, err := PrepareInput(long, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, len([]rune(out)))
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
