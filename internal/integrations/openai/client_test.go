package openai

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

	"github.com/stretchr/testify/require"

	"shopping-agent/internal/domain"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"", "https://api.openai.com/v1"},
		{"https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1"},
		{"http://localhost:8080", "http://localhost:8080/v1"},
		{" http://localhost:8080/ ", "http://localhost:8080/v1"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, normalizeBaseURL(tc.base), "base=%q", tc.base)
	}
}

func TestNewClient_NilKeySource(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNewClient_Valid(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"), WithBaseURL("http://localhost:9999"), WithHTTPClient(nil))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9999", c.baseURL)
	require.NotNil(t, c.httpClient)
}

func TestStaticKey(t *testing.T) {
	key, err := StaticKey("sk-test").APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-test", key)

	_, err = StaticKey(" ").APIKey(context.Background())
	require.Error(t, err)
}

type countingKeys struct {
	calls atomic.Int32
	err   error
}

func (k *countingKeys) APIKey(context.Context) (string, error) {
	k.calls.Add(1)
	if k.err != nil {
		return "", k.err
	}
	return "sk-counted", nil
}

const completionBody = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1670000000,
	"model": "gpt-mock",
	"choices": [{
		"index": 0,
		"message": { "role": "assistant", "content": "{\"action\":\"add\",\"items\":[],\"response\":\"ok\"}" },
		"finish_reason": "stop"
	}]
}`

func newTestClient(t *testing.T, srv *httptest.Server, keys KeySource) *Client {
	t.Helper()
	if keys == nil {
		keys = StaticKey("sk-test")
	}
	c, err := NewClient(keys,
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_Chat_HappyPath(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			writeJSON(w, http.StatusNotFound, `{"error":{"message":"wrong route","type":"test"}}`)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		writeJSON(w, http.StatusOK, completionBody)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	resp, err := c.Chat(context.Background(), "gpt-mock", []domain.ChatMessage{
		{Role: "system", Content: "policy"},
		{Role: "user", Content: "add milk"},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"action":"add","items":[],"response":"ok"}`, resp)

	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "gpt-mock", gotBody["model"])
	require.Equal(t, map[string]any{"type": "json_object"}, gotBody["response_format"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[1].(map[string]any)["role"])
	require.Equal(t, "add milk", msgs[1].(map[string]any)["content"])
}

func TestClient_Chat_ResolvesKeyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, completionBody)
	}))
	defer srv.Close()

	keys := &countingKeys{}
	c := newTestClient(t, srv, keys)
	for i := 0; i < 3; i++ {
		_, err := c.Chat(context.Background(), "gpt-mock", nil)
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), keys.calls.Load())
}

func TestClient_Chat_KeyErrorIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, completionBody)
	}))
	defer srv.Close()

	keys := &countingKeys{err: errors.New("ssm down")}
	c := newTestClient(t, srv, keys)
	_, err := c.Chat(context.Background(), "gpt-mock", nil)
	require.ErrorContains(t, err, "ssm down")

	keys.err = nil
	_, err = c.Chat(context.Background(), "gpt-mock", nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), keys.calls.Load())
}

func TestClient_Chat_EmptyModel(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClient_Chat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.Chat(context.Background(), "gpt-mock", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestClient_Chat_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `not-a-json`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.Chat(context.Background(), "gpt-mock", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestClient_Chat_StatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, `{"error":{"message":"upstream said no","type":"test_error"}}`)
		}))

		c := newTestClient(t, srv, nil)
		_, err := c.Chat(context.Background(), "gpt-mock", []domain.ChatMessage{{Role: "user", Content: "hi"}})
		srv.Close()

		require.Error(t, err)
		var statusErr *HTTPStatusError
		require.ErrorAs(t, err, &statusErr, "status=%d", status)
		require.Equal(t, status, statusErr.HTTPStatusCode())
		require.Contains(t, err.Error(), "upstream said no")
	}
}

func TestClient_Chat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, completionBody)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Chat(context.Background(), "gpt-mock", nil)
	require.Error(t, err)
}

func TestClient_Chat_NetworkError(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"),
		WithBaseURL("http://127.0.0.1:1"),
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}),
	)
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "gpt-mock", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
	var statusErr *HTTPStatusError
	require.False(t, errors.As(err, &statusErr))
}
