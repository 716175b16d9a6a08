package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer fakes the chat completions endpoint, replying with the given
// contents in sequence. Received user messages are recorded.
func chatServer(t *testing.T, replies ...string) (*httptest.Server, *[]string) {
	t.Helper()
	var userMessages []string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			if m.Role == "user" {
				userMessages = append(userMessages, m.Content)
			}
		}

		reply := replies[len(replies)-1]
		if calls < len(replies) {
			reply = replies[calls]
		}
		calls++
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%s}}]}`, mustJSON(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &userMessages
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(&Config{APIKey: "test-key", BaseURL: baseURL, MaxRetries: 3})
	require.NoError(t, err)
	return c
}

func TestClient_ChatText(t *testing.T) {
	srv, users := chatServer(t, "hello there")
	c := newTestClient(t, srv.URL)

	got, err := c.ChatText(context.Background(), ChatParams{
		Agent: "test",
		Model: "openai/gpt-4o",
		User:  "say hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
	assert.Equal(t, []string{"say hello"}, *users)
}

func TestClient_ChatTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL)

	_, err := c.ChatText(context.Background(), ChatParams{Agent: "test", User: "x"})
	require.Error(t, err)
	var modelErr *Error
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, ErrorTypeAPI, modelErr.Type)
	assert.Contains(t, modelErr.Message, "rate limited")
}

func TestClient_ChatTextNetworkError(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	_, err := c.ChatText(context.Background(), ChatParams{Agent: "test", User: "x"})
	require.Error(t, err)
	var modelErr *Error
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, ErrorTypeNetwork, modelErr.Type)
}

func TestChatJSON(t *testing.T) {
	srv, _ := chatServer(t, `{"name":"brewbox","score":9}`)
	c := newTestClient(t, srv.URL)

	type idea struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}
	got, err := ChatJSON[idea](c, context.Background(), ChatParams{Agent: "test", User: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "brewbox", got.Name)
	assert.Equal(t, 9, got.Score)
}

func TestChatJSON_StripsMarkdownFences(t *testing.T) {
	srv, _ := chatServer(t, "```json\n{\"name\":\"brewbox\"}\n```")
	c := newTestClient(t, srv.URL)

	type idea struct {
		Name string `json:"name"`
	}
	got, err := ChatJSON[idea](c, context.Background(), ChatParams{Agent: "test", User: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "brewbox", got.Name)
}

func TestChatJSON_RetriesOnParseFailure(t *testing.T) {
	srv, users := chatServer(t, "this is not json", `{"name":"brewbox"}`)
	c := newTestClient(t, srv.URL)

	type idea struct {
		Name string `json:"name"`
	}
	got, err := ChatJSON[idea](c, context.Background(), ChatParams{Agent: "test", User: "original prompt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "brewbox", got.Name)

	// The retry prompt carries the original request plus the failure.
	require.Len(t, *users, 2)
	assert.Contains(t, (*users)[1], "original prompt")
	assert.Contains(t, (*users)[1], "PREVIOUS ATTEMPT FAILED")
}

func TestChatJSON_RetriesOnValidationFailure(t *testing.T) {
	srv, users := chatServer(t, `{"count":1}`, `{"count":5}`)
	c := newTestClient(t, srv.URL)

	type batch struct {
		Count int `json:"count"`
	}
	got, err := ChatJSON[batch](c, context.Background(), ChatParams{Agent: "test", User: "x"},
		func(b *batch) error {
			if b.Count < 3 {
				return fmt.Errorf("count %d too small", b.Count)
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Count)
	assert.Contains(t, (*users)[1], "PREVIOUS VALIDATION ERROR")
}

func TestChatJSON_ExhaustsRetries(t *testing.T) {
	srv, users := chatServer(t, "still not json")
	c := newTestClient(t, srv.URL)

	type idea struct {
		Name string `json:"name"`
	}
	_, err := ChatJSON[idea](c, context.Background(), ChatParams{Agent: "test", User: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, *users, 3)
}

func TestChatJSON_APIErrorIsTerminal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL)

	type idea struct{}
	_, err := ChatJSON[idea](c, context.Background(), ChatParams{Agent: "test", User: "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCleanMarkdownFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, cleanMarkdownFences("  {\"a\":1}  "))
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err)
}
