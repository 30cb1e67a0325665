package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"bookbyline/pkg/config"
	"bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newMockHTTPClient(handler func(req *http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{
		Transport: &mockRoundTripper{handler: handler},
		Timeout:   30 * time.Second,
	}
}

func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func testCreds() models.Credentials {
	return models.Credentials{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AccessKey:      "ak",
		AccessSecret:   "as",
	}
}

func newTestClient(log logger.Logger, handler func(req *http.Request) (*http.Response, error)) *Client {
	client := NewClient(config.TwitterConfig{
		BaseURL:   "https://api.example.test",
		Timeout:   5 * time.Second,
		MaxLength: MaxTweetLength,
	}, log)
	client.SetHTTPClient(newMockHTTPClient(handler))
	return client
}

func TestPostSuccess(t *testing.T) {
	var captured *http.Request
	var body CreateTweetRequest

	client := newTestClient(logger.NewNopLogger(), func(req *http.Request) (*http.Response, error) {
		captured = req
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		return newResponse(http.StatusCreated, `{"data":{"id":"1445880548472328192","text":"l. 1: hello"}}`), nil
	})

	id, err := client.Post(context.Background(), "l. 1: hello", testCreds())
	require.NoError(t, err)
	assert.Equal(t, "1445880548472328192", id)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "https://api.example.test/2/tweets", captured.URL.String())
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.Equal(t, "bookbyline/1.0", captured.Header.Get("User-Agent"))
	assert.True(t, strings.HasPrefix(captured.Header.Get("Authorization"), "OAuth "))
	assert.Contains(t, captured.Header.Get("Authorization"), `oauth_consumer_key="ck"`)
	assert.Contains(t, captured.Header.Get("Authorization"), `oauth_token="ak"`)
	assert.Equal(t, "l. 1: hello", body.Text)
}

func TestPostStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errors.ErrorType
		wantMsg  string
	}{
		{
			name:     "duplicate content",
			status:   http.StatusForbidden,
			body:     `{"detail":"You are not allowed to create a Tweet with duplicate content.","status":403,"title":"Forbidden"}`,
			wantType: errors.ErrorTypeAuth,
			wantMsg:  "duplicate content",
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"title":"Too Many Requests","detail":"Too Many Requests","status":429}`,
			wantType: errors.ErrorTypeRateLimit,
			wantMsg:  "Too Many Requests",
		},
		{
			name:     "validation errors",
			status:   http.StatusBadRequest,
			body:     `{"errors":[{"message":"text is too long"}],"title":"Invalid Request"}`,
			wantType: errors.ErrorTypeRejected,
			wantMsg:  "text is too long",
		},
		{
			name:     "server error without body",
			status:   http.StatusServiceUnavailable,
			body:     ``,
			wantType: errors.ErrorTypeServerError,
			wantMsg:  "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testLogger := logger.NewTestLogger()
			client := newTestClient(testLogger, func(req *http.Request) (*http.Response, error) {
				return newResponse(tt.status, tt.body), nil
			})

			_, err := client.Post(context.Background(), "text", testCreds())
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrPostingFailed)

			var apiErr *errors.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
			assert.Contains(t, apiErr.Message, tt.wantMsg)

			logged := len(testLogger.GetMessagesByLevel("WARN")) + len(testLogger.GetMessagesByLevel("ERROR"))
			assert.Positive(t, logged)
		})
	}
}

func TestPostNetworkError(t *testing.T) {
	client := newTestClient(logger.NewNopLogger(), func(req *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})

	_, err := client.Post(context.Background(), "text", testCreds())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPostingFailed)

	var apiErr *errors.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errors.ErrorTypeNetwork, apiErr.Type)
	assert.Contains(t, apiErr.Message, "connection refused")
}

func TestPostMissingID(t *testing.T) {
	client := newTestClient(logger.NewNopLogger(), func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusCreated, `{"data":{}}`), nil
	})

	_, err := client.Post(context.Background(), "text", testCreds())
	var apiErr *errors.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errors.ErrorTypeParsing, apiErr.Type)
}

func TestPostValidation(t *testing.T) {
	calls := 0
	client := newTestClient(logger.NewNopLogger(), func(req *http.Request) (*http.Response, error) {
		calls++
		return newResponse(http.StatusCreated, `{"data":{"id":"1"}}`), nil
	})

	tests := []struct {
		name  string
		text  string
		creds models.Credentials
		want  errors.ErrorType
	}{
		{"too long", strings.Repeat("x", MaxTweetLength+1), testCreds(), errors.ErrorTypeRejected},
		{"empty", "", testCreds(), errors.ErrorTypeRejected},
		{"incomplete credentials", "text", models.Credentials{ConsumerKey: "ck"}, errors.ErrorTypeAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Post(context.Background(), tt.text, tt.creds)
			assert.ErrorIs(t, err, errors.ErrPostingFailed)

			var apiErr *errors.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.want, apiErr.Type)
		})
	}
	assert.Zero(t, calls, "invalid posts must not reach the network")

	// The limit counts characters, not bytes
	id, err := client.Post(context.Background(), strings.Repeat("é", MaxTweetLength), testCreds())
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestGetTweetsURL(t *testing.T) {
	assert.Equal(t, "https://api.twitter.com/2/tweets", GetTweetsURL(""))
	assert.Equal(t, "http://127.0.0.1:8080/2/tweets", GetTweetsURL("http://127.0.0.1:8080/"))
}
