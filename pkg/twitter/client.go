package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"bookbyline/pkg/config"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"

	"github.com/dghubble/oauth1"
)

// Client posts to the Twitter API on behalf of a credential bundle
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	maxLength  int
	logger     logger.Logger
}

// NewClient creates a new Twitter API client
func NewClient(cfg config.TwitterConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = MaxTweetLength
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"User-Agent":   "bookbyline/1.0",
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
		baseURL:   baseURL,
		maxLength: maxLength,
		logger:    log,
	}
}

// SetHTTPClient replaces the base HTTP client used under the OAuth signer
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Post publishes text and returns the id of the created post.
// Every failure is classified as PostingFailed; the cause is an *errors.Error.
func (c *Client) Post(ctx context.Context, text string, creds models.Credentials) (string, error) {
	if err := c.validate(text, creds); err != nil {
		return "", errs.Wrap(errs.KindPostingFailed, "validate", err)
	}

	body, err := json.Marshal(CreateTweetRequest{Text: text})
	if err != nil {
		return "", errs.Wrap(errs.KindPostingFailed, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, GetTweetsURL(c.baseURL), bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(errs.KindPostingFailed, "build request", &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		})
	}

	resp, err := c.doRequest(ctx, req, creds)
	if err != nil {
		return "", errs.Wrap(errs.KindPostingFailed, "send", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.KindPostingFailed, "read response", &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		})
	}

	if err := c.checkResponseStatus(resp, respBody); err != nil {
		return "", errs.Wrap(errs.KindPostingFailed, "", err)
	}

	var created CreateTweetResponse
	if err := json.Unmarshal(respBody, &created); err != nil || created.Data.ID == "" {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"status":       resp.StatusCode,
			"body_preview": preview(respBody),
		})
		return "", errs.Wrap(errs.KindPostingFailed, "decode response", &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "response carries no post id",
			Code:    resp.StatusCode,
		})
	}

	c.logger.WithField("id", created.Data.ID).Info("post created")
	return created.Data.ID, nil
}

func (c *Client) validate(text string, creds models.Credentials) error {
	if !creds.Complete() {
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "incomplete credentials"}
	}
	if text == "" {
		return &errs.Error{Type: errs.ErrorTypeRejected, Message: "empty text"}
	}
	if n := utf8.RuneCountInString(text); n > c.maxLength {
		return &errs.Error{
			Type:    errs.ErrorTypeRejected,
			Message: fmt.Sprintf("text is %d characters, limit is %d", n, c.maxLength),
		}
	}
	return nil
}

// doRequest signs and sends req with the configured headers
func (c *Client) doRequest(ctx context.Context, req *http.Request, creds models.Credentials) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessKey, creds.AccessSecret)
	signed := config.Client(context.WithValue(ctx, oauth1.HTTPClient, c.httpClient), token)
	signed.Timeout = c.httpClient.Timeout

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := signed.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps a non-2xx status to a typed error
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := http.StatusText(resp.StatusCode)
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if summary := apiErr.Summary(); summary != "" {
			message = summary
		}
	}

	errType := errs.TypeForStatus(resp.StatusCode)
	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"type":   string(errType),
		"detail": message,
	}
	if errType == errs.ErrorTypeServerError {
		c.logger.ErrorWithFields("server error", fields)
	} else {
		c.logger.WarnWithFields("post rejected", fields)
	}

	return &errs.Error{
		Type:    errType,
		Message: message,
		Code:    resp.StatusCode,
	}
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
