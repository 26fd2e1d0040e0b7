// Package llm is a small client for OpenAI-compatible chat completion APIs.
package llm

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

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/logger"
)

type Options struct {
	BaseURL string
	APIKey  string
	Model   string

	Timeout       time.Duration
	StreamTimeout time.Duration
	MaxRetries    int

	HTTPClient *http.Client
	Logger     *logger.Logger
}

type Client struct {
	baseURL string
	apiKey  string
	model   string

	timeout       time.Duration
	streamTimeout time.Duration
	maxRetries    int

	httpClient *http.Client
	log        *logger.Logger
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("model required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        strings.TrimSpace(opts.APIKey),
		model:         model,
		timeout:       timeout,
		streamTimeout: opts.StreamTimeout,
		maxRetries:    maxRetries,
		httpClient:    hc,
		log:           log.With("component", "llm", "model", model),
	}, nil
}

func (c *Client) Model() string { return c.model }

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Models lists the model ids the backend offers.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}
	var resp modelList
	if err := c.doJSON(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Complete returns the assistant reply to messages.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if !c.Configured() {
		return "", ErrMissingAPIKey
	}
	var resp chatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/completions", chatRequest{Model: c.model, Messages: messages}, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream requests a streamed reply, calling onToken for every content delta,
// and returns the concatenated reply. Streams are not retried.
func (c *Client) Stream(ctx context.Context, messages []domain.ChatMessage, onToken func(token string)) (string, error) {
	if !c.Configured() {
		return "", ErrMissingAPIKey
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(chatRequest{Model: c.model, Messages: messages, Stream: true}); err != nil {
		return "", err
	}

	if c.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.streamTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", err
	}
	c.setHeaders(req, "application/json", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", parseHTTPError(resp.StatusCode, raw)
	}

	var full strings.Builder
	err = streamSSE(resp.Body, func(event, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			if event == "error" {
				return fmt.Errorf("stream error: %s", data)
			}
			return nil
		}
		if chunk.Error != nil {
			return fmt.Errorf("stream error: %s", chunk.Error.Message)
		}
		for _, ch := range chunk.Choices {
			if tok := ch.Delta.Content; tok != "" {
				full.WriteString(tok)
				if onToken != nil {
					onToken(tok)
				}
			}
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}
	return full.String(), nil
}

func (c *Client) setHeaders(req *http.Request, contentType string, accept string) {
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doJSON sends one JSON request and decodes the reply into out. Transport
// errors, 429 and 5xx responses are retried with exponential backoff up to
// maxRetries times; other HTTP errors are returned at once.
func (c *Client) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		c.setHeaders(req, "application/json", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if out == nil {
					return nil
				}
				return json.Unmarshal(raw, out)
			}
			herr := parseHTTPError(resp.StatusCode, raw)
			if !herr.Temporary() {
				return herr
			}
			lastErr = herr
		}

		if attempt < c.maxRetries {
			c.log.Warn("retrying backend request", "path", path, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return lastErr
}
