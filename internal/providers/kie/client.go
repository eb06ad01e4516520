// Package kie is the HTTP client for the kie.ai generation API shared by all
// adapters.
package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vidiai/internal/domain"
	"vidiai/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("kie: api key is required")

const (
	DefaultBaseURL = "https://api.kie.ai"

	codeOK                = 200
	codeOKLegacy          = 0
	codeOutOfCredits      = 402
	defaultRequestTimeout = 30 * time.Second
)

// Options configures the kie.ai client.
type Options struct {
	APIKey         string
	BaseURL        string
	CallbackURL    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs authenticated calls against kie.ai.
type Client struct {
	apiKey      string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	logger      *infra.Logger
}

type envelope struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	TaskID  string          `json:"taskId"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) text() string {
	if s := strings.TrimSpace(e.Msg); s != "" {
		return s
	}
	return strings.TrimSpace(e.Message)
}

type taskData struct {
	TaskID string `json:"taskId"`
	JobID  string `json:"jobId"`
}

// NewClient constructs a client with defaults for unset options.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		callbackURL: strings.TrimSpace(opts.CallbackURL),
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CallbackURL is the webhook address some endpoints require in the payload.
func (c *Client) CallbackURL() string {
	return c.callbackURL
}

// CreateTask posts payload to path and returns the provider task id.
func (c *Client) CreateTask(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("kie: encode request: %w", err)
	}
	env, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	var data taskData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", fmt.Errorf("kie: decode task: %w", err)
		}
	}
	taskID := strings.TrimSpace(data.TaskID)
	if taskID == "" {
		taskID = strings.TrimSpace(data.JobID)
	}
	if taskID == "" {
		taskID = strings.TrimSpace(env.TaskID)
	}
	if taskID == "" {
		msg := env.text()
		if msg == "" {
			msg = "failed to create task"
		}
		return "", fmt.Errorf("kie: create task: %w", domain.NewProviderError(msg))
	}
	c.logger.Debug().Str("path", path).Str("task_id", taskID).Msg("kie: task created")
	return taskID, nil
}

// Record fetches the status record of taskID from path and decodes its data
// object into out.
func (c *Client) Record(ctx context.Context, path, taskID string, out any) error {
	q := url.Values{}
	q.Set("taskId", taskID)
	env, err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("kie: empty record for %s: %w", taskID, domain.ErrTransientNetwork)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("kie: decode record: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*envelope, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("kie: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kie: http request: %w: %w", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kie: read response: %w: %w", domain.ErrTransientNetwork, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || (decodeErr == nil && env.Code == codeOutOfCredits):
		return nil, fmt.Errorf("kie: %s: %w", firstNonEmpty(env.text(), "vendor account has no credits"), domain.ErrProviderOutOfCredits)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("kie: status %d: %w", resp.StatusCode, domain.ErrTransientNetwork)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("kie: status %d: %w", resp.StatusCode, domain.NewProviderError(firstNonEmpty(env.text(), strings.TrimSpace(string(raw)))))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("kie: decode response: %w", decodeErr)
	}
	if env.Code != codeOK && env.Code != codeOKLegacy {
		c.logger.Warn().Int("code", env.Code).Str("path", path).Msg("kie: provider rejected request")
		return nil, fmt.Errorf("kie: code %d: %w", env.Code, domain.NewProviderError(firstNonEmpty(env.text(), "request rejected")))
	}
	return &env, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
