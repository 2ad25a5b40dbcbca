package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the MCP chat backend over HTTP/JSON. The API surface
// mirrors the backend routes: health, connect, chat, reset.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// HealthResult is the backend's health payload, passed through to the UI.
type HealthResult struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Model     string `json:"model,omitempty"`
}

type ConnectRequest struct {
	ServerPath string `json:"server_path"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResult struct {
	Response string `json:"response"`
}

type statusResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (c *Client) Health(ctx context.Context) (*HealthResult, error) {
	var out HealthResult
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Connect asks the backend to spawn and attach to an MCP server process.
func (c *Client) Connect(ctx context.Context, serverPath string) (string, error) {
	var out statusResult
	if err := c.do(ctx, http.MethodPost, "/connect", ConnectRequest{ServerPath: serverPath}, &out); err != nil {
		return "", err
	}
	c.logger.Info("chat backend connected", zap.String("server_path", serverPath))
	return out.Status, nil
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var out ChatResult
	if err := c.do(ctx, http.MethodPost, "/chat", ChatRequest{Message: message}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Reset clears the backend's conversation history.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset", nil, &statusResult{})
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling chat backend %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("chat backend call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading chat backend response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			return fmt.Errorf("chat backend %s: %s", path, er.Error)
		}
		return fmt.Errorf("chat backend %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding chat backend response: %w", err)
	}
	return nil
}
