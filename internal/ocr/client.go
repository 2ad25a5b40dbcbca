package ocr

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

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/constants"
)

const analyzePath = "documentintelligence/documentModels/prebuilt-receipt:analyze?api-version=2024-11-30"

// ErrPollExhausted is returned when the analysis is still running after the
// full polling budget. The operation may still complete server-side; we just
// stop waiting.
var ErrPollExhausted = errors.New("maximum polling attempts reached without success")

// errStillRunning marks a poll response that should be retried.
var errStillRunning = errors.New("analysis still running")

// Analyzer submits image bytes for receipt analysis and waits for the result.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, contentType string) (*AnalyzeResult, error)
}

type Config struct {
	Endpoint     string // e.g. https://<resource>.cognitiveservices.azure.com/
	APIKey       string
	PollInterval time.Duration // delay between status polls
	MaxPolls     int           // total poll attempts before giving up
	Timeout      time.Duration // per-request HTTP timeout
}

// Client talks to Azure Document Intelligence over plain HTTP: one POST to
// start the analysis, then a bounded poll loop on the operation URL.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Analyze submits the image and polls until the operation settles. A
// non-202 submission or a failed analysis surfaces the vendor's response
// body in the error; exhaustion of the poll budget returns ErrPollExhausted.
func (c *Client) Analyze(ctx context.Context, data []byte, contentType string) (*AnalyzeResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	opURL, err := c.submit(ctx, reqID, data, contentType)
	if err != nil {
		return nil, err
	}
	c.logger.Info("ocr.analyze.accepted",
		zap.String("req_id", reqID),
		zap.String("operation_location", opURL),
	)

	result, err := c.poll(ctx, reqID, opURL)
	if err != nil {
		c.logger.Error("ocr.analyze.failed",
			zap.String("req_id", reqID),
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return nil, err
	}

	c.logger.Info("ocr.analyze.ok",
		zap.String("req_id", reqID),
		zap.Int("documents", len(result.Documents)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return result, nil
}

func (c *Client) submit(ctx context.Context, reqID string, data []byte, contentType string) (string, error) {
	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/" + analyzePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	c.logger.Info("ocr.analyze.submit",
		zap.String("req_id", reqID),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit analyze: %w", err)
	}
	defer c.closeBody(resp.Body, reqID)

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("analyze submission status %d: %s", resp.StatusCode, string(body))
	}
	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", errors.New("analyze submission accepted but Operation-Location header missing")
	}
	return opURL, nil
}

// poll checks the operation URL on a constant interval for at most MaxPolls
// attempts. Transport errors and a "failed" status are permanent; only a
// still-running status is retried.
func (c *Client) poll(ctx context.Context, reqID, opURL string) (*AnalyzeResult, error) {
	var result *AnalyzeResult
	attempt := 0

	op := func() error {
		attempt++
		op, err := c.checkOperation(ctx, opURL)
		if err != nil {
			return backoff.Permanent(err)
		}

		c.logger.Debug("ocr.poll",
			zap.String("req_id", reqID),
			zap.Int("attempt", attempt),
			zap.String("status", op.Status),
		)

		switch constants.AnalysisStatus(op.Status) {
		case constants.AnalysisSucceeded:
			if op.AnalyzeResult == nil {
				return backoff.Permanent(errors.New("analysis succeeded but result body is empty"))
			}
			result = op.AnalyzeResult
			return nil
		case constants.AnalysisFailed:
			detail, _ := json.Marshal(op.Errors)
			return backoff.Permanent(fmt.Errorf("analysis failed: %s", detail))
		default:
			// notStarted / running
			return errStillRunning
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.PollInterval), uint64(c.cfg.MaxPolls-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, errStillRunning) {
			return nil, fmt.Errorf("%w after %d polls", ErrPollExhausted, attempt)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) checkOperation(ctx context.Context, opURL string) (*OperationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll operation: %w", err)
	}
	defer c.closeBody(resp.Body, "")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("poll status %d: %s", resp.StatusCode, string(body))
	}

	var op OperationResult
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decode operation result: %w", err)
	}
	return &op, nil
}

func (c *Client) closeBody(body io.ReadCloser, reqID string) {
	if err := body.Close(); err != nil {
		c.logger.Warn("ocr.response_body_close_error", zap.String("req_id", reqID), zap.Error(err))
	}
}
