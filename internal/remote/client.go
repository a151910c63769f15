package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/logger"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	strictProbe bool
	logger      *slog.Logger
}

// Ensure HTTPClient implements Client interface
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the authority at cfg.BaseURL.
// If logger is nil, a default logger will be used.
func NewHTTPClient(cfg config.RemoteConfig, logger *slog.Logger) (*HTTPClient, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("remote timeout must be positive, got %s", cfg.Timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  cleanhttp.DefaultPooledClient(),
		timeout:     cfg.Timeout,
		strictProbe: cfg.StrictProbe,
		logger:      logger.With(slog.String("component", "remote_client")),
	}, nil
}

// SendBatch implements Client.SendBatch
func (c *HTTPClient) SendBatch(ctx context.Context, entries []*domain.OutboxEntry) (*BatchResponse, error) {
	const op = "send_batch"
	log := logger.FromContextOrDefault(ctx, c.logger)

	req := BatchRequest{Items: make([]BatchItem, 0, len(entries))}
	for _, entry := range entries {
		req.Items = append(req.Items, NewBatchItem(entry))
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to encode batch: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks/batch", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("batch request failed",
			slog.Int("items", len(entries)),
			slog.String("error", err.Error()))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", snippet(data)),
		}
	}

	var out BatchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	if !out.Success {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: ErrRejectedBatch}
	}

	log.Debug("batch delivered",
		slog.Int("items", len(entries)),
		slog.Int("outcomes", len(out.ProcessedItems)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return &out, nil
}

// ProbeConnectivity implements Client.ProbeConnectivity
// Any HTTP response counts as reachable unless strict probing is configured,
// in which case only 2xx does.
func (c *HTTPClient) ProbeConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.FromContextOrDefault(ctx, c.logger).Debug("connectivity probe failed",
				slog.String("error", err.Error()))
		}
		return false
	}
	_ = resp.Body.Close()

	if c.strictProbe {
		return resp.StatusCode >= 200 && resp.StatusCode <= 299
	}
	return true
}

func snippet(data []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(data))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}
