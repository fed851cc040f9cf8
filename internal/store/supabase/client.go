// Package supabase adapts the store interfaces to a PostgREST endpoint, the
// REST-over-HTTP keyed-record store the production deployment runs against.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/pkg/util"
)

const defaultTimeout = 15 * time.Second

// Config holds connection values for the PostgREST endpoint.
type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// Client is a thin PostgREST client shared by the store implementations.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient validates the config and builds a client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	key := strings.TrimSpace(cfg.ServiceKey)
	if baseURL == "" {
		return nil, fmt.Errorf("supabase: missing URL")
	}
	if key == "" {
		return nil, fmt.Errorf("supabase: missing service key")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		key:     key,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "", nil, "", nil, nil)
}

// do executes one PostgREST round-trip. prefer overrides the Prefer header;
// writes default to return=representation so mutations echo the stored row.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, prefer string, body, out any) error {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	if prefer == "" && method != http.MethodGet && method != http.MethodHead {
		prefer = "return=representation"
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return util.NewUpstreamFailure("record store", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return util.NewUpstreamFailure("record store", err)
	}
	if resp.StatusCode >= 300 {
		c.logger.Warn("record store error",
			zap.String("method", method),
			zap.String("table", table),
			zap.Int("status", resp.StatusCode))
		return util.NewUpstreamFailure("record store",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 256)))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return util.NewUpstreamFailure("record store", fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
