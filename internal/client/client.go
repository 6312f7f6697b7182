// Package client holds the HTTP clients for the services this backend
// calls: inventory, user profile/credit, and the dispute advisory generator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rental-order-backend/internal/logger"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// StatusError is returned when a downstream service answers with a 4xx/5xx
type StatusError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
}

type httpClient struct {
	service string
	baseURL string
	apiKey  string
	hc      *http.Client
}

func newHTTPClient(service string, cfg Config) *httpClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpClient{
		service: service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) configured() bool {
	return c.baseURL != ""
}

func (c *httpClient) do(ctx context.Context, method, operation, path string, in, out any) error {
	logger.ExternalServiceCall(c.service, operation, "path", path)

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", c.service, operation, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.service, operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", c.service, operation, err)
		logger.ExternalServiceResult(c.service, operation, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := &StatusError{Service: c.service, Operation: operation, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		logger.ExternalServiceResult(c.service, operation, err, "status", resp.StatusCode)
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			err = fmt.Errorf("%s %s: decode response: %w", c.service, operation, err)
			logger.ExternalServiceResult(c.service, operation, err)
			return err
		}
	}
	logger.ExternalServiceResult(c.service, operation, nil, "status", resp.StatusCode)
	return nil
}
