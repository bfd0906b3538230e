package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseBytes bounds a gateway reply; images and audio arrive inline.
const maxResponseBytes = 32 << 20

// Client calls a remote gateway speaking the action/payload wire contract.
// Each call is a single attempt bounded only by the transport timeout.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a gateway client for url.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: loggerOrDefault(logger),
	}
}

// GenerateMessage implements Generator.
func (c *Client) GenerateMessage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.call(ctx, ActionGenerateMessage, map[string]any{"prompt": prompt})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// GenerateCoverImage implements Generator.
func (c *Client) GenerateCoverImage(ctx context.Context, message string) (string, error) {
	resp, err := c.call(ctx, ActionGenerateImage, map[string]any{"message": message})
	if err != nil {
		return "", err
	}
	return resp.ImageURL, nil
}

// GenerateWelcomeSong implements Generator.
func (c *Client) GenerateWelcomeSong(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, ActionGenerateSong, map[string]any{})
	if err != nil {
		return "", err
	}
	return resp.Base64Audio, nil
}

func (c *Client) call(ctx context.Context, action string, payload map[string]any) (*Response, error) {
	body, err := json.Marshal(Request{Action: action, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", action, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gateway %s: read response: %w", action, err)
	}
	c.logger.Debug("gateway call", "action", action, "status", httpResp.StatusCode, "duration", time.Since(start))

	var resp Response
	decodeErr := json.Unmarshal(raw, &resp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if decodeErr == nil && resp.Error != "" {
			return nil, fmt.Errorf("gateway %s: %s", action, resp.Error)
		}
		return nil, fmt.Errorf("gateway %s: API call failed with status %d", action, httpResp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("gateway %s: decode response: %w", action, decodeErr)
	}
	return &resp, nil
}
