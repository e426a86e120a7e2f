package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client is the HTTP Generator. It posts the query to the upstream assistant
// endpoint and relays the response body as chunks. The request-level timeout
// lives here, not in callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client for the upstream generation endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "llm_client")),
	}
}

type generateRequest struct {
	NamespaceID string `json:"namespace_id"`
	Query       string `json:"query"`
}

// Generate posts the query upstream and streams the response body. The
// returned channel closes when the body ends; a read failure mid-body is
// forwarded as a terminal error chunk.
func (c *Client) Generate(ctx context.Context, namespaceID, query string) (<-chan Chunk, error) {
	payload, err := json.Marshal(generateRequest{NamespaceID: namespaceID, Query: query})
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call generation endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("generation endpoint returned %s", resp.Status)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				out <- Chunk{Data: append([]byte(nil), buf[:n]...)}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				c.logger.Warn("generation stream broke",
					zap.String("namespace_id", namespaceID),
					zap.Error(err),
				)
				out <- Chunk{Err: fmt.Errorf("read generation stream: %w", err)}
				return
			}
		}
	}()
	return out, nil
}
