package enrichment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"objectlens/internal/dto"
	"objectlens/internal/logger"
	"objectlens/internal/model"
)

// maxResponseSize bounds the enrichment body read into memory.
const maxResponseSize = 4 << 20

// HTTPClient posts dto.EnrichmentRequest to an enrichment service that answers
// with the enrichment JSON shape directly.
type HTTPClient struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

func NewHTTPClient(url string, client *http.Client, log *logger.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPClient{
		url:    url,
		client: client,
		logger: log.WithFields(logger.Fields{"component": "enrichment", "provider": "http"}),
	}
}

func (c *HTTPClient) Analyze(ctx context.Context, image []byte, candidateLabels []string) (*model.EnrichmentResponse, error) {
	if candidateLabels == nil {
		candidateLabels = []string{}
	}
	payload, err := json.Marshal(dto.EnrichmentRequest{
		Image:           base64.StdEncoding.EncodeToString(image),
		CandidateLabels: candidateLabels,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", model.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", model.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: send request: %v", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read response: %v", model.ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: enrichment failed with status %d", model.ErrNetwork, resp.StatusCode)
	}

	return ParseResponse(string(body))
}

func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
