package ipfs

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

// Pinata pins JSON documents to IPFS through the Pinata pinning API and
// returns their content identifiers.
type Pinata struct {
	// BaseURL may be overridden for testing. Defaults to the public API.
	BaseURL string

	apiKey string
	client *http.Client
	logger *slog.Logger
}

const (
	defaultBaseURL = "https://api.pinata.cloud"

	requestTimeout = 30 * time.Second
)

// NewPinata creates a new Pinata client authenticated with the given API key.
func NewPinata(apiKey string, logger *slog.Logger) *Pinata {
	return &Pinata{
		BaseURL: defaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger.With(slog.String("module", "pinata")),
	}
}

// PinJSON pins the JSON encoding of v and returns the resulting CID.
func (p *Pinata) PinJSON(ctx context.Context, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	endpoint := p.BaseURL + "/pinning/pinJSONToIPFS"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		content, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, content)
	}

	var payload struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if payload.IpfsHash == "" {
		return "", fmt.Errorf("response contains no CID")
	}

	p.logger.Debug("Pinned document", "cid", payload.IpfsHash)

	return payload.IpfsHash, nil
}
