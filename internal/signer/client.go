package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
)

// Options controls how the settlement signer client is configured.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client calls the external settlement signer service that custodies the
// escrowed funds. The engine's responsibility ends at requesting the
// transfer; key management, gas handling and on-chain retries all live on
// the signer's side of this boundary.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("signer base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
	}, nil
}

type signRequest struct {
	CampaignID  string `json:"campaign_id"`
	MilestoneID string `json:"milestone_id"`
	Destination string `json:"destination_account"`
	Amount      int64  `json:"amount"`
}

type signResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error,omitempty"`
}

// Sign asks the signer to release the milestone's funds and returns the
// transaction hash it reports.
func (c *Client) Sign(ctx context.Context, req domain.SettlementRequest) (string, error) {
	body, err := json.Marshal(signRequest{
		CampaignID:  req.CampaignID,
		MilestoneID: req.MilestoneID,
		Destination: req.Destination,
		Amount:      req.Amount,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/settlements", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call signer: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read signer response: %w", err)
	}

	var parsed signResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode signer response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		return "", fmt.Errorf("signer returned status %d: %s", resp.StatusCode, msg)
	}
	if parsed.TxHash == "" {
		return "", fmt.Errorf("signer returned no transaction hash")
	}
	return parsed.TxHash, nil
}

var _ domain.SettlementSigner = (*Client)(nil)
