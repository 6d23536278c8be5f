package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MomoGateway initiates mobile-money payouts through the provider's transfer
// API. When credentials are missing the gateway runs in simulated mode and
// accepts every transfer, which keeps local development working without a
// provider account.
type MomoGateway struct {
	logger    *slog.Logger
	apiKey    string
	apiURL    string
	client    *http.Client
	isEnabled bool
}

// NewMomoGateway creates a payout gateway client.
func NewMomoGateway(logger *slog.Logger, apiKey, apiURL string) *MomoGateway {
	isEnabled := apiKey != "" && apiURL != ""

	if !isEnabled {
		logger.Warn("Momo gateway is disabled due to missing credentials, transfers will be simulated")
	} else {
		logger.Info("Momo gateway initialized", "api_url", apiURL)
	}

	return &MomoGateway{
		logger:    logger,
		apiKey:    apiKey,
		apiURL:    apiURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		isEnabled: isEnabled,
	}
}

// IsEnabled reports whether real transfers are performed.
func (g *MomoGateway) IsEnabled() bool {
	return g.isEnabled
}

type transferRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
	ExternalID  string `json:"external_id"`
}

type transferResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// InitiateTransfer requests a payout to the given mobile-money number and
// returns the provider reference on acceptance.
func (g *MomoGateway) InitiateTransfer(ctx context.Context, amount int64, destination string) (string, error) {
	if !g.isEnabled {
		ref := "SIM-" + uuid.NewString()
		g.logger.WarnContext(ctx, "Momo gateway disabled, simulating transfer",
			"amount", amount,
			"destination", destination,
			"reference", ref)
		return ref, nil
	}

	body, err := json.Marshal(transferRequest{
		Amount:      amount,
		Currency:    "XAF",
		Destination: destination,
		ExternalID:  uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal transfer request: %w", err)
	}

	apiEndpoint := fmt.Sprintf("%s/transfers", strings.TrimSuffix(g.apiURL, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiEndpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("create transfer request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	g.logger.InfoContext(ctx, "Initiating momo transfer",
		"amount", amount,
		"destination", destination)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transfer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("momo gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transfer response: %w", err)
	}

	if result.Reference == "" {
		return "", fmt.Errorf("momo gateway accepted transfer without a reference: %s", result.Message)
	}

	g.logger.InfoContext(ctx, "Momo transfer accepted",
		"reference", result.Reference,
		"status", result.Status)

	return result.Reference, nil
}
