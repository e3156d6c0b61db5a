/**
 * @description
 * This package provides a client for the settlement rail that pays withdrawn
 * claimable balances out on-chain. It encapsulates the logic for making
 * authenticated HTTP requests to the payout gateway, handling request body
 * construction, and parsing responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package payoutclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the payout gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payout gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PayoutRequest is the payload for one on-chain payout instruction. Amount is
// a base-10 wei string.
type PayoutRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Recipient string `json:"recipient"`
			Amount    string `json:"amount"`
			Reference string `json:"reference"`
		} `json:"attributes"`
	} `json:"data"`
}

// PayoutResponse is the expected response from the gateway's payout endpoint.
type PayoutResponse struct {
	Data struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			Status string `json:"status"`
			TxHash string `json:"txHash"`
		} `json:"attributes"`
	} `json:"data"`
}

// ErrorResponse represents an error from the payout gateway API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("payout gateway error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown payout gateway error"
}

// InitiatePayout instructs the gateway to send amount (wei, base-10 string) to
// the recipient address.
func (c *Client) InitiatePayout(ctx context.Context, recipient, amount, reference string) (*PayoutResponse, error) {
	reqPayload := PayoutRequest{}
	reqPayload.Data.Type = "Payout"
	reqPayload.Data.Attributes.Recipient = recipient
	reqPayload.Data.Attributes.Amount = amount
	reqPayload.Data.Attributes.Reference = reference

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/v1/payouts", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create payout request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-gateway-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute payout request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payout response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=payout_client op=payout status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return nil, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=payout_client op=payout status=%d title=%q detail=%q", resp.StatusCode, firstErrorTitle(errResp), firstErrorDetail(errResp))
		return nil, &errResp
	}

	var successResp PayoutResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return nil, fmt.Errorf("failed to decode success response: %w", err)
	}

	return &successResp, nil
}

func firstErrorTitle(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Title
}

func firstErrorDetail(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Detail
}
