// Package gateway is the HTTP client for the external payment provider.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/config"
)

type HTTPGatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGatewayClient(cfg config.GatewayConfig) application.PaymentGateway {
	return &HTTPGatewayClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type chargeRequest struct {
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	CustomerEmail string `json:"customer_email"`
	Description   string `json:"description"`
}

type chargeResponse struct {
	ID             string `json:"id"`
	CheckoutURL    string `json:"checkout_url"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	RefundedAmount int64  `json:"refunded_amount"`
	PixCode        string `json:"pix_code"`
}

func (c *HTTPGatewayClient) CreateCharge(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
	url := fmt.Sprintf("%s/v1/charges", c.baseURL)
	body := chargeRequest{
		Reference:     req.BookingID,
		Amount:        req.Amount,
		Method:        string(req.Method),
		CustomerEmail: req.CustomerEmail,
		Description:   req.Description,
	}

	resp, err := sendRequest[chargeRequest, chargeResponse](c, ctx, http.MethodPost, url, &body, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &application.ChargeResponse{
		ExternalID:  resp.ID,
		CheckoutURL: resp.CheckoutURL,
		Status:      resp.Status,
		PixCode:     resp.PixCode,
	}, nil
}

func (c *HTTPGatewayClient) CancelCharge(ctx context.Context, externalID string) error {
	url := fmt.Sprintf("%s/v1/charges/%s/cancel", c.baseURL, externalID)
	_, err := sendRequest[any, chargeResponse](c, ctx, http.MethodPost, url, nil, "")
	return err
}

func (c *HTTPGatewayClient) GetCharge(ctx context.Context, externalID string) (*application.ChargeStatus, error) {
	url := fmt.Sprintf("%s/v1/charges/%s", c.baseURL, externalID)

	resp, err := sendRequest[any, chargeResponse](c, ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}
	return &application.ChargeStatus{
		ExternalID:     resp.ID,
		Status:         resp.Status,
		Amount:         resp.Amount,
		RefundedAmount: resp.RefundedAmount,
	}, nil
}

func (c *HTTPGatewayClient) GetPixCode(ctx context.Context, externalID string) (string, error) {
	url := fmt.Sprintf("%s/v1/charges/%s/pix", c.baseURL, externalID)

	resp, err := sendRequest[any, chargeResponse](c, ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return "", err
	}
	return resp.PixCode, nil
}

func sendRequest[Req any, Resp any](c *HTTPGatewayClient, ctx context.Context, method, url string, reqBody *Req, idempotencyKey string) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var gwErrResp gatewayErrorResponse
		if err := json.Unmarshal(body, &gwErrResp); err != nil {
			return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, &GatewayError{
			Code:       gwErrResp.Err,
			Message:    gwErrResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var gwResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &gwResp, nil
}
