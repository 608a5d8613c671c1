// Package payment wraps the external payment processor HTTP API.  The
// processor is the source of truth for whether money moved: any
// transport error, timeout or non-OK result code is reported as a
// failure and never assumed to have succeeded.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Device-class hints sent with an initiation request so the processor
// can choose a mobile or desktop optimized flow.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
)

// ErrGatewayDeclined is returned when the processor answered but
// reported the operation as failed.
var ErrGatewayDeclined = errors.New("payment gateway declined the request")

// InitiateRequest carries everything the processor needs to start a
// payment for a reservation.
type InitiateRequest struct {
	ReservationNo string `json:"reservation_no"`
	Amount        int64  `json:"amount"`
	BuyerName     string `json:"buyer_name"`
	BuyerPhone    string `json:"buyer_phone"`
	BuyerEmail    string `json:"buyer_email"`
	RoomName      string `json:"room_name"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Device        string `json:"device"`
}

// InitiateResult is the processor's answer to a successful initiation.
type InitiateResult struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// Client talks to the payment processor.  The HTTP client carries a
// hard timeout so a stalled processor call always resolves to an
// explicit failure within the bound.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a gateway client.  timeout bounds every call,
// including refunds on the cancellation path.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// gatewayEnvelope is the common response wrapper of the processor API.
type gatewayEnvelope struct {
	Result        string `json:"result"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// Initiate asks the processor to start a payment and returns the
// transaction reference and the URL the guest must be redirected to.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	env, err := c.post(ctx, "/v1/payments", req)
	if err != nil {
		return nil, err
	}
	if env.TransactionID == "" || env.RedirectURL == "" {
		return nil, fmt.Errorf("gateway returned incomplete initiation response")
	}
	return &InitiateResult{TransactionID: env.TransactionID, RedirectURL: env.RedirectURL}, nil
}

// cancelRequest is the refund payload.
type cancelRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
}

// Cancel requests a full refund of a captured payment.  A nil return
// means the processor explicitly confirmed the refund; everything else
// (decline, transport error, timeout) must be treated as "refund not
// confirmed" by the caller.
func (c *Client) Cancel(ctx context.Context, transactionID string, amount int64, reason string) error {
	_, err := c.post(ctx, "/v1/payments/cancel", cancelRequest{
		TransactionID: transactionID,
		Amount:        amount,
		Reason:        reason,
	})
	return err
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*gatewayEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// Idempotency key so a retried request cannot double-charge.
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("payment gateway call failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("gateway call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("payment gateway returned non-2xx",
			zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("gateway call %s: status %d: %w", path, resp.StatusCode, ErrGatewayDeclined)
	}
	var env gatewayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if env.Result != "OK" {
		c.log.Warn("payment gateway declined",
			zap.String("path", path), zap.String("message", env.Message))
		return nil, fmt.Errorf("gateway call %s: %s: %w", path, env.Message, ErrGatewayDeclined)
	}
	return &env, nil
}
