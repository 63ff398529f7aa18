package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// ChargeStatus is the normalized gateway charge state.
type ChargeStatus string

const (
	StatusReceived  ChargeStatus = "received"
	StatusConfirmed ChargeStatus = "confirmed"
	StatusCancelled ChargeStatus = "cancelled"
	StatusDeleted   ChargeStatus = "deleted"
	StatusOverdue   ChargeStatus = "overdue"
	StatusAwaiting  ChargeStatus = "awaiting"
	StatusUnknown   ChargeStatus = "unknown"
)

// IsPaid reports whether the charge status means money landed.
func (s ChargeStatus) IsPaid() bool {
	return s == StatusReceived || s == StatusConfirmed
}

// IsDead reports whether the charge can no longer be paid.
func (s ChargeStatus) IsDead() bool {
	return s == StatusCancelled || s == StatusDeleted || s == StatusOverdue
}

// IsAwaiting reports whether the charge is open but unpaid. This is the
// definitive "nobody paid yet" answer; an abandoned PIX charge stays in it
// until the due date.
func (s ChargeStatus) IsAwaiting() bool {
	return s == StatusAwaiting
}

// Customer is a gateway customer record.
type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	MobilePhone string `json:"mobilePhone"`
}

// Charge is a gateway payment record.
type Charge struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	DueDate           string  `json:"dueDate"`
	Description       string  `json:"description"`
	ExternalReference string  `json:"externalReference"`
	Status            string  `json:"status"`
	InvoiceURL        *string `json:"invoiceUrl"`
	DeletedAt         *string `json:"deletedAt"`
}

// PixData is the PIX QR payload for a charge.
type PixData struct {
	Payload        string `json:"payload"`
	EncodedImage   string `json:"encodedImage"`
	ExpirationDate string `json:"expirationDate"`
}

// WebhookPayload is the inbound webhook body.
type WebhookPayload struct {
	Event   string `json:"event"`
	Payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"payment"`
}

// Client talks to the Asaas PIX API.
type Client struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient creates a gateway client with its own request timeout, so a
// slow gateway never stalls local state transitions longer than configured.
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: util.GetLogger(),
	}
}

// CreateCustomer registers a customer with the gateway.
func (c *Client) CreateCustomer(ctx context.Context, name, email, phone string) (*Customer, error) {
	body := map[string]interface{}{
		"name":        name,
		"email":       email,
		"mobilePhone": stripNonDigits(phone),
	}

	var customer Customer
	if err := c.do(ctx, "create_customer", http.MethodPost, "/customers", body, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCharge opens a PIX charge for a customer. The due date is three
// days out; the reservation sweep cancels long before that.
func (c *Client) CreateCharge(ctx context.Context, customerID string, value float64, description, externalRef string) (*Charge, error) {
	body := map[string]interface{}{
		"customer":          customerID,
		"billingType":       "PIX",
		"value":             value,
		"dueDate":           time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		"description":       description,
		"externalReference": externalRef,
	}

	var charge Charge
	if err := c.do(ctx, "create_charge", http.MethodPost, "/payments", body, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// GetPixQRCode retrieves the PIX copy-paste payload and QR image for a
// charge.
func (c *Client) GetPixQRCode(ctx context.Context, chargeID string) (*PixData, error) {
	var pix PixData
	if err := c.do(ctx, "get_pix_qrcode", http.MethodGet, "/payments/"+chargeID+"/pixQrCode", nil, &pix); err != nil {
		return nil, err
	}
	return &pix, nil
}

// GetChargeStatus queries the authoritative charge state and maps it to a
// normalized ChargeStatus. Unrecognized gateway statuses map to unknown;
// callers must never transition on unknown.
func (c *Client) GetChargeStatus(ctx context.Context, chargeID string) (ChargeStatus, error) {
	var charge Charge
	if err := c.do(ctx, "get_charge_status", http.MethodGet, "/payments/"+chargeID, nil, &charge); err != nil {
		return StatusUnknown, err
	}
	if charge.DeletedAt != nil {
		return StatusDeleted, nil
	}
	return MapChargeStatus(charge.Status), nil
}

// CancelCharge deletes a charge. Best-effort callers log and move on when
// it fails.
func (c *Client) CancelCharge(ctx context.Context, chargeID string) error {
	return c.do(ctx, "cancel_charge", http.MethodDelete, "/payments/"+chargeID, nil, nil)
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature of a webhook
// body in constant time. With no secret configured, verification is
// skipped (sandbox mode).
func (c *Client) VerifyWebhookSignature(signature string, payload []byte) bool {
	if c.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// MapChargeStatus normalizes a raw Asaas status string.
func MapChargeStatus(raw string) ChargeStatus {
	switch raw {
	case "RECEIVED", "RECEIVED_IN_CASH":
		return StatusReceived
	case "CONFIRMED":
		return StatusConfirmed
	case "CANCELLED":
		return StatusCancelled
	case "DELETED":
		return StatusDeleted
	case "OVERDUE":
		return StatusOverdue
	case "PENDING", "AWAITING_RISK_ANALYSIS":
		return StatusAwaiting
	default:
		return StatusUnknown
	}
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out interface{}) error {
	ctx, span := util.StartSpan(ctx, "gateway."+operation)
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("User-Agent", "RosaMexicano/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.GatewayRequestsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		util.GatewayRequestsTotal.WithLabelValues(operation, "error").Inc()
		c.logger.Warn("Gateway API error",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("gateway API error: status %d", resp.StatusCode)
	}

	util.GatewayRequestsTotal.WithLabelValues(operation, "success").Inc()

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse gateway response: %w", err)
		}
	}
	return nil
}

func stripNonDigits(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}
