// Package gateway talks to the external payment provider: token acquisition,
// transaction initialization and transaction verification. It never retries on
// its own; retry policy belongs to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/config"
	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/metrics"
)

type Client struct {
	http   *http.Client
	cfg    *config.GatewayConfig
	tokens *tokenCache
}

func NewClient(cfg *config.GatewayConfig) *Client {
	c := &Client{
		http: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:  cfg,
	}
	c.tokens = newTokenCache(c.fetchToken, time.Now)
	return c
}

type envelope struct {
	RequestSuccessful bool            `json:"requestSuccessful"`
	ResponseMessage   string          `json:"responseMessage"`
	ResponseBody      json.RawMessage `json:"responseBody"`
}

type loginBody struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type InitRequest struct {
	Amount           int64
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	PaymentReference string
	Description      string
	Metadata         map[string]string
}

type InitResult struct {
	TransactionReference string `json:"transactionReference"`
	CheckoutURL          string `json:"checkoutUrl"`
}

type VerifyResult struct {
	PaymentStatus string `json:"paymentStatus"`
	AmountPaid    int64  `json:"amountPaid"`
	PaymentMethod string `json:"paymentMethod"`
}

// Gateway payment status vocabulary.
const (
	GatewayStatus_Paid          = "PAID"
	GatewayStatus_Pending       = "PENDING"
	GatewayStatus_PartiallyPaid = "PARTIALLY_PAID"
	GatewayStatus_Failed        = "FAILED"
	GatewayStatus_Cancelled     = "CANCELLED"
	GatewayStatus_Expired       = "EXPIRED"
)

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	defer observe("login")()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/login", nil)
	if err != nil {
		return "", 0, err
	}
	creds := base64.StdEncoding.EncodeToString([]byte(c.cfg.APIKey + ":" + c.cfg.SecretKey))
	req.Header.Set("Authorization", "Basic "+creds)

	var body loginBody
	if err := c.do(req, &body); err != nil {
		return "", 0, err
	}

	logrus.WithField("expiresIn", body.ExpiresIn).Info("gateway token refreshed")
	return body.AccessToken, time.Duration(body.ExpiresIn) * time.Second, nil
}

func (c *Client) InitializeTransaction(ctx context.Context, r *InitRequest) (*InitResult, error) {
	defer observe("init_transaction")()

	token, err := c.tokens.getToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"amount":             r.Amount,
		"customerName":       r.CustomerName,
		"customerEmail":      r.CustomerEmail,
		"customerPhone":      r.CustomerPhone,
		"paymentReference":   r.PaymentReference,
		"paymentDescription": r.Description,
		"currencyCode":       c.cfg.CurrencyCode,
		"contractCode":       c.cfg.ContractCode,
		"redirectUrl":        c.cfg.RedirectURL,
		"paymentMethods":     []string{"CARD", "ACCOUNT_TRANSFER"},
		"metadata":           r.Metadata,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/merchant/transactions/init-transaction", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res := &InitResult{}
	if err := c.do(req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, paymentReference string) (*VerifyResult, error) {
	defer observe("verify_transaction")()

	token, err := c.tokens.getToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/transactions/"+url.PathEscape(paymentReference), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res := &VerifyResult{}
	if err := c.do(req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.GatewayDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// do sends the request and decodes responseBody into out. Any transport
// failure, non-2xx status or requestSuccessful=false surfaces as a
// GatewayError carrying the upstream message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewGatewayError(0, "gateway request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewGatewayError(resp.StatusCode, "unable to read gateway response", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.NewGatewayError(resp.StatusCode, fmt.Sprintf("unparseable gateway response: %s", raw), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.RequestSuccessful {
		msg := env.ResponseMessage
		if msg == "" {
			msg = string(raw)
		}
		return domain.NewGatewayError(resp.StatusCode, msg, nil)
	}

	if out != nil {
		if err := json.Unmarshal(env.ResponseBody, out); err != nil {
			return domain.NewGatewayError(resp.StatusCode, "unparseable gateway response body", err)
		}
	}
	return nil
}
