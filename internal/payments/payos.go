package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrProvider wraps a non-success answer from the payment-link service.
	ErrProvider = errors.New("payment provider error")
	// ErrInvalidSignature is returned when a webhook signature does not match.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// LinkRequest is the input to CreatePaymentLink. Amount is in VND.
type LinkRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	ReturnURL   string
	CancelURL   string
}

type PaymentLink struct {
	CheckoutURL   string `json:"checkoutUrl"`
	PaymentLinkID string `json:"paymentLinkId"`
}

// PayOSClient talks to the PayOS merchant API.
type PayOSClient struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	httpClient  *http.Client
}

func NewPayOSClient(baseURL, clientID, apiKey, checksumKey string) *PayOSClient {
	return &PayOSClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: checksumKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type createLinkBody struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	Signature   string `json:"signature"`
}

type apiResponse struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// CreatePaymentLink signs the request with the checksum key and returns the hosted checkout URL.
func (c *PayOSClient) CreatePaymentLink(ctx context.Context, req LinkRequest) (*PaymentLink, error) {
	body := createLinkBody{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: req.Description,
		CancelURL:   req.CancelURL,
		ReturnURL:   req.ReturnURL,
		Signature:   c.signLinkRequest(req),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/payment-requests", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call payos: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: status %d, unreadable body", ErrProvider, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || out.Code != "00" {
		return nil, fmt.Errorf("%w: code %s: %s", ErrProvider, out.Code, out.Desc)
	}
	var link PaymentLink
	if err := json.Unmarshal(out.Data, &link); err != nil || link.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: missing checkout url", ErrProvider)
	}
	return &link, nil
}

// signLinkRequest signs the five fields PayOS requires, in alphabetical order.
func (c *PayOSClient) signLinkRequest(req LinkRequest) string {
	msg := "amount=" + strconv.FormatInt(req.Amount, 10) +
		"&cancelUrl=" + req.CancelURL +
		"&description=" + req.Description +
		"&orderCode=" + strconv.FormatInt(req.OrderCode, 10) +
		"&returnUrl=" + req.ReturnURL
	return c.hmacHex(msg)
}

// VerifyWebhook checks signature against the webhook data object: its fields
// sorted by key, joined as key=value with '&', signed with HMAC-SHA256.
func (c *PayOSClient) VerifyWebhook(data json.RawMessage, signature string) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("%w: data is not an object", ErrInvalidSignature)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+stringifyField(fields[k]))
	}
	want := c.hmacHex(strings.Join(parts, "&"))
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

func stringifyField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if t == "null" || t == "undefined" {
			return ""
		}
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func (c *PayOSClient) hmacHex(msg string) string {
	mac := hmac.New(sha256.New, []byte(c.checksumKey))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
