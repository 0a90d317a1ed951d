package client

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vibtrix/config"
	"vibtrix/utils"
)

type RazorpayClient struct {
	keyId     string
	keySecret string
	client    *http.Client
	baseURL   string
}

type RazorpayOrder struct {
	Id       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type RazorpayPayment struct {
	Id      string `json:"id"`
	OrderId string `json:"order_id"`
	Amount  int    `json:"amount"`
	Status  string `json:"status"`
	Method  string `json:"method"`
}

func NewRazorpayClient() *RazorpayClient {
	cfg := config.Env()
	return &RazorpayClient{
		keyId:     cfg.RazorpayKeyId,
		keySecret: cfg.RazorpayKeySecret,
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   cfg.RazorpayBaseURL,
	}
}

// CreateOrder registers an order for the given amount in paise.
func (r *RazorpayClient) CreateOrder(amount int, receipt string) (*RazorpayOrder, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": "INR",
		"receipt":  receipt,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("POST", r.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(r.keyId, r.keySecret)
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.Closer(resp.Body)()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay order creation failed with status %d", resp.StatusCode)
	}
	var order RazorpayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPayment fetches the current state of a payment.
func (r *RazorpayClient) GetPayment(paymentId string) (*RazorpayPayment, error) {
	req, err := http.NewRequest("GET", r.baseURL+"/payments/"+paymentId, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(r.keyId, r.keySecret)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.Closer(resp.Body)()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay payment fetch failed with status %d", resp.StatusCode)
	}
	var payment RazorpayPayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// VerifySignature checks the checkout callback signature:
// HMAC-SHA256(orderId|paymentId) under the key secret.
func (r *RazorpayClient) VerifySignature(orderId string, paymentId string, signature string) bool {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(orderId + "|" + paymentId))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
