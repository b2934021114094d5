// Package gateway talks to the Razorpay payment gateway: order creation and
// signature checks for checkout callbacks and webhooks.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/razorpay/razorpay-go/utils"
	"go.uber.org/zap"
)

const genericOrderFailure = "Could not create order"

// Config holds the gateway credentials. Build it once at startup and pass it
// to New; nothing in this package reads the environment.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

// OrderCreator is the subset of the Razorpay orders resource used here
type OrderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay is the payment gateway adapter
type Razorpay struct {
	cfg    Config
	orders OrderCreator
	logger *zap.Logger
}

// New creates the adapter. Without credentials no SDK client is built and
// every call fails with a configuration error.
func New(cfg Config) *Razorpay {
	var orders OrderCreator
	if cfg.KeyID != "" && cfg.KeySecret != "" {
		orders = razorpay.NewClient(cfg.KeyID, cfg.KeySecret).Order
	}
	return NewWithOrders(cfg, orders)
}

// NewWithOrders creates the adapter around an existing orders client
func NewWithOrders(cfg Config, orders OrderCreator) *Razorpay {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Razorpay{cfg: cfg, orders: orders, logger: util.GetLogger()}
}

// Currency returns the single currency orders are created in
func (g *Razorpay) Currency() string {
	return g.cfg.Currency
}

func (g *Razorpay) configured() bool {
	return g.orders != nil && g.cfg.KeyID != "" && g.cfg.KeySecret != ""
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder creates a remote order for amount in the currency's smallest
// unit. The call is abandoned once ctx or the configured timeout expires.
func (g *Razorpay) CreateOrder(ctx context.Context, amount int64, receipt string) (*models.PaymentOrder, error) {
	if amount <= 0 {
		return nil, apperr.Validation("Invalid amount")
	}
	if !g.configured() {
		return nil, apperr.Configuration("Payment gateway is not configured")
	}

	ctx, span := util.StartSpan(ctx, "Razorpay.CreateOrder")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	data := map[string]interface{}{
		"amount":   amount,
		"currency": g.cfg.Currency,
		"receipt":  receipt,
	}

	done := make(chan createResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- createResult{body: body, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		g.logger.Warn("Gateway order creation timed out", zap.String("receipt", receipt))
		return nil, apperr.Gateway("Payment gateway timed out", ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		g.logger.Error("Gateway order creation failed",
			zap.String("receipt", receipt),
			zap.Error(res.err))
		return nil, apperr.Gateway(describe(res.err), res.err)
	}

	order, err := decodeOrder(res.body)
	if err != nil {
		return nil, apperr.Gateway(genericOrderFailure, err)
	}

	g.logger.Info("Gateway order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("receipt", order.Receipt))
	return order, nil
}

// VerifyPaymentSignature checks the checkout callback signature, which is the
// hex HMAC-SHA256 of orderID + "|" + paymentID keyed with the key secret.
func (g *Razorpay) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if g.cfg.KeySecret == "" {
		return apperr.Configuration("Payment gateway is not configured")
	}
	expected := Sign(g.cfg.KeySecret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperr.InvalidSignature("Invalid signature")
	}
	return nil
}

// VerifyWebhook authenticates a raw webhook body against its
// X-Razorpay-Signature header
func (g *Razorpay) VerifyWebhook(body []byte, signature string) error {
	if g.cfg.WebhookSecret == "" {
		return apperr.Configuration("Payment webhook is not configured")
	}
	if signature == "" || !utils.VerifyWebhookSignature(string(body), signature, g.cfg.WebhookSecret) {
		return apperr.InvalidSignature("Invalid webhook signature")
	}
	return nil
}

// Sign computes the checkout signature for an order/payment pair
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// describe returns the description of an error response from the gateway.
// Transport failures get the generic message.
func describe(err error) string {
	var (
		badRequest *rzperrors.BadRequestError
		gatewayErr *rzperrors.GatewayError
		serverErr  *rzperrors.ServerError
		msg        string
	)
	switch {
	case errors.As(err, &badRequest):
		msg = badRequest.Message
	case errors.As(err, &gatewayErr):
		msg = gatewayErr.Message
	case errors.As(err, &serverErr):
		msg = serverErr.Message
	}
	if msg == "" {
		return genericOrderFailure
	}
	return msg
}

func decodeOrder(body map[string]interface{}) (*models.PaymentOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("gateway response has no order id")
	}

	order := &models.PaymentOrder{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)

	switch v := body["amount"].(type) {
	case float64:
		order.Amount = int64(v)
	case int64:
		order.Amount = v
	case int:
		order.Amount = int64(v)
	}
	return order, nil
}
