package api

import (
	"io"
	"net/http"

	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type createOrderBody struct {
	AmountInSmallestUnit int64  `json:"amountInSmallestUnit"`
	AmountInPaise        int64  `json:"amountInPaise"`
	Receipt              string `json:"receipt"`
	BookingID            string `json:"bookingId"`
}

// verifyBody accepts both our field names and the ones the checkout widget
// posts back
type verifyBody struct {
	OrderID           string `json:"orderId"`
	PaymentID         string `json:"paymentId"`
	Signature         string `json:"signature"`
	BookingID         string `json:"bookingId"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// createPaymentOrder opens a gateway order for the caller
func (h *Handler) createPaymentOrder(c *gin.Context) {
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid amount")
		return
	}

	amount := body.AmountInSmallestUnit
	if amount == 0 {
		amount = body.AmountInPaise
	}

	order, err := h.payments.CreateOrder(c.Request.Context(), principalFrom(c).ID, &service.CreateOrderRequest{
		Amount:    amount,
		Receipt:   body.Receipt,
		BookingID: body.BookingID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// verifyPayment confirms a booking from the checkout callback
func (h *Handler) verifyPayment(c *gin.Context) {
	var body verifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Missing payment verification fields")
		return
	}

	booking, err := h.payments.Verify(c.Request.Context(), principalFrom(c).ID, &service.VerifyPaymentRequest{
		OrderID:   firstNonEmpty(body.OrderID, body.RazorpayOrderID),
		PaymentID: firstNonEmpty(body.PaymentID, body.RazorpayPaymentID),
		Signature: firstNonEmpty(body.Signature, body.RazorpaySignature),
		BookingID: body.BookingID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// paymentWebhook receives gateway notifications. The signature covers the raw
// body, so it is read before any decoding.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Invalid webhook payload")
		return
	}

	_, err = h.webhooks.Handle(
		c.Request.Context(),
		body,
		c.GetHeader("X-Razorpay-Signature"),
		c.GetHeader("X-Razorpay-Event-Id"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
