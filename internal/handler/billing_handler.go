package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const activationDays = 30

type BillingHandler struct {
	subscriptions SubscriptionStore
	secret        string
}

func NewBillingHandler(subscriptions SubscriptionStore, secret string) *BillingHandler {
	return &BillingHandler{subscriptions: subscriptions, secret: secret}
}

// VerifyPayment checks the provider's HMAC signature over the order and
// payment ids and, if genuine, activates the subscription.
func (h *BillingHandler) VerifyPayment(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user"})
		return
	}

	var req BillingVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing payment fields"})
		return
	}

	if !h.signatureValid(req.OrderID, req.PaymentID, req.Signature) {
		slog.Warn("payment signature mismatch", "user_id", userID, "order_id", req.OrderID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	plan := req.Plan
	if plan == "" {
		plan = "premium"
	}
	expiresAt := time.Now().UTC().AddDate(0, 0, activationDays)

	if err := h.subscriptions.ActivateSubscription(userID, plan, expiresAt); err != nil {
		slog.Error("error activating subscription", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("subscription activated", "user_id", userID, "plan", plan)
	c.JSON(http.StatusOK, gin.H{
		"status":     "active",
		"plan":       plan,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

func (h *BillingHandler) signatureValid(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
