package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"
)

const testBillingSecret = "topsecret"

func newBillingRouter(subs SubscriptionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewBillingHandler(subs, testBillingSecret)
	r.POST("/api/billing/verify", h.VerifyPayment)
	return r
}

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testBillingSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPayment_ValidSignatureActivates(t *testing.T) {
	subs := newFakeSubscriptionStore()
	r := newBillingRouter(subs)

	body := fmt.Sprintf(`{"order_id":"ord_1","payment_id":"pay_1","signature":"%s","plan":"premium"}`,
		signPayment("ord_1", "pay_1"))
	w := doRequest(r, "POST", "/api/billing/verify", "u1", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, subs.activated["u1"], "premium")
}

func TestVerifyPayment_BadSignatureRejected(t *testing.T) {
	subs := newFakeSubscriptionStore()
	r := newBillingRouter(subs)

	body := `{"order_id":"ord_1","payment_id":"pay_1","signature":"deadbeef"}`
	w := doRequest(r, "POST", "/api/billing/verify", "u1", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, activated := subs.activated["u1"]
	assert.Equal(t, activated, false)
}

func TestVerifyPayment_SignatureOverWrongFieldsRejected(t *testing.T) {
	subs := newFakeSubscriptionStore()
	r := newBillingRouter(subs)

	// Signature computed for a different order must not transfer.
	body := fmt.Sprintf(`{"order_id":"ord_2","payment_id":"pay_1","signature":"%s"}`,
		signPayment("ord_1", "pay_1"))
	w := doRequest(r, "POST", "/api/billing/verify", "u1", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	r := newBillingRouter(newFakeSubscriptionStore())

	w := doRequest(r, "POST", "/api/billing/verify", "u1", `{"order_id":"ord_1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyPayment_MissingUser(t *testing.T) {
	r := newBillingRouter(newFakeSubscriptionStore())

	w := doRequest(r, "POST", "/api/billing/verify", "", `{}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
