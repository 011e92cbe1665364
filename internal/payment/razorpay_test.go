package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	c := NewClient("key_id", "key_secret")

	good := signPayload("key_secret", "order_123", "pay_456")
	assert.True(t, c.VerifySignature("order_123", "pay_456", good))

	assert.False(t, c.VerifySignature("order_123", "pay_456", "deadbeef"))
	assert.False(t, c.VerifySignature("order_999", "pay_456", good), "signature is bound to the order")
	assert.False(t, c.VerifySignature("order_123", "pay_999", good), "signature is bound to the payment")

	wrongKey := signPayload("other_secret", "order_123", "pay_456")
	assert.False(t, c.VerifySignature("order_123", "pay_456", wrongKey))
}

func TestVerifySignatureDisabledClient(t *testing.T) {
	c := NewClient("", "")
	assert.False(t, c.Enabled())
	assert.False(t, c.VerifySignature("order_123", "pay_456", signPayload("", "order_123", "pay_456")))
}
