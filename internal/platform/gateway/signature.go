package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

// Signature computes the webhook signature for an order/status/amount triple:
// hex(sha512(orderID + statusCode + grossAmount + serverKey)).
func Signature(orderID, statusCode string, grossAmount int64, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + strconv.FormatInt(grossAmount, 10) + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(orderID, statusCode string, grossAmount int64, serverKey, got string) bool {
	want := Signature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
