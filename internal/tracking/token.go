// Package tracking signs the links customers use to follow an order without
// an account.
package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

func encode(input []byte) string {
	return base64.RawURLEncoding.EncodeToString(input)
}

func decode(input string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(input, "="))
}

func sign(secret, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// NewToken binds an order id to its comercio: base64(business:order).sig
func NewToken(secret, businessID, orderID string) string {
	payload := encode([]byte(businessID + ":" + orderID))
	return payload + "." + encode(sign(secret, payload))
}

func Verify(secret, token, businessID, orderID string) bool {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" {
		return false
	}
	actual, err := decode(sig)
	if err != nil || !hmac.Equal(actual, sign(secret, payload)) {
		return false
	}
	raw, err := decode(payload)
	if err != nil {
		return false
	}
	return string(raw) == businessID+":"+orderID
}
