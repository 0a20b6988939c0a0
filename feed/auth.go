package feed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Private channel subscriptions are signed with HMAC-SHA256 over
// timestamp + method + path, keyed by the base64-decoded API secret, and the
// signature is sent base64-encoded. This happens once per handshake, never
// during steady-state message handling.
const (
	signMethod = "GET"
	signPath   = "/users/self/verify"
)

// signSubscription returns the base64 signature for a private subscription.
// If the secret is not valid base64 the raw bytes are used, producing an
// obviously-wrong signature rather than a panic.
func signSubscription(secret, timestamp string) string {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + signMethod + signPath))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
