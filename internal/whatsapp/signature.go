package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks the X-Hub-Signature-256 header Meta attaches to
// webhook deliveries against the app secret. Comparison is constant-time.
func VerifySignature(appSecret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	signature := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
