package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersAt(t *testing.T) {
	auth := &HMACAuth{Key: "key-123", Secret: "topsecret"}

	headers := auth.HeadersAt("POST", "/v1/orders", `{"symbol":"BTCUSD"}`, 1700000000)

	require.Equal(t, "key-123", headers["X-API-KEY"])
	require.Equal(t, "1700000000", headers["X-TIMESTAMP"])

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte(`1700000000POST/v1/orders{"symbol":"BTCUSD"}`))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, headers["X-SIGNATURE"])
}

func TestHeadersAtSignatureChangesWithPath(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: "s"}

	a := auth.HeadersAt("GET", "/v1/ping", "", 1700000000)
	b := auth.HeadersAt("GET", "/v1/balances/USD", "", 1700000000)

	assert.NotEqual(t, a["X-SIGNATURE"], b["X-SIGNATURE"])
}

func TestStringRedactsSecrets(t *testing.T) {
	auth := &HMACAuth{Key: "key-123456", Secret: "topsecret"}

	s := auth.String()
	assert.NotContains(t, s, "key-123456")
	assert.NotContains(t, s, "topsecret")
	assert.Contains(t, s, "key-****")
	assert.Contains(t, s, "tops****")
}
