package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"unicode/utf8"

	"cryptoagg/pkg/market"
)

// Sign returns the hex HMAC-SHA256 of timestamp + method + path + body.
func Sign(secret, timestamp, method, path string, body []byte) (string, error) {
	msg := timestamp + method + path + string(body)
	if !utf8.ValidString(msg) || !utf8.ValidString(secret) {
		return "", market.EncodeError(Name, errors.New("message is not valid UTF-8"))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write([]byte(msg)); err != nil {
		return "", market.SignatureError(Name, err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) signedHeaders(method, path string, body []byte) (map[string]string, error) {
	key, secret, err := credentials.Load()
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature, err := Sign(secret, timestamp, method, path, body)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"CB-ACCESS-KEY":       key,
		"CB-ACCESS-SIGN":      signature,
		"CB-ACCESS-TIMESTAMP": timestamp,
		"Content-Type":        "application/json",
	}, nil
}
