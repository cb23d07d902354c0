package gemini

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"cryptoagg/pkg/market"
)

type payload struct {
	Nonce   int64  `json:"nonce"`
	Request string `json:"request"`
}

// Sign encodes {nonce, request} as base64 JSON and signs the base64 text with
// HMAC-SHA384. It returns the base64 payload and the hex signature.
func Sign(secret, path string, nonce int64) (encoded, signature string, err error) {
	msg, err := json.Marshal(payload{Nonce: nonce, Request: path})
	if err != nil {
		return "", "", market.SignatureError(Name, err)
	}
	if !utf8.ValidString(secret) {
		return "", "", market.EncodeError(Name, errors.New("secret is not valid UTF-8"))
	}
	encoded = base64.StdEncoding.EncodeToString(msg)

	mac := hmac.New(sha512.New384, []byte(secret))
	if _, err := mac.Write([]byte(encoded)); err != nil {
		return "", "", market.SignatureError(Name, err)
	}
	return encoded, hex.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) signedHeaders(path string) (map[string]string, error) {
	key, secret, err := credentials.Load()
	if err != nil {
		return nil, err
	}

	encoded, signature, err := Sign(secret, path, c.now().UnixMilli())
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"Content-Type":       "text/plain",
		"Cache-Control":      "no-cache",
		"X-GEMINI-APIKEY":    key,
		"X-GEMINI-PAYLOAD":   encoded,
		"X-GEMINI-SIGNATURE": signature,
	}, nil
}
