package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"net/url"
	"strconv"

	"cryptoagg/pkg/market"
)

// Sign computes base64(HMAC-SHA512(b64decode(secret), path + SHA256(nonce + postdata))).
func Sign(secret, path, nonce, postdata string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", market.EncodeError(Name, err)
	}

	sha := sha256.Sum256([]byte(nonce + postdata))
	mac := hmac.New(sha512.New, key)
	if _, err := mac.Write(append([]byte(path), sha[:]...)); err != nil {
		return "", market.SignatureError(Name, err)
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// signedForm returns the url-encoded body and headers for a private endpoint.
func (c *Client) signedForm(path string, form url.Values) (string, map[string]string, error) {
	key, secret, err := credentials.Load()
	if err != nil {
		return "", nil, err
	}

	if form == nil {
		form = url.Values{}
	}
	nonce := strconv.FormatInt(c.now().UnixMilli(), 10)
	form.Set("nonce", nonce)
	body := form.Encode()

	signature, err := Sign(secret, path, nonce, body)
	if err != nil {
		return "", nil, err
	}

	return body, map[string]string{
		"API-Key":      key,
		"API-Sign":     signature,
		"Content-Type": "application/x-www-form-urlencoded; charset=utf-8",
	}, nil
}
