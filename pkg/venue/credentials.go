package venue

import (
	"os"
	"strings"

	"cryptoagg/pkg/market"
)

// Credentials names the environment variables holding a venue's API key pair.
// They are read on every call so a missing key only fails the request that needs it.
type Credentials struct {
	Venue     string
	KeyEnv    string
	SecretEnv string
}

func (c Credentials) Load() (key, secret string, err error) {
	key = strings.TrimSpace(os.Getenv(c.KeyEnv))
	secret = strings.TrimSpace(os.Getenv(c.SecretEnv))
	if key == "" || secret == "" {
		return "", "", market.APIKeyError(c.Venue)
	}
	return key, secret, nil
}
