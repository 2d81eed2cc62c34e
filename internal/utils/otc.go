package utils // package utils provides helper functions for codes, hashing and session tokens

import (
	"crypto/rand" // secure random number generation
	"fmt"
	"math/big"
	"strings"
)

// GenerateOTC returns a 6-digit numeric verification code drawn
// uniformly from [100000, 999999] using a cryptographically strong
// source. Codes are short-lived single-use secrets delivered out of
// band, so no stronger construction is needed.
func GenerateOTC() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// MaskEmail hides the interior of an email's local part for log lines:
// first and last character survive, the rest become asterisks. Local
// parts of length <= 2 keep only the first character and one asterisk.
// The domain is left unmasked.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		if local == "" {
			return "@" + domain
		}
		return local[:1] + "*@" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + "@" + domain
}
