package links

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	shortCodeChars    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultCodeLength = 6
	minCodeLength     = 3
	maxCodeLength     = 12
)

type CodeAvailabilityChecker interface {
	ExistsByShortCode(code string) (bool, error)
}

// GenerateShortCode draws random codes until one is free. There is no retry limit;
// it only fails when the checker does.
func GenerateShortCode(length int, checker CodeAvailabilityChecker) (string, error) {
	if length < minCodeLength || length > maxCodeLength {
		return "", errors.New("invalid short code length")
	}

	for {
		code, err := generateRandomCode(length)
		if err != nil {
			return "", err
		}

		exists, err := checker.ExistsByShortCode(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

var alphabetSize = big.NewInt(int64(len(shortCodeChars)))

func generateRandomCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = shortCodeChars[n.Int64()]
	}
	return string(b), nil
}

// IsValidShortCode reports whether code could have been issued by this package.
func IsValidShortCode(code string) bool {
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
