package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"qrlink/internal/platform/config"
)

const (
	SessionCookie = "qrlink_admin"
	issuer        = "qrlink"
)

type Claims struct {
	Admin bool `json:"adm"`
	jwt.RegisteredClaims
}

// SessionService checks the admin key and issues signed admin session tokens.
type SessionService struct {
	secret  []byte
	ttl     time.Duration
	key     string
	keyHash string
}

func NewSessionService(cfg config.SecurityConfig) *SessionService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionService{
		secret:  []byte(cfg.SecretKey),
		ttl:     ttl,
		key:     cfg.AdminKey,
		keyHash: cfg.AdminKeyHash,
	}
}

// CheckKey reports whether key is the admin key. A configured bcrypt hash takes precedence
// over the plain key.
func (s *SessionService) CheckKey(key string) bool {
	if key == "" {
		return false
	}
	if s.keyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.keyHash), []byte(key)) == nil
	}
	if s.key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.key)) == 1
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

func (s *SessionService) GenerateSessionToken() (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, expires, err
}

func (s *SessionService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Admin {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// HashKey returns the bcrypt hash to put in security.admin_key_hash.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("key must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(hash), err
}
