// Package auth implements the credential service: password hashing and
// bearer-token issuance/verification. The signing secret and token lifetime
// are explicit construction-time dependencies; nothing here reads process
// globals.
package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/questforge/tracker/internal/errors"
	"github.com/questforge/tracker/pkg/logger"
)

// Config parameterizes the credential service.
type Config struct {
	// Secret signs issued tokens. Required.
	Secret []byte
	// TokenTTL bounds token validity. Every token carries an expiry claim.
	TokenTTL time.Duration
	// BcryptCost tunes hashing work. Zero selects bcrypt.DefaultCost.
	BcryptCost int
}

// Claims is the token payload. Expiry is always set and always checked.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service hashes passwords and issues/verifies bearer tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	cost   int
	log    *logger.Logger
}

// New constructs the credential service.
func New(cfg Config, log *logger.Logger) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("auth: signing secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{secret: cfg.Secret, ttl: cfg.TokenTTL, cost: cfg.BcryptCost, log: log}, nil
}

// HashPassword produces a salted, one-way bcrypt hash.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a stored hash.
func (s *Service) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a stateless bearer token embedding the user id.
func (s *Service) IssueToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// DecodeToken verifies a bearer token and returns the embedded user id.
func (s *Service) DecodeToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.ExpiredToken()
		}
		return "", errors.InvalidToken(err)
	}
	if !token.Valid {
		return "", errors.InvalidToken(nil)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return "", errors.InvalidToken(nil).WithDetails("reason", "missing user claim")
	}
	return claims.UserID, nil
}
