package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/jj-link/Pulsr/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenGeneration = errors.New("failed to generate token")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
)

// Provider issues and validates the HS256 bearer tokens that carry the
// caller identity. The SPA's identity provider mints compatible tokens with
// the same shared secret.
type Provider struct {
	config *config.Config
}

func NewProvider(cfg *config.Config) *Provider {
	return &Provider{config: cfg}
}

// Identity is the resolved caller extracted from a validated token
type Identity struct {
	OwnerID string
}

// Generate creates a signed bearer token for the given owner
func (p *Provider) Generate(ownerID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(p.config.JWTExpiration)
	claims := jwt.MapClaims{
		"sub": ownerID,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
		"iss": p.config.BaseURL,
		"jti": uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(p.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return tokenString, expiresAt, nil
}

// Validate parses a bearer token and returns the identity it carries
func (p *Provider) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(p.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrTokenInvalid
	}
	return &Identity{OwnerID: sub}, nil
}
