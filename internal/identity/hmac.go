package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/docservice/pkg/middleware"
)

const tokenTypeAccess = "access"

// ErrWrongTokenType is returned for tokens whose type claim is not "access".
var ErrWrongTokenType = errors.New("not an access token")

// Subject is who an access token is minted for.
type Subject struct {
	Sub   string
	Name  string
	Email string
}

// MintAccessToken signs an HS256 access token for s valid for ttl.
func MintAccessToken(secret []byte, s Subject, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   s.Sub,
		"name":  s.Name,
		"email": s.Email,
		"type":  tokenTypeAccess,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// HMACVerifier accepts HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if _, ok := ExpiresAt(claims); !ok {
		return nil, errors.New("token has no expiry")
	}
	if typ, ok := claims["type"]; ok && typ != tokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return &claimsToken{claims: claims}, nil
}

// ExpiresAt reads the exp claim from decoded claims.
func ExpiresAt(claims map[string]interface{}) (time.Time, bool) {
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case int64:
		return time.Unix(exp, 0), true
	}
	return time.Time{}, false
}
