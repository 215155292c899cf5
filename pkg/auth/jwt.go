package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Sub         int64  `json:"sub"`
	Document    string `json:"document"`
	Name        string `json:"name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	jwt.RegisteredClaims
}

func NewAccessToken(sub int64, document, name string, isStaff, isSuperuser bool, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:         sub,
		Document:    document,
		Name:        name,
		IsStaff:     isStaff,
		IsSuperuser: isSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"minegate-api"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithAudience("minegate-api"))
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ResetClaims is the password-reset token. The fingerprint binds the
// token to the password hash it was issued against, so a token stops
// verifying once the password changes (including by its own use).
type ResetClaims struct {
	Sub         int64  `json:"sub"`
	Fingerprint string `json:"fpt"`
	jwt.RegisteredClaims
}

func NewResetToken(sub int64, passwordHash, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ResetClaims{
		Sub:         sub,
		Fingerprint: fingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"minegate-reset"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseResetToken verifies signature and expiry and returns the claims.
// Fingerprint matching against the account's current password hash is
// the caller's job, via VerifyFingerprint.
func ParseResetToken(tokenString, secret string) (*ResetClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithAudience("minegate-reset"))
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*ResetClaims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func VerifyFingerprint(claims *ResetClaims, passwordHash string) bool {
	return claims.Fingerprint == fingerprint(passwordHash)
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
