package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
)

// Claims carries a self-declared identity. The signature only proves the
// token was issued by this server; the name itself is never verified.
type Claims struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for the given identity.
func GenerateSessionToken(identity models.SessionIdentity, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: identity.Name,
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   identity.Name,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// ValidateSessionToken verifies a token string and returns the identity it carries.
func ValidateSessionToken(tokenString string, secretKey string) (*models.SessionIdentity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	if claims.Name == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("session token carries no usable identity")
	}

	return &models.SessionIdentity{Name: claims.Name, Role: claims.Role}, nil
}
