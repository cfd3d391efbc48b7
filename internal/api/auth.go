package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "carecal.claims"

// Claims identify the caller and the teams they may act for.
type Claims struct {
	UserID  string   `json:"user_id"`
	TeamIDs []string `json:"team_ids"`
	jwt.RegisteredClaims
}

// CanAccess reports whether the caller belongs to teamID.
func (c *Claims) CanAccess(teamID string) bool {
	return slices.Contains(c.TeamIDs, teamID)
}

// IssueToken signs an HS256 bearer token for userID.
func IssueToken(secret, userID string, teamIDs []string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("api: issue token: secret is required")
	}
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		TeamIDs: teamIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("api: issue token: %w", err)
	}
	return signed, nil
}

// authMiddleware rejects requests without a valid bearer token and stores
// the token's claims on the context.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token format"})
			return
		}

		var claims Claims
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}
		if claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no user_id"})
			return
		}

		c.Set(claimsKey, &claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*Claims)
	if claims == nil {
		return &Claims{}
	}
	return claims
}
