package admin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const KeyHeader = "X-Admin-Key"

// HashKey hashes an operator key for ADMIN_KEY_HASH.
func HashKey(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hashed), nil
}

// VerifyKey checks if the provided key matches the stored hash
func VerifyKey(hashed, plain string) bool {
	if hashed == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// Middleware guards operator routes. With no hash configured every request is
// refused.
func Middleware(hashed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hashed == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access disabled"})
			return
		}
		if !VerifyKey(hashed, c.GetHeader(KeyHeader)) {
			log.Warn().Str("ip", c.ClientIP()).Str("route", c.FullPath()).Msg("[ADMIN] rejected key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}
