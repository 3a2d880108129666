package webserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionTTL = 7 * 24 * time.Hour

// issueJWT mints the stateless session token for a verified wallet address.
func issueJWT(addr string, secret []byte) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr": strings.ToLower(addr),
		"iat":  now.Unix(),
		"exp":  now.Add(sessionTTL).Unix(),
	})
	return token.SignedString(secret)
}

// parseJWT validates signature and expiry and returns the embedded address.
func parseJWT(tokenStr string, secret []byte) (string, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	addr, ok := claims["addr"].(string)
	if !ok || addr == "" {
		return "", fmt.Errorf("missing addr claim")
	}
	return addr, nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return h[7:]
}

// JWTMiddleware rejects requests without a valid session.
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "missing token"})
			return
		}
		addr, err := parseJWT(tok, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "invalid or expired token"})
			return
		}
		c.Set("addr", addr)
		c.Next()
	}
}

// OptionalJWT attaches the principal when a valid token is present and lets
// the request through either way. Endpoints behind it show more to the owner
// than to the public.
func OptionalJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := bearerToken(c); tok != "" {
			if addr, err := parseJWT(tok, secret); err == nil {
				c.Set("addr", addr)
			}
		}
		c.Next()
	}
}
