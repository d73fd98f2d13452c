package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/response"
)

// Context keys set by Auth for downstream handlers.
const (
	ContextPlayerID = "playerID"
	ContextUsername = "username"
)

// Auth validates the Bearer token and stores the caller's player identity
// on the gin context. Guest tokens carry only "sub"; registered tokens add
// "un" with the username.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			response.ErrorResponse(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, prefix), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			response.ErrorResponse(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.ErrorResponse(c, http.StatusUnauthorized, "invalid token claims")
			c.Abort()
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			response.ErrorResponse(c, http.StatusUnauthorized, "token missing subject")
			c.Abort()
			return
		}
		c.Set(ContextPlayerID, sub)
		if un, ok := claims["un"].(string); ok {
			c.Set(ContextUsername, un)
		}

		c.Next()
	}
}
