package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"party_lobby/internal/utils"
)

// 存在 gin.Context 中的鍵
const (
	ContextPlayerID     = "playerID"
	ContextRoomID       = "roomID"
	ContextSessionToken = "sessionToken"
)

// SessionMiddleware 驗證 Authorization 標頭中的 session token
func SessionMiddleware(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextPlayerID, claims.PlayerID)
		c.Set(ContextRoomID, claims.RoomID)
		c.Set(ContextSessionToken, parts[1])
		c.Next()
	}
}
