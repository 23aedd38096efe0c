package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roomify/backend/internal/models"
	"github.com/roomify/backend/internal/services"
)

const sessionKey = "session"

// Auth resolves the bearer token to an explicit Session and aborts with
// the worker error shape on failure
func Auth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed", "status": http.StatusUnauthorized})
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := authService.ValidateAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed", "status": http.StatusUnauthorized})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed", "status": http.StatusUnauthorized})
			c.Abort()
			return
		}

		user, err := authService.GetUserByID(userID)
		if err != nil || !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed", "status": http.StatusUnauthorized})
			c.Abort()
			return
		}

		c.Set(sessionKey, &models.Session{
			UserID:   user.ID.String(),
			Username: user.Username,
			Token:    token,
		})
		c.Next()
	}
}

// GetSession returns the session placed by Auth, nil when absent
func GetSession(c *gin.Context) *models.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*models.Session)
	return sess
}

// SetSession is used by tests to inject a session without going through
// the full auth stack
func SetSession(c *gin.Context, sess *models.Session) {
	c.Set(sessionKey, sess)
}
