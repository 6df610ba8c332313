package api

import (
	"errors"
	"net/http"
	"strings"

	"marketplace-service/internal/session"

	"github.com/gin-gonic/gin"
)

const sessionContextKey = "session"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// requireSession rejects requests without a live session
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		s, err := h.sessions.Lookup(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Not signed in",
				"details": err.Error(),
			})
			return
		}

		c.Set(sessionContextKey, s)
		c.Next()
	}
}

// requireAdmin must run after requireSession
func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s := currentSession(c); s == nil || !s.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

type signInRequest struct {
	IDToken string `json:"id_token"`
}

// signIn exchanges an identity provider token, from the body or the
// Authorization header, for a session token
func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}
	if req.IDToken == "" {
		req.IDToken = bearerToken(c)
	}

	s, err := h.sessions.SignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrInvalidIdentity) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{
			"error":   "Failed to sign in",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, s)
}

// signOut closes the caller's session
func (h *Handler) signOut(c *gin.Context) {
	if err := h.sessions.SignOut(bearerToken(c)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Not signed in",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}
