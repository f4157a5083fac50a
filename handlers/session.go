package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/docservice/internal/identity"
	"github.com/gogotex/gogotex/backend/docservice/internal/sessions"
	"github.com/gogotex/gogotex/backend/docservice/internal/users"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
	"github.com/gogotex/gogotex/backend/docservice/pkg/middleware"
)

// SessionHandler serves the caller's profile and session teardown.
type SessionHandler struct {
	users       *users.Service
	revocations *sessions.Blacklist
}

func NewSessionHandler(u *users.Service, rev *sessions.Blacklist) *SessionHandler {
	return &SessionHandler{users: u, revocations: rev}
}

// Register mounts the routes on an authenticated group.
func (h *SessionHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.POST("/auth/logout", h.Logout)
}

// Me records the caller in the user directory and returns it.
func (h *SessionHandler) Me(c *gin.Context) {
	u, err := h.users.UpsertFromClaims(c.Request.Context(), middleware.Claims(c))
	if err != nil {
		logger.Errorf("upsert user %s: %v", middleware.CallerID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// Logout revokes the presented access token until it expires. Callers unknown
// to the user directory get 404.
func (h *SessionHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	sub := middleware.CallerID(c)
	if _, err := h.users.GetBySub(ctx, sub); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Errorf("logout lookup %s: %v", sub, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	if exp, ok := identity.ExpiresAt(middleware.Claims(c)); ok {
		if err := h.revocations.Revoke(ctx, middleware.RawToken(c), time.Until(exp)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
			return
		}
	}
	logger.Infof("user %s logged out", sub)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
