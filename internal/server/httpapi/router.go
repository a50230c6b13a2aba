// Package httpapi exposes the auth and profile endpoints over REST.
// Bearer tokens travel in the Authorization header, refresh tokens in an
// HTTP-only cookie that never reaches page scripts.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/PhoenixRFA/backlogapp/internal/logging"
	"github.com/PhoenixRFA/backlogapp/internal/server/auth"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
	"github.com/PhoenixRFA/backlogapp/internal/server/services"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(users *services.UserService, tokens *auth.TokenFactory, opts config.RefreshTokenOptions, log logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := &AuthHandler{
		users:  users,
		tokens: tokens,
		opts:   opts,
		log:    log.With("module", "httpapi"),
	}

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh-token", h.RefreshToken)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/register", h.Register)
		authGroup.POST("/restore-password", h.RestorePassword)
		authGroup.GET("/me", BearerAuth(tokens), h.Me)
		authGroup.PUT("/password", BearerAuth(tokens), h.ChangePassword)
	}

	usersGroup := r.Group("/api/users", BearerAuth(tokens))
	{
		usersGroup.PUT("/name", h.ChangeName)
		usersGroup.PUT("/email", h.ChangeEmail)
	}

	return r
}
