package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PhoenixRFA/backlogapp/internal/common"
	"github.com/PhoenixRFA/backlogapp/internal/logging"
	"github.com/PhoenixRFA/backlogapp/internal/server/auth"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
	"github.com/PhoenixRFA/backlogapp/internal/server/models"
	"github.com/PhoenixRFA/backlogapp/internal/server/services"
)

// loginFailedMsg is deliberately the same for unknown accounts and wrong
// passwords so the endpoint cannot be used to probe which emails exist.
const loginFailedMsg = "invalid username or password"

// AuthHandler serves the auth and profile endpoints.
type AuthHandler struct {
	users  *services.UserService
	tokens *auth.TokenFactory
	opts   config.RefreshTokenOptions
	log    logging.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type restorePasswordRequest struct {
	Email string `json:"email"`
}

type changeNameRequest struct {
	Name string `json:"name"`
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

// Login authenticates by email and password and opens a refresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	ctx := c.Request.Context()

	user, err := h.users.GetByEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusBadRequest, errorBody(loginFailedMsg))
			return
		}
		h.fail(c, "login lookup", err)
		return
	}

	ok, err := h.users.CheckPassword(user, req.Password)
	if err != nil {
		h.fail(c, "password check", err)
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody(loginFailedMsg))
		return
	}

	refresh, err := h.users.AddRefreshToken(ctx, user.ID, c.ClientIP())
	if err != nil {
		h.fail(c, "issuing refresh token", err)
		return
	}

	bearer, expires, err := h.tokens.BuildToken(user.ID, user.Name)
	if err != nil {
		h.fail(c, "building bearer token", err)
		return
	}

	h.setRefreshCookies(c, refresh, req.Remember)
	c.JSON(http.StatusOK, newSessionDTO(bearer, expires, user))
}

// RefreshToken exchanges the refresh cookie for a new session. Any rotation
// failure is the same 400 on the wire, whether the token expired, was
// revoked, or was replayed after rotation.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(h.opts.CookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusBadRequest, errorBody("invalid token"))
		return
	}

	res, err := h.users.RotateRefreshToken(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			h.clearRefreshCookies(c)
			c.JSON(http.StatusBadRequest, errorBody("invalid token"))
			return
		}
		h.fail(c, "rotating refresh token", err)
		return
	}

	bearer, expires, err := h.tokens.BuildToken(res.User.ID, res.User.Name)
	if err != nil {
		h.fail(c, "building bearer token", err)
		return
	}

	h.setRefreshCookies(c, res.Token, h.hasExtendedSession(c))
	c.JSON(http.StatusOK, newSessionDTO(bearer, expires, res.User))
}

// Logout revokes the refresh cookie's token and clears the cookies. Always
// 204, even when there is nothing to revoke.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.opts.CookieName)
	if err == nil && token != "" {
		if err := h.users.RevokeToken(c.Request.Context(), token, c.ClientIP()); err != nil {
			h.fail(c, "revoking refresh token", err)
			return
		}
	}

	h.clearRefreshCookies(c)
	c.Status(http.StatusNoContent)
}

// Register creates a new account. When no password is supplied a random one
// is generated server side.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, errorBody("email is required"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			c.JSON(http.StatusBadRequest, errorBody("email already in use"))
		case errors.Is(err, common.ErrorValidation):
			c.JSON(http.StatusBadRequest, errorBody("password does not meet requirements"))
		default:
			h.fail(c, "registering account", err)
		}
		return
	}

	c.JSON(http.StatusCreated, newUserDTO(user))
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), accountID(c))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusUnauthorized, errorBody("account no longer exists"))
			return
		}
		h.fail(c, "loading account", err)
		return
	}

	c.JSON(http.StatusOK, newUserDTO(user))
}

// ChangePassword changes the password of the authenticated account. All
// other sessions are revoked; the current one continues on the re-issued
// cookie.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	refresh, err := h.users.ChangePassword(c.Request.Context(), accountID(c), req.OldPassword, req.NewPassword, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthorized):
			c.JSON(http.StatusBadRequest, errorBody("wrong password"))
		case errors.Is(err, common.ErrorValidation):
			c.JSON(http.StatusBadRequest, errorBody("password does not meet requirements"))
		default:
			h.fail(c, "changing password", err)
		}
		return
	}

	h.setRefreshCookies(c, refresh, h.hasExtendedSession(c))
	c.Status(http.StatusNoContent)
}

// RestorePassword resets the password for the given email. The response is
// 204 whether or not the account exists.
func (h *AuthHandler) RestorePassword(c *gin.Context) {
	var req restorePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	if err := h.users.RestorePassword(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		h.fail(c, "restoring password", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangeName updates the authenticated account's display name.
func (h *AuthHandler) ChangeName(c *gin.Context) {
	var req changeNameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	if err := h.users.ChangeName(c.Request.Context(), accountID(c), req.Name); err != nil {
		h.fail(c, "changing name", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangeEmail updates the authenticated account's email.
func (h *AuthHandler) ChangeEmail(c *gin.Context) {
	var req changeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	if err := h.users.ChangeEmail(c.Request.Context(), accountID(c), req.Email); err != nil {
		h.fail(c, "changing email", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// setRefreshCookies writes the refresh-token cookie and the extendedSession
// marker. Persistent sessions get a max-age matching the token's lifetime;
// otherwise both are session cookies. The marker is readable by scripts so
// the client knows a silent refresh is worth attempting.
func (h *AuthHandler) setRefreshCookies(c *gin.Context, token *models.RefreshToken, persistent bool) {
	maxAge := 0
	if persistent {
		maxAge = h.opts.LifetimeDays * 24 * 60 * 60
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.opts.CookieName, token.Token, maxAge, "/api/auth", "", false, true)
	c.SetCookie(h.opts.SessionLifetimeCookieName, "1", maxAge, "/", "", false, false)
}

func (h *AuthHandler) clearRefreshCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.opts.CookieName, "", -1, "/api/auth", "", false, true)
	c.SetCookie(h.opts.SessionLifetimeCookieName, "", -1, "/", "", false, false)
}

// hasExtendedSession reports whether the original login asked to be
// remembered, carried across rotations by the marker cookie.
func (h *AuthHandler) hasExtendedSession(c *gin.Context) bool {
	v, err := c.Cookie(h.opts.SessionLifetimeCookieName)
	return err == nil && v != ""
}

func (h *AuthHandler) fail(c *gin.Context, op string, err error) {
	h.log.Error(c.Request.Context(), op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, errorBody("internal error"))
}
