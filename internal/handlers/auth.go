package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/service"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
}

// Signup never echoes the password hash.
func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body")
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Str("user_id", user.ID).Msg("user signed up")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    newUserResponse(user),
	})
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	DeviceID     string       `json:"deviceId"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         userResponse `json:"user"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.sendAuthResponse(c, result)
}

type refreshRequest struct {
	UserID       string `json:"userId" binding:"required"`
	DeviceID     string `json:"deviceId" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), service.RefreshInput{
		UserID:       req.UserID,
		DeviceID:     req.DeviceID,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.sendAuthResponse(c, result)
}

// sendAuthResponse also mirrors the access token into the session cookie
// for browser clients.
func (h HandlerSet) sendAuthResponse(c *gin.Context, result service.AuthResult) {
	h.setSessionCookie(c, result.AccessToken, int(time.Until(result.ExpiresAt).Seconds()))

	c.JSON(http.StatusOK, authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		DeviceID:     result.DeviceID,
		ExpiresAt:    result.ExpiresAt,
		User:         newUserResponse(result.User),
	})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Security.CookieName, value, maxAge, "/", "", h.cfg.Security.CookieSecure, true)
}

func (h HandlerSet) Logout(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.auth.Logout(c.Request.Context(), principal); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse{
			ID:    principal.UserID,
			Email: principal.Email,
			Role:  string(principal.Role),
		},
	})
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Current    bool      `json:"current"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	sessions, err := h.auth.Sessions(c.Request.Context(), principal)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, sessionResponse{
			ID:         session.ID,
			DeviceID:   session.DeviceID,
			DeviceName: session.DeviceName,
			IPAddress:  session.IPAddress,
			UserAgent:  session.UserAgent,
			LastSeenAt: session.LastSeenAt,
			ExpiresAt:  session.ExpiresAt,
			Current:    session.ID == principal.SessionID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": resp,
	})
}

func (h HandlerSet) RevokeSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.auth.RevokeDevice(c.Request.Context(), principal, c.Param("deviceId")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
