package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qlndemo/coffeerun/backend/internal/auth"
)

type loginRequestPayload struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email is required"})
		return
	}

	_, rawToken, err := h.magicLinks.Issue(c.Request.Context(), request.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	link := auth.MagicLinkURL(h.frontendURL, rawToken)
	if err := h.mailer.SendMagicLink(c.Request.Context(), request.Email, link); err != nil {
		h.logger.Error("magic link delivery failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send login email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Check your email for a login link."})
}

type verifyRequestPayload struct {
	Token string `json:"token" binding:"required"`
}

func (h *httpHandler) handleVerify(c *gin.Context) {
	var request verifyRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	user, err := h.magicLinks.Verify(c.Request.Context(), request.Token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	sessionToken, err := h.sessions.Issue(user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), sessionToken,
		int(h.sessions.TTL().Seconds()), "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, user)
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

func (h *httpHandler) handleMe(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	user, err := h.accounts.GetByID(c.Request.Context(), claims.UserID())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}
