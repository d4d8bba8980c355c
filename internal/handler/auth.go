package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"main/internal/auth"
	"main/internal/database"
	"main/internal/middleware"
	"main/internal/model"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type signupResponse struct {
	model.User
	auth.TokenPair
}

func (h *Handler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	existing, err := h.users.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.internalError(c, "signup: user lookup failed", err)
		return
	}
	if existing != nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "User already exists"})
		return
	}

	digest, err := auth.HashPassword(req.Password)
	if err != nil {
		h.internalError(c, "signup: password hashing failed", err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Email, &digest, nil)
	if err != nil {
		// Two concurrent signups can both pass the lookup above; the
		// loser trips the unique constraint instead.
		if errors.Is(err, database.ErrDuplicateEmail) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "User already exists"})
			return
		}
		h.internalError(c, "signup: user creation failed", err)
		return
	}

	pair, err := h.tokens.Issue(user.ID, nil)
	if err != nil {
		h.internalError(c, "signup: token issuance failed", err)
		return
	}

	h.setTokenCookies(c, pair)
	c.JSON(http.StatusCreated, signupResponse{User: *user, TokenPair: pair})
}

func (h *Handler) Signin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	user, err := h.users.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.internalError(c, "signin: user lookup failed", err)
		return
	}

	// Unknown email, OAuth-only account, and wrong password all produce
	// the same response, so registered emails cannot be enumerated.
	if user == nil || user.Password == nil || !auth.VerifyPassword(req.Password, *user.Password) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid credentials"})
		return
	}

	pair, err := h.tokens.Issue(user.ID, nil)
	if err != nil {
		h.internalError(c, "signin: token issuance failed", err)
		return
	}

	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, pair)
}

// Signout clears auth cookies and revokes the attached session, if any.
// It succeeds regardless of prior auth state.
func (h *Handler) Signout(c *gin.Context) {
	h.clearTokenCookies(c)

	if session, ok := middleware.CurrentSession(c); ok {
		if err := h.sessions.InvalidateSession(c.Request.Context(), session.ID); err != nil {
			h.internalError(c, "signout: session invalidation failed", err)
			return
		}
		http.SetCookie(c.Writer, h.sessions.BlankSessionCookie())
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "refresh_token is required"})
		return
	}

	claims, err := h.tokens.Verify(req.RefreshToken)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		return
	}

	sub, err := auth.Subject(claims)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		return
	}

	user, err := h.users.FindUserByID(c.Request.Context(), sub)
	if err != nil {
		h.internalError(c, "refresh: user lookup failed", err)
		return
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		return
	}

	pair, err := h.tokens.Issue(user.ID, nil)
	if err != nil {
		h.internalError(c, "refresh: token issuance failed", err)
		return
	}

	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) SignInWithProvider(c *gin.Context) {
	provider := c.Param("provider")

	url, err := h.broker.Start(c.Writer, c.Request, provider)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownProvider) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "unknown provider"})
			return
		}
		h.internalError(c, "oauth start failed", err)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *Handler) OAuthCallback(c *gin.Context) {
	provider := c.Param("provider")

	user, err := h.broker.Callback(c.Writer, c.Request, provider)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrStateMismatch):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "state mismatch"})
		case errors.Is(err, auth.ErrNoEmail):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "no email provided"})
		case errors.Is(err, auth.ErrUnknownProvider):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "unknown provider"})
		default:
			h.internalError(c, "oauth callback failed", err)
		}
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, "oauth callback: session creation failed", err)
		return
	}

	h.log.Info("oauth login",
		zap.String("provider", provider),
		zap.Int64("user_id", user.ID),
	)

	http.SetCookie(c.Writer, h.sessions.SessionCookie(session))
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL)
}

func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) setTokenCookies(c *gin.Context, pair auth.TokenPair) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.AccessTokenCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(auth.AccessTokenTTL.Seconds()),
		HttpOnly: false,
		Secure:   h.cfg.Production,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(auth.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Production,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearTokenCookies(c *gin.Context) {
	for _, name := range []string{auth.AccessTokenCookieName, auth.RefreshTokenCookieName} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   h.cfg.Production,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
