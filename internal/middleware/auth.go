package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"main/internal/auth"
	"main/internal/model"
)

// Context keys populated by the middleware in this package.
const (
	UserKey    = "user"
	SessionKey = "session"
	ClaimsKey  = "claims"
	userIDKey  = "userID"
)

// Session resolves the request's session once per request and attaches
// the session and its user to the gin context. The id is read from the
// bearer header first, then the session cookie. An invalid or expired id
// gets a blank cookie; validation past the renewal threshold re-issues
// the session cookie.
func Session(sm *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sm.ReadSessionID(c.Request)
		if id == "" {
			c.Next()
			return
		}

		session, user, fresh, err := sm.ValidateSession(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		if session == nil {
			http.SetCookie(c.Writer, sm.BlankSessionCookie())
			c.Next()
			return
		}

		if fresh {
			http.SetCookie(c.Writer, sm.SessionCookie(session))
		}

		c.Set(SessionKey, session)
		c.Set(UserKey, user)
		c.Next()
	}
}

// RequireSession is a middleware to protect routes that require a valid
// session attached by Session.
func RequireSession(sm *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(SessionKey); !ok {
			http.SetCookie(c.Writer, sm.BlankSessionCookie())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireToken protects routes with a JWT, read from the bearer header
// or the access token cookie.
func RequireToken(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.Request)
		if raw == "" {
			if cookie, err := c.Request.Cookie(auth.AccessTokenCookieName); err == nil {
				raw = cookie.Value
			}
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}

		sub, err := auth.Subject(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(userIDKey, sub)
		c.Next()
	}
}

// CurrentUser returns the session user attached by Session.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

// CurrentSession returns the session attached by Session.
func CurrentSession(c *gin.Context) (*model.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*model.Session)
	return session, ok
}

// CurrentUserID returns the token subject attached by RequireToken.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}
	return ""
}
