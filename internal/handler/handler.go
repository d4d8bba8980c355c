package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"main/internal/auth"
	"main/internal/config"
	"main/internal/database"
)

type Handler struct {
	users    database.UserStore
	todos    database.TodoStore
	sessions *auth.SessionManager
	tokens   *auth.TokenIssuer
	broker   *auth.Broker
	cfg      *config.Config
	log      *zap.Logger
}

func New(users database.UserStore, todos database.TodoStore, sessions *auth.SessionManager, tokens *auth.TokenIssuer, broker *auth.Broker, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{users, todos, sessions, tokens, broker, cfg, log}
}

func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, struct{ Message string }{
		Message: "todoapi golang backend",
	})
}

// internalError logs server-side and returns a generic body; details
// never reach the client.
func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal error"})
}
