package server

import (
	"database/sql"

	"github.com/antonlindstrom/pgstore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/vk"
	"github.com/markbates/goth/providers/yandex"
	"go.uber.org/zap"

	"main/internal/auth"
	"main/internal/config"
	"main/internal/database"
	"main/internal/handler"
	"main/internal/middleware"
)

type Server struct {
	*gin.Engine
	db     *sql.DB
	states *pgstore.PGStore
}

func New(cfg *config.Config, db *sql.DB, log *zap.Logger) (*Server, error) {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	states, err := auth.NewStateStore(cfg.DatabaseURL, cfg.Production, []byte(cfg.SessionSecret))
	if err != nil {
		return nil, err
	}

	userStore := database.NewUserStore(db)
	sessionStore := database.NewSessionStore(db)
	todoStore := database.NewTodoStore(db)

	sessionManager := auth.NewSessionManager(sessionStore, userStore, cfg.Production)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	broker := auth.NewBroker(states, userStore, providers(cfg)...)

	h := handler.New(userStore, todoStore, sessionManager, tokens, broker, cfg, log)

	r.Use(middleware.Session(sessionManager))

	r.GET("/", h.Home)
	r.GET("/me", middleware.RequireSession(sessionManager), h.Me)

	a := r.Group("/auth")
	{
		a.POST("/signup", h.Signup)
		a.POST("/signin", h.Signin)
		a.POST("/signout", h.Signout)
		a.POST("/refresh", h.Refresh)
		a.GET("/:provider", h.SignInWithProvider)
		a.GET("/:provider/callback", h.OAuthCallback)
	}

	todos := r.Group("/todos")
	todos.Use(middleware.RequireToken(tokens))
	{
		todos.GET("", h.ListTodos)
		todos.POST("", h.CreateTodo)
		todos.GET("/:id", h.GetTodo)
		todos.PATCH("/:id", h.UpdateTodo)
		todos.DELETE("/:id", h.DeleteTodo)
	}

	return &Server{r, db, states}, nil
}

// Close releases the OAuth state store's own database handle.
func (s *Server) Close() {
	s.states.Close()
}

// providers builds the goth provider set from whatever credentials the
// environment supplies.
func providers(cfg *config.Config) []goth.Provider {
	var list []goth.Provider
	if creds, ok := cfg.Providers["github"]; ok {
		list = append(list, github.New(creds.ClientID, creds.ClientSecret, creds.CallbackURL, "user:email"))
	}
	if creds, ok := cfg.Providers["yandex"]; ok {
		list = append(list, yandex.New(creds.ClientID, creds.ClientSecret, creds.CallbackURL))
	}
	if creds, ok := cfg.Providers["vk"]; ok {
		list = append(list, vk.New(creds.ClientID, creds.ClientSecret, creds.CallbackURL, "email"))
	}
	return list
}
