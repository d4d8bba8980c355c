package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ProviderCredentials configures one OAuth2 identity provider.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type Config struct {
	Addr          string
	DatabaseURL   string
	SessionSecret string
	JWTSecret     string
	FrontendURL   string
	Production    bool

	// Providers is keyed by provider id ("github", "yandex", "vk").
	// Only providers with credentials present in the environment appear.
	Providers map[string]ProviderCredentials
}

func Load() (*Config, error) {
	// A missing .env is fine in deployed environments; variables come
	// from the process environment there.
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	sessionSecret := os.Getenv("SESSION_SECRET")
	jwtSecret := os.Getenv("JWT_SECRET")
	frontendURL := os.Getenv("FRONTEND_URL")

	if databaseURL == "" || sessionSecret == "" || jwtSecret == "" || frontendURL == "" {
		return nil, fmt.Errorf("environment variables (DATABASE_URL, SESSION_SECRET, JWT_SECRET, FRONTEND_URL) are required")
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	callbackBase := os.Getenv("OAUTH_CALLBACK_BASE")
	if callbackBase == "" {
		callbackBase = "http://localhost:8080/auth"
	}

	providers := map[string]ProviderCredentials{}
	for _, name := range []string{"github", "yandex", "vk"} {
		if creds := loadProvider(name, callbackBase); creds != nil {
			providers[name] = *creds
		}
	}

	return &Config{
		Addr:          addr,
		DatabaseURL:   databaseURL,
		SessionSecret: sessionSecret,
		JWTSecret:     jwtSecret,
		FrontendURL:   frontendURL,
		Production:    os.Getenv("ENV") == "production",
		Providers:     providers,
	}, nil
}

func loadProvider(name, callbackBase string) *ProviderCredentials {
	prefix := map[string]string{
		"github": "GITHUB",
		"yandex": "YANDEX",
		"vk":     "VK",
	}[name]

	id := os.Getenv(prefix + "_CLIENT_ID")
	secret := os.Getenv(prefix + "_CLIENT_SECRET")
	if id == "" || secret == "" {
		return nil
	}

	return &ProviderCredentials{
		ClientID:     id,
		ClientSecret: secret,
		CallbackURL:  fmt.Sprintf("%s/%s/callback", callbackBase, name),
	}
}
