package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/antonlindstrom/pgstore"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"

	"main/internal/database"
	"main/internal/model"
)

const (
	// StateSessionName is the cookie session carrying the anti-forgery
	// state and the marshaled provider session between the redirect and
	// the callback.
	StateSessionName = "oauth_state"

	stateTTL = 10 * time.Minute
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")

	// ErrStateMismatch means the callback state does not match the one
	// issued at the start of the flow (or either is missing).
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrNoEmail means the provider supplied no usable email for a
	// first-time login, so no local account can be resolved.
	ErrNoEmail = errors.New("oauth provider supplied no email")
)

// NewStateStore builds the postgres-backed cookie session store holding
// in-flight OAuth flow state.
func NewStateStore(dbURL string, secure bool, keyPairs ...[]byte) (*pgstore.PGStore, error) {
	store, err := pgstore.NewPGStore(dbURL, keyPairs...)
	if err != nil {
		return nil, err
	}

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return store, nil
}

// Broker drives the authorization-code flow against the configured
// providers and resolves provider identities into local users.
type Broker struct {
	providers map[string]goth.Provider
	states    sessions.Store
	users     database.UserStore
}

func NewBroker(states sessions.Store, users database.UserStore, providers ...goth.Provider) *Broker {
	m := make(map[string]goth.Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Broker{providers: m, states: states, users: users}
}

// Start begins the flow for the named provider: it generates a random
// state, stores it with the marshaled provider session in the short-lived
// state cookie, and returns the provider's authorization URL.
func (b *Broker) Start(w http.ResponseWriter, r *http.Request, providerName string) (string, error) {
	p, ok := b.providers[providerName]
	if !ok {
		return "", ErrUnknownProvider
	}

	state := uuid.NewString()
	sess, err := p.BeginAuth(state)
	if err != nil {
		return "", fmt.Errorf("begin auth with %s: %w", providerName, err)
	}

	authURL, err := sess.GetAuthURL()
	if err != nil {
		return "", fmt.Errorf("authorization url for %s: %w", providerName, err)
	}

	st, _ := b.states.Get(r, StateSessionName)
	st.Values["state"] = state
	st.Values["provider"] = providerName
	st.Values["session"] = sess.Marshal()
	if err := st.Save(r, w); err != nil {
		return "", fmt.Errorf("persist oauth state: %w", err)
	}

	return authURL, nil
}

// Callback completes the flow: it verifies the anti-forgery state before
// any provider or database I/O, exchanges the code, fetches the provider
// identity, and resolves it to a local user.
func (b *Broker) Callback(w http.ResponseWriter, r *http.Request, providerName string) (*model.User, error) {
	p, ok := b.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	st, _ := b.states.Get(r, StateSessionName)
	cookieState, _ := st.Values["state"].(string)
	marshaled, _ := st.Values["session"].(string)
	queryState := r.URL.Query().Get("state")

	if queryState == "" || cookieState == "" || queryState != cookieState || marshaled == "" {
		return nil, ErrStateMismatch
	}

	// The state is single-use; drop it whatever happens next.
	st.Options.MaxAge = -1
	if err := st.Save(r, w); err != nil {
		return nil, fmt.Errorf("clear oauth state: %w", err)
	}

	sess, err := p.UnmarshalSession(marshaled)
	if err != nil {
		return nil, fmt.Errorf("restore %s session: %w", providerName, err)
	}

	if _, err := sess.Authorize(p, r.URL.Query()); err != nil {
		return nil, fmt.Errorf("exchange code with %s: %w", providerName, err)
	}

	identity, err := p.FetchUser(sess)
	if err != nil {
		return nil, fmt.Errorf("fetch identity from %s: %w", providerName, err)
	}

	return b.resolveAccount(r.Context(), providerName, identity)
}

// resolveAccount maps a provider identity to a local user: an existing
// link wins; otherwise the user is found or created by email and linked,
// atomically.
func (b *Broker) resolveAccount(ctx context.Context, providerID string, identity goth.User) (*model.User, error) {
	acct, err := b.users.FindOAuthAccount(ctx, providerID, identity.UserID)
	if err != nil {
		return nil, err
	}

	if acct != nil {
		user, err := b.users.FindUserByID(ctx, acct.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("oauth account %s/%s links to missing user %d", providerID, identity.UserID, acct.UserID)
		}
		return user, nil
	}

	if identity.Email == "" {
		return nil, ErrNoEmail
	}

	var name *string
	if identity.Name != "" {
		name = &identity.Name
	}
	return b.users.LinkOAuthUser(ctx, providerID, identity.UserID, identity.Email, name)
}
