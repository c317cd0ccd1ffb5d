package store

import (
	"sync"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// AuthState is a point-in-time view of the auth store.
// IsAuthenticated is true exactly when User and Token are both set.
type AuthState struct {
	User            *model.User
	Token           string
	IsAuthenticated bool
}

// Auth holds the session's authentication state.
// The credential is opaque to the service and never refreshed or validated.
type Auth struct {
	mu    sync.RWMutex
	user  *model.User
	token string
	obs   observers
}

// NewAuth returns a logged-out auth store.
func NewAuth() *Auth {
	return &Auth{}
}

// SetAuth records a successful login.
func (a *Auth) SetAuth(user model.User, token string) {
	a.mu.Lock()
	u := user
	a.user = &u
	a.token = token
	a.mu.Unlock()
	a.obs.notify()
}

// Logout clears user and token. It never contacts the backend.
func (a *Auth) Logout() {
	a.mu.Lock()
	a.user = nil
	a.token = ""
	a.mu.Unlock()
	a.obs.notify()
}

// Snapshot returns the current state.
func (a *Auth) Snapshot() AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := AuthState{Token: a.token}
	if a.user != nil {
		u := *a.user
		st.User = &u
	}
	st.IsAuthenticated = st.User != nil && st.Token != ""
	return st
}

// IsAuthenticated reports whether a user and token are present.
func (a *Auth) IsAuthenticated() bool {
	return a.Snapshot().IsAuthenticated
}

// Token returns the current credential, or "".
func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// TokenExpiry reports the exp claim of the credential when it happens to be
// a JWT. The signature is not checked; the value is informational only.
func (a *Auth) TokenExpiry() (time.Time, bool) {
	tok := a.Token()
	if tok == "" {
		return time.Time{}, false
	}
	parsed, _, err := new(jwt.Parser).ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subscribe registers fn to run after every login or logout.
func (a *Auth) Subscribe(fn func()) (unsubscribe func()) {
	return a.obs.subscribe(fn)
}
