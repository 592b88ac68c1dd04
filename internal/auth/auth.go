// Package auth integrates the external authentication collaborator. The
// core only consumes Identity.UID as the sync partition key; everything
// else about an identity is display-only.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/models"
)

// Authenticator is the authentication collaborator surface the core
// consumes.
type Authenticator interface {
	// SignIn exchanges a credential for an Identity and notifies
	// listeners registered with OnAuthStateChanged.
	SignIn(ctx context.Context, credential string) (*models.Identity, error)

	// SignOut clears the current Identity and notifies listeners with nil.
	SignOut(ctx context.Context) error

	// OnAuthStateChanged registers a listener for identity transitions.
	OnAuthStateChanged(fn func(*models.Identity))
}

// VaultClaims is the JWT claim set vaultd tokens carry. Subject is the
// identity's uid.
type VaultClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// TokenAuthenticator is the client-side Authenticator: it trusts a signed
// bearer token the way a browser trusts its session, extracting the
// Identity from the claims. Signature enforcement happens server-side.
type TokenAuthenticator struct {
	mu        sync.Mutex
	identity  *models.Identity
	listeners []func(*models.Identity)
}

// NewTokenAuthenticator creates a signed-out TokenAuthenticator.
func NewTokenAuthenticator() *TokenAuthenticator {
	return &TokenAuthenticator{}
}

// SignIn implements Authenticator. The credential is a vaultd bearer
// token; an unparsable, subject-less or expired token is an AuthError.
func (a *TokenAuthenticator) SignIn(ctx context.Context, credential string) (*models.Identity, error) {
	identity, err := IdentityFromToken(credential)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.identity = identity
	listeners := append([]func(*models.Identity){}, a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
	return identity, nil
}

// SignOut implements Authenticator.
func (a *TokenAuthenticator) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.identity = nil
	listeners := append([]func(*models.Identity){}, a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
	return nil
}

// OnAuthStateChanged implements Authenticator.
func (a *TokenAuthenticator) OnAuthStateChanged(fn func(*models.Identity)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Identity returns the currently signed-in identity, or nil.
func (a *TokenAuthenticator) Identity() *models.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity
}

// IdentityFromToken extracts the Identity from a bearer token without
// verifying the signature. Expiry is still enforced locally so a stale
// token fails fast instead of on the first remote call.
func IdentityFromToken(token string) (*models.Identity, error) {
	claims := &VaultClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAuthFailed, "credential is not a valid token", err)
	}
	if claims.Subject == "" {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "token has no subject")
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "token is expired")
	}
	return &models.Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}
