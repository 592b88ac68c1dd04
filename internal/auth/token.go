package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/models"
)

// Verifier validates vaultd bearer tokens against the shared signing
// secret. The server side of the trust boundary.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the token signature and expiry and returns the embedded
// Identity.
func (v *Verifier) Verify(token string) (*models.Identity, error) {
	claims := &VaultClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAuthFailed, "token rejected", err)
	}
	if !parsed.Valid {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "token is not valid")
	}
	if claims.Subject == "" {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "token has no subject")
	}
	return &models.Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}

// IssueToken mints a signed bearer token for an identity, valid for ttl.
// Used by the vaultd token command and by tests.
func IssueToken(secret string, identity models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &VaultClaims{
		Name:    identity.DisplayName,
		Picture: identity.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrAuthFailed, "failed to sign token", err)
	}
	return token, nil
}
