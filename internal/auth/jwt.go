package auth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFromContext returns the authenticated identity for the
// request, or false when the request was not authenticated.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityContextKey).(Identity)
	return ident, ok
}

// WithIdentity returns a context carrying the given identity. Exposed
// for tests and internal callers.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// identityClaims are the JWT claims issued by the auth service. The
// subject is the user ID; email rides along so handlers don't need a
// user lookup.
type identityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Verifier validates bearer JWTs and resolves the caller identity.
type Verifier struct {
	publicKey *ecdsa.PublicKey
}

// NewVerifier creates a Verifier from a PEM-encoded ES256 public key.
func NewVerifier(publicKeyPEM string) (*Verifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not provided")
	}

	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}

	return &Verifier{publicKey: publicKey}, nil
}

// Verify parses and validates a bearer token, returning the identity it
// carries.
func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &identityClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodES256 {
			return nil, errors.New("invalid signing method")
		}
		return v.publicKey, nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := parsed.Claims.(*identityClaims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return Identity{}, errors.New("token expired")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, errors.New("subject is not a user ID")
	}

	return Identity{UserID: userID, Email: claims.Email}, nil
}

// Middleware returns an HTTP middleware that resolves the caller
// identity from the Authorization header and stores it on the request
// context. Requests without a valid bearer token are rejected with 401.
func (v *Verifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			ident, err := v.Verify(tokenStr)
			if err != nil {
				log.Debug().Err(err).Msg("JWT verification failed")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
