package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/eventhub-saas/eventhub/internal/config"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// ErrUnauthenticated is returned when no valid hosted-auth token is present.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the verified subject of a hosted-auth token.
type Identity struct {
	AuthID string
	Email  string
}

// Verifier validates hosted-auth access tokens.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// hostedClaims are the claims issued by the hosted auth provider.
type hostedClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// tokenVerifier verifies tokens with a jwt.Keyfunc.
type tokenVerifier struct {
	keyFunc jwt.Keyfunc
	methods []string
	issuer  string
}

// Verify implements Verifier.
func (v *tokenVerifier) Verify(_ context.Context, rawToken string) (Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Identity{}, ErrUnauthenticated
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &hostedClaims{}
	token, errParse := jwt.ParseWithClaims(rawToken, claims, v.keyFunc, opts...)
	if errParse != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, errParse)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}
	return Identity{AuthID: subject, Email: strings.TrimSpace(claims.Email)}, nil
}

// NewHMACVerifier verifies HS256 tokens signed with a shared secret.
func NewHMACVerifier(secret, issuer string) Verifier {
	return &tokenVerifier{
		keyFunc: func(*jwt.Token) (any, error) { return []byte(secret), nil },
		methods: []string{jwt.SigningMethodHS256.Alg()},
		issuer:  issuer,
	}
}

// NewJWKSVerifier fetches signing keys from jwksURL and refreshes them in the background.
// The returned function stops the refresh goroutine.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string) (Verifier, func(), error) {
	jwks, errGet := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.WithError(err).Warn("session: jwks refresh failed")
		},
	})
	if errGet != nil {
		return nil, func() {}, fmt.Errorf("session: load jwks: %w", errGet)
	}
	v := &tokenVerifier{
		keyFunc: jwks.Keyfunc,
		methods: []string{"RS256", "ES256"},
		issuer:  issuer,
	}
	return v, jwks.EndBackground, nil
}

// NewVerifier builds the verifier described by cfg. JWKS wins over a shared secret.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, func(), error) {
	if url := strings.TrimSpace(cfg.JWKSURL); url != "" {
		return NewJWKSVerifier(ctx, url, cfg.Issuer)
	}
	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		return NewHMACVerifier(secret, cfg.Issuer), func() {}, nil
	}
	return nil, func() {}, errors.New("session: set auth.jwks-url or auth.jwt-secret")
}
