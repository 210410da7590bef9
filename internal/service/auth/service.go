package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/shopfront/catalog-api/internal/domain"
	"github.com/shopfront/catalog-api/pkg/config"
	"github.com/shopfront/catalog-api/pkg/crypto"
	tokenpkg "github.com/shopfront/catalog-api/pkg/token"
)

// ErrInvalidCredentials is returned on any login mismatch. Deliberately
// generic: callers must not learn which field was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service authenticates against the single configured credential and
// issues stateless session tokens.
type Service struct {
	logger       *slog.Logger
	email        []byte
	passwordHash []byte
	secret       string
	ttl          time.Duration
}

// New constructs a Service. The configured password is hashed once here
// so the plaintext is not retained for the process lifetime.
func New(cfg config.APIConfig, logger *slog.Logger) (Service, error) {
	hash, err := crypto.Hash(cfg.AdminPassword)
	if err != nil {
		return Service{}, err
	}
	return Service{
		logger:       logger,
		email:        []byte(cfg.AdminEmail),
		passwordHash: hash,
		secret:       cfg.JWTSecret,
		ttl:          cfg.SessionTTL,
	}, nil
}

// Login checks the credential pair. Both comparisons always run so the
// response does not reveal which field mismatched.
func (s Service) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	emailOK := len(email) == len(s.email) &&
		subtle.ConstantTimeCompare([]byte(email), s.email) == 1
	passwordOK := crypto.Verify(s.passwordHash, password) == nil
	if !emailOK || !passwordOK {
		s.logger.Warn("login rejected")
		return domain.Identity{}, ErrInvalidCredentials
	}
	s.logger.Info("user logged in", "email", email)
	return domain.Identity{Email: email}, nil
}

// IssueToken signs a session token for the identity.
func (s Service) IssueToken(identity domain.Identity) (string, error) {
	return tokenpkg.Generate(identity.Email, s.secret, s.ttl)
}

// SessionTTL reports the configured token lifetime, which also bounds the
// session cookie max-age.
func (s Service) SessionTTL() time.Duration {
	return s.ttl
}

// Authorize validates a session token and returns the embedded identity.
// There is no revocation set: any token verifies until natural expiry.
func (s Service) Authorize(ctx context.Context, raw string) (domain.Identity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Identity{}, errors.New("token required")
	}
	claims, err := tokenpkg.Parse(trimmed, s.secret)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Email: claims.Email}, nil
}
