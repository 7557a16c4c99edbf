package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/kv"
	"github.com/starford/quire/internal/models"
)

const (
	sessionSubject = "owner"
	secretBytes    = 32
)

// Gate checks the application state and the operator's credentials against
// the config record. It caches nothing: every call reads the store, so
// several instances can share one metadata store.
type Gate struct {
	store kv.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewGate creates a Gate issuing sessions valid for ttl.
func NewGate(store kv.Store, ttl time.Duration) *Gate {
	return &Gate{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the session lifetime.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// Config loads the config record, or apperr.ErrNotInitialized.
func (g *Gate) Config(ctx context.Context) (*models.Config, error) {
	cfg, err := kv.GetJSON[models.Config](ctx, g.store, kv.ConfigKey)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Initialized reports whether the config record exists.
func (g *Gate) Initialized(ctx context.Context) (bool, error) {
	_, err := g.Config(ctx)
	if errors.Is(err, apperr.ErrNotInitialized) {
		return false, nil
	}
	return err == nil, err
}

// Initialize stores the operator password and a fresh session secret. It
// fails with apperr.ErrAlreadyInitialized once a config record exists.
func (g *Gate) Initialize(ctx context.Context, password string) error {
	if err := validation.Validate(password, validation.Required); err != nil {
		return fmt.Errorf("%w: password %v", apperr.ErrInvalidInput, err)
	}
	ok, err := g.Initialized(ctx)
	if err != nil {
		return err
	}
	if ok {
		return apperr.ErrAlreadyInitialized
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("auth: generate secret: %w", err)
	}
	return kv.PutJSON(ctx, g.store, kv.ConfigKey, models.Config{
		Password: hash,
		Secret:   hex.EncodeToString(secret),
	})
}

// Login checks password and returns a signed session token.
func (g *Gate) Login(ctx context.Context, password string) (string, error) {
	cfg, err := g.Config(ctx)
	if err != nil {
		return "", err
	}
	if !CheckPassword(cfg.Password, password) {
		return "", apperr.ErrUnauthorized
	}
	now := g.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign session: %w", err)
	}
	return signed, nil
}

// Verify returns nil iff token is an unexpired session signed with the
// current secret.
func (g *Gate) Verify(ctx context.Context, token string) error {
	if token == "" {
		return apperr.ErrUnauthorized
	}
	cfg, err := g.Config(ctx)
	if err != nil {
		return err
	}
	_, err = jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(sessionSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	return nil
}
