package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront-sync/pkg/config"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Sessions answers who the current session belongs to and whether it is
// authenticated.
type Sessions interface {
	Current(ctx context.Context) (Identity, bool)
}

// Listener receives authentication transitions. It fires only when the
// authenticated flag or the identity actually changes.
type Listener func(ctx context.Context, authenticated bool)

// TokenSessions derives session state from the access token the embedding
// application hands over. No token, or a token that fails validation, means
// guest mode.
type TokenSessions struct {
	mu            sync.RWMutex
	cfg           config.JWTConfig
	log           *logger.Logger
	token         string
	identity      Identity
	authenticated bool
	listener      Listener
}

// NewTokenSessions builds the session tracker.
func NewTokenSessions(cfg config.JWTConfig, log *logger.Logger) (*TokenSessions, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &TokenSessions{cfg: cfg, log: log}, nil
}

// SetListener registers the transition callback. One listener is enough: the
// synchronization coordinator fans out to both stores itself.
func (s *TokenSessions) SetListener(listener Listener) {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
}

// SetToken installs a new access token. An invalid token demotes the session
// to guest rather than failing.
func (s *TokenSessions) SetToken(ctx context.Context, token string) {
	identity, ok := s.parse(ctx, token)
	s.transition(ctx, token, identity, ok)
}

// ClearToken drops the session back to guest mode.
func (s *TokenSessions) ClearToken(ctx context.Context) {
	s.transition(ctx, "", Identity{}, false)
}

// Current implements Sessions.
func (s *TokenSessions) Current(_ context.Context) (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.authenticated
}

// Token returns the raw access token for outbound gateway calls.
func (s *TokenSessions) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *TokenSessions) parse(ctx context.Context, token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
			}
			return []byte(s.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
	)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("access token rejected, staying guest: %v", err))
		return Identity{}, false
	}

	owner := claims.Owner()
	if owner == "" {
		s.log.Warn(ctx, "access token has no subject, staying guest")
		return Identity{}, false
	}
	return Identity{UserID: owner}, true
}

func (s *TokenSessions) transition(ctx context.Context, token string, identity Identity, authenticated bool) {
	s.mu.Lock()
	changed := s.authenticated != authenticated || s.identity != identity
	if authenticated {
		s.token = token
	} else {
		s.token = ""
	}
	s.identity = identity
	s.authenticated = authenticated
	listener := s.listener
	s.mu.Unlock()

	if changed && listener != nil {
		listener(ctx, authenticated)
	}
}
