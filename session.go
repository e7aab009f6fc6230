package accounts

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Default session lifetimes. A persistent session is the "remember me"
// variant and lives considerably longer.
const (
	defaultSessionTTL           = 24 * time.Hour
	defaultPersistentSessionTTL = 30 * 24 * time.Hour
)

// SessionClaims are the claims carried by an issued session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username   string `json:"username"`
	Persistent bool   `json:"persistent,omitempty"`
}

// JWTSessionIssuer mints signed session tokens for authenticated
// identities. It implements SessionIssuer and is only invoked on the
// terminal authenticated transition of a login.
type JWTSessionIssuer struct {
	signingKey    []byte
	issuer        string
	audience      jwt.ClaimStrings
	ttl           time.Duration
	persistentTTL time.Duration
	logger        Logger
	now           func() time.Time
}

// NewJWTSessionIssuer returns an issuer with default lifetimes.
func NewJWTSessionIssuer(signingKey []byte, issuer string, audience []string) *JWTSessionIssuer {
	return &JWTSessionIssuer{
		signingKey:    signingKey,
		issuer:        issuer,
		audience:      audience,
		ttl:           defaultSessionTTL,
		persistentTTL: defaultPersistentSessionTTL,
		logger:        defLogger{},
		now:           time.Now,
	}
}

// WithLogger sets the issuer logger.
func (s *JWTSessionIssuer) WithLogger(logger Logger) *JWTSessionIssuer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithLifetimes overrides the standard and persistent session lifetimes.
func (s *JWTSessionIssuer) WithLifetimes(ttl, persistentTTL time.Duration) *JWTSessionIssuer {
	if ttl > 0 {
		s.ttl = ttl
	}
	if persistentTTL > 0 {
		s.persistentTTL = persistentTTL
	}
	return s
}

// Issue implements SessionIssuer.
func (s *JWTSessionIssuer) Issue(_ context.Context, record *IdentityRecord, persistent bool) (string, error) {
	if record == nil {
		return "", goerrors.New("cannot issue session without identity record", goerrors.CategoryBadInput)
	}

	ttl := s.ttl
	if persistent {
		ttl = s.persistentTTL
	}

	now := s.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   record.ID.String(),
			Audience:  s.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username:   record.Username,
		Persistent: persistent,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		s.logger.Error("session issue failed: %v", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Validate parses and verifies a session token, returning its claims.
func (s *JWTSessionIssuer) Validate(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil || !token.Valid {
		return nil, goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, "session token failed validation")
	}

	return claims, nil
}
