package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Token purposes. A token minted for one purpose never validates for
// another.
const (
	tokenPurposeEmailConfirm  = "email_confirmation"
	tokenPurposePasswordReset = "password_reset"
)

// Token lifetimes are wall-clock based: validation is a simple comparison
// against the expiry claim, there is no scheduler.
const (
	emailConfirmTokenTTL  = 24 * time.Hour
	passwordResetTokenTTL = 24 * time.Hour
)

type purposeClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// tokenMint issues and checks purpose-bound, identity-bound HMAC tokens for
// email confirmation and password reset flows.
type tokenMint struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func newTokenMint(signingKey []byte, issuer string) *tokenMint {
	return &tokenMint{
		signingKey: signingKey,
		issuer:     issuer,
		now:        time.Now,
	}
}

func (m *tokenMint) mint(record *IdentityRecord, purpose string, ttl time.Duration) (string, error) {
	if record == nil {
		return "", goerrors.New("cannot mint token without identity record", goerrors.CategoryBadInput)
	}

	now := m.now()
	claims := &purposeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   record.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// check validates signature, expiry, purpose, and that the token was minted
// for the given identity record.
func (m *tokenMint) check(record *IdentityRecord, raw, purpose string) error {
	if record == nil || raw == "" {
		return goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, "missing token or identity record")
	}

	claims := &purposeClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.signingKey, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil || !token.Valid {
		return goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, "token failed validation")
	}

	if claims.Purpose != purpose {
		return goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, "token purpose mismatch")
	}

	if claims.Subject != record.ID.String() {
		return goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, "token subject mismatch")
	}

	return nil
}
