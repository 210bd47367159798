// Package token issues and verifies the signed session credentials. Access
// tokens are short-lived, refresh tokens long-lived; both are HS256 JWTs
// carrying sub, typ, jti, iat and exp claims.
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-auth-service/internal/model"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Issued carries a freshly signed token along with the identifiers the caller
// needs to persist it.
type Issued struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(secret string, accessTTL time.Duration, refreshTTL time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, model.ErrSigningKeyMissing
	}

	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

func (i *Issuer) IssueAccess(userID string) (Issued, error) {
	return i.issue(userID, TypeAccess, i.accessTTL)
}

func (i *Issuer) IssueRefresh(userID string) (Issued, error) {
	return i.issue(userID, TypeRefresh, i.refreshTTL)
}

func (i *Issuer) issue(userID string, typ string, ttl time.Duration) (Issued, error) {
	if len(i.secret) == 0 {
		return Issued{}, model.ErrSigningKeyMissing
	}

	now := time.Now().UTC()
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"typ": typ,
		"jti": jti,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}).SignedString(i.secret)
	if err != nil {
		return Issued{}, err
	}

	return Issued{Value: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// RevocationChecker reports whether a jti appears on the denylist.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Verifier struct {
	secret  []byte
	revoked RevocationChecker
}

func NewVerifier(secret string, revoked RevocationChecker) *Verifier {
	return &Verifier{secret: []byte(secret), revoked: revoked}
}

// Verify checks signature and structure first, then expiry, then the
// revocation denylist. The ordering keeps malformed input from ever reaching
// the store.
func (v *Verifier) Verify(ctx context.Context, tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrTokenMalformed
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired
		}
		return nil, model.ErrTokenMalformed
	}
	if !parsed.Valid {
		return nil, model.ErrTokenMalformed
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrTokenMalformed
	}

	claims := &model.AuthClaims{}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Type, _ = claimsMap["typ"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" || claims.TokenID == "" {
		return nil, model.ErrTokenMalformed
	}
	if expectedType != "" && claims.Type != expectedType {
		return nil, model.ErrTokenMalformed
	}

	if v.revoked != nil {
		revoked, err := v.revoked.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, model.ErrTokenRevoked
		}
	}

	return claims, nil
}
