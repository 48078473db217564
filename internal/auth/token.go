package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/blog-service/internal/domain"
)

var (
	// ErrMalformed covers tokens that cannot be parsed, fail signature checks
	// or were issued for a different kind.
	ErrMalformed = errors.New("credential malformed")
	// ErrExpired is returned for a correctly signed token past its expiry.
	ErrExpired = errors.New("credential expired")
	// ErrMisconfigured is returned when the manager cannot be built from its config.
	ErrMisconfigured = errors.New("token manager misconfigured")
)

// TokenConfig holds everything the codec needs; nothing is read from the environment at call time.
type TokenConfig struct {
	AccessSecret              string
	AccessTTL                 time.Duration
	RefreshSecret             string
	RefreshTTL                time.Duration
	RotationThresholdFraction float64
	// Leeway tolerates clock skew on expiry checks. Zero means none.
	Leeway time.Duration
	// Now overrides the wall clock, mostly for tests.
	Now func() time.Time
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenManager issues and verifies the signed access and refresh credentials.
type TokenManager struct {
	access    signingKey
	refresh   signingKey
	threshold time.Duration
	leeway    time.Duration
	now       func() time.Time
}

// Claims describes the JWT payload.
type Claims struct {
	Role domain.Role      `json:"role"`
	Kind domain.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Credential is a verified token.
type Credential struct {
	Principal domain.Principal
	Kind      domain.TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining returns the lifetime left at now.
func (c *Credential) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// NewTokenManager validates cfg and builds a manager.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	switch {
	case strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "":
		return nil, fmt.Errorf("%w: signing secrets are required", ErrMisconfigured)
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrMisconfigured)
	case cfg.RotationThresholdFraction <= 0 || cfg.RotationThresholdFraction >= 1:
		return nil, fmt.Errorf("%w: rotation threshold fraction must be in (0,1)", ErrMisconfigured)
	case cfg.Leeway < 0:
		return nil, fmt.Errorf("%w: leeway must not be negative", ErrMisconfigured)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		access:    signingKey{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
		refresh:   signingKey{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		threshold: time.Duration(float64(cfg.RefreshTTL) * cfg.RotationThresholdFraction),
		leeway:    cfg.Leeway,
		now:       now,
	}, nil
}

// Issue signs a credential of the given kind for principal and returns it with its expiry.
func (tm *TokenManager) Issue(principal domain.Principal, kind domain.TokenKind) (string, time.Time, error) {
	key, err := tm.key(kind)
	if err != nil {
		return "", time.Time{}, err
	}
	if principal.SubjectID == "" || !principal.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("issue %s token: incomplete principal", kind)
	}

	issuedAt := tm.now()
	expiresAt := issuedAt.Add(key.ttl)
	claims := &Claims{
		Role: principal.Role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principal.SubjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify checks signature, kind and expiry. Failures wrap ErrMalformed or ErrExpired.
func (tm *TokenManager) Verify(tokenStr string, kind domain.TokenKind) (*Credential, error) {
	key, err := tm.key(kind)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return key.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
		jwt.WithLeeway(tm.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrMalformed)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrMalformed, kind, claims.Kind)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: incomplete claims", ErrMalformed)
	}

	cred := &Credential{
		Principal: domain.Principal{SubjectID: claims.Subject, Role: claims.Role},
		Kind:      kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	return cred, nil
}

// TTL returns the configured lifetime for kind.
func (tm *TokenManager) TTL(kind domain.TokenKind) time.Duration {
	key, err := tm.key(kind)
	if err != nil {
		return 0
	}
	return key.ttl
}

// RotationThreshold is the remaining refresh lifetime below which the refresh token is reissued.
func (tm *TokenManager) RotationThreshold() time.Duration {
	return tm.threshold
}

// Now returns the manager's clock reading.
func (tm *TokenManager) Now() time.Time {
	return tm.now()
}

func (tm *TokenManager) key(kind domain.TokenKind) (signingKey, error) {
	switch kind {
	case domain.TokenKindAccess:
		return tm.access, nil
	case domain.TokenKindRefresh:
		return tm.refresh, nil
	default:
		return signingKey{}, fmt.Errorf("unknown token kind %q", kind)
	}
}
