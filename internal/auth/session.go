package auth

import (
	"fmt"
	"time"

	"github.com/spec-kit/blog-service/internal/domain"
)

// Cookie names carrying the two credentials.
const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// CookieJar exposes the request's cookie values by name. Missing cookies yield "".
type CookieJar interface {
	Get(name string) string
}

// MapJar is a CookieJar backed by a plain map.
type MapJar map[string]string

// Get implements CookieJar.
func (m MapJar) Get(name string) string {
	return m[name]
}

// CookieWrite is a staged Set-Cookie the HTTP layer must apply to the response.
type CookieWrite struct {
	Name    string
	Value   string
	MaxAge  int
	Expires time.Time
}

// Clears reports whether the write deletes the cookie.
func (w CookieWrite) Clears() bool {
	return w.Value == "" && w.MaxAge < 0
}

// ClearCookie builds the delete form of a cookie write.
func ClearCookie(name string) CookieWrite {
	return CookieWrite{Name: name, MaxAge: -1, Expires: time.Unix(0, 0).UTC()}
}

// Outcome classifies how a request was resolved. Only used for logs and metrics.
type Outcome string

const (
	OutcomeAnonymous       Outcome = "anonymous"
	OutcomeAccessValid     Outcome = "access_valid"
	OutcomeAccessRotated   Outcome = "access_rotated"
	OutcomeRefreshExtended Outcome = "refresh_extended"
	OutcomeCleared         Outcome = "cleared"
)

// Resolution is the result of resolving one request's cookies.
type Resolution struct {
	Principal *domain.Principal
	Mutations []CookieWrite
	Outcome   Outcome
	// AccessErr and RefreshErr keep the Malformed/Expired reason for logging.
	AccessErr  error
	RefreshErr error
}

// SessionResolver turns the two credential cookies into a principal,
// rotating the access credential and extending the refresh credential as needed.
// It holds no per-request state and is safe for concurrent use.
type SessionResolver struct {
	tokens *TokenManager
}

// NewSessionResolver builds a resolver over tokens.
func NewSessionResolver(tokens *TokenManager) *SessionResolver {
	return &SessionResolver{tokens: tokens}
}

// Resolve runs a single pass over the jar. Mutations are staged, never applied.
// The returned error is non-nil only when signing fails, which indicates misconfiguration.
func (r *SessionResolver) Resolve(jar CookieJar) (Resolution, error) {
	var res Resolution

	if accessToken := jar.Get(AccessCookieName); accessToken != "" {
		cred, err := r.tokens.Verify(accessToken, domain.TokenKindAccess)
		if err == nil {
			principal := cred.Principal
			res.Principal = &principal
			res.Outcome = OutcomeAccessValid
			return res, nil
		}
		res.AccessErr = err
	}

	refreshToken := jar.Get(RefreshCookieName)
	if refreshToken == "" {
		res.Outcome = OutcomeAnonymous
		return res, nil
	}

	cred, err := r.tokens.Verify(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		res.RefreshErr = err
		res.Outcome = OutcomeCleared
		res.Mutations = []CookieWrite{ClearCookie(AccessCookieName), ClearCookie(RefreshCookieName)}
		return res, nil
	}

	principal := cred.Principal
	access, err := r.issueCookie(principal, domain.TokenKindAccess, AccessCookieName)
	if err != nil {
		return Resolution{}, err
	}
	res.Mutations = append(res.Mutations, access)
	res.Outcome = OutcomeAccessRotated

	if cred.Remaining(r.tokens.Now()) < r.tokens.RotationThreshold() {
		refresh, err := r.issueCookie(principal, domain.TokenKindRefresh, RefreshCookieName)
		if err != nil {
			return Resolution{}, err
		}
		res.Mutations = append(res.Mutations, refresh)
		res.Outcome = OutcomeRefreshExtended
	}

	res.Principal = &principal
	return res, nil
}

// Issue stages a fresh pair of credential cookies for principal, as done at login.
func (r *SessionResolver) Issue(principal domain.Principal) ([]CookieWrite, error) {
	access, err := r.issueCookie(principal, domain.TokenKindAccess, AccessCookieName)
	if err != nil {
		return nil, err
	}
	refresh, err := r.issueCookie(principal, domain.TokenKindRefresh, RefreshCookieName)
	if err != nil {
		return nil, err
	}
	return []CookieWrite{access, refresh}, nil
}

// Clear stages the deletion of both credential cookies.
func (r *SessionResolver) Clear() []CookieWrite {
	return []CookieWrite{ClearCookie(AccessCookieName), ClearCookie(RefreshCookieName)}
}

func (r *SessionResolver) issueCookie(principal domain.Principal, kind domain.TokenKind, name string) (CookieWrite, error) {
	token, expiresAt, err := r.tokens.Issue(principal, kind)
	if err != nil {
		return CookieWrite{}, fmt.Errorf("%w: %w", ErrMisconfigured, err)
	}
	return CookieWrite{
		Name:    name,
		Value:   token,
		MaxAge:  int(r.tokens.TTL(kind) / time.Second),
		Expires: expiresAt,
	}, nil
}
