package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"relayhub/tools/errs"
)

// Identity is the authenticated principal behind a socket connection.
type Identity struct {
	UserID   string
	UserName string
}

// Store resolves a hashed session token against the external session
// store. The production implementation is storage.Store; tests inject
// an in-memory fake.
type Store interface {
	LookupSession(ctx context.Context, tokenHash string) (userID, userName string, ok bool, err error)
}

// Options control token verification.
type Options struct {
	CookieName string        // default "session"
	Secret     []byte        // HMAC key shared with the web application
	Leeway     time.Duration // clock skew tolerance, default 30s
}

// Validator authenticates a raw Cookie header once per connection,
// before any room operation is permitted.
type Validator struct {
	opts  Options
	store Store
}

func NewValidator(opts Options, store Store) *Validator {
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if opts.Leeway <= 0 {
		opts.Leeway = 30 * time.Second
	}
	return &Validator{opts: opts, store: store}
}

// HashToken mirrors how the web application keys sessions in the
// store: sessions are stored under sha256(token), never the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Authenticate parses the raw Cookie header, verifies the session JWT
// and resolves it in the session store. Returns ErrMissingCredential
// when no session cookie is present and ErrInvalidSession when the
// token fails verification or the store has no matching session.
func (v *Validator) Authenticate(ctx context.Context, rawCookieHeader string) (Identity, error) {
	token := v.extractToken(rawCookieHeader)
	if token == "" {
		return Identity{}, errs.ErrMissingCredential
	}

	sub, err := v.verify(token)
	if err != nil {
		return Identity{}, errs.ErrInvalidSession.WithDetail(err.Error())
	}

	userID, userName, ok, err := v.store.LookupSession(ctx, HashToken(token))
	if err != nil {
		return Identity{}, errs.Wrap(err, "session store")
	}
	if !ok || (sub != "" && sub != userID) {
		return Identity{}, errs.ErrInvalidSession
	}
	return Identity{UserID: userID, UserName: userName}, nil
}

func (v *Validator) extractToken(rawCookieHeader string) string {
	if rawCookieHeader == "" {
		return ""
	}
	// http.ParseCookie requires Go 1.23; parse via the same stdlib
	// cookie parser exposed through Request.Cookies on older toolchains.
	req := http.Request{Header: http.Header{"Cookie": {rawCookieHeader}}}
	for _, c := range req.Cookies() {
		if c.Name == v.opts.CookieName {
			return c.Value
		}
	}
	return ""
}

// verify checks the HMAC signature and standard claims, returning the
// sub claim. Only the HMAC family is accepted.
func (v *Validator) verify(token string) (string, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.opts.Secret, nil
	}, jwtlib.WithLeeway(v.opts.Leeway), jwtlib.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", fmt.Errorf("claims type mismatch")
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
