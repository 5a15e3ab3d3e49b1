package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// IssueToken signs a session JWT the way the web application does.
// The hub itself never issues tokens in production; this exists for
// local tooling and tests.
func IssueToken(secret []byte, userID string, ttl time.Duration) (token string, tokenHash string, err error) {
	// zero ttl gets the default; a negative ttl deliberately mints an
	// already-expired token
	if ttl == 0 {
		ttl = 2 * time.Hour
	}
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", err
	}
	return signed, HashToken(signed), nil
}
