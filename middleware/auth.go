package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"

	"relayhub/tools/errs"
)

// Context keys set by Bearer for downstream handlers.
const (
	CtxUserID = "user_id"
)

// Bearer guards service-to-service REST endpoints with an HMAC JWT in
// the Authorization header. Only the HMAC family is accepted.
func Bearer(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errs.CodeMissingCredential, "msg": "missing credential",
			})
			return
		}

		parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
			}
			return secret, nil
		}, jwtlib.WithExpirationRequired())
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errs.CodeInvalidSession, "msg": "invalid token",
			})
			return
		}
		if claims, ok := parsed.Claims.(jwtlib.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Set(CtxUserID, sub)
			}
		}
		c.Next()
	}
}
