// Package auth verifies API callers and exposes them as core.Identity.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"openaigateway/internal/core"
	"openaigateway/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured      = errors.New("no client credentials configured")
	ErrMissingCredentials = errors.New("API key required in Authorization header (Bearer) or x-api-key header")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Config lists the accepted credentials.
type Config struct {
	ClientKeys []string
	AdminKeys  []string
	JWTSecret  string
}

// Authenticator checks static API keys and HS256 bearer tokens.
type Authenticator struct {
	clientKeys [][]byte
	adminKeys  [][]byte
	secret     []byte
}

// Claims are the identity claims carried by gateway tokens.
type Claims struct {
	UserID string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func New(cfg Config) *Authenticator {
	a := &Authenticator{}
	for _, k := range util.CleanList(cfg.ClientKeys) {
		a.clientKeys = append(a.clientKeys, []byte(k))
	}
	for _, k := range util.CleanList(cfg.AdminKeys) {
		a.adminKeys = append(a.adminKeys, []byte(k))
	}
	if cfg.JWTSecret != "" {
		a.secret = []byte(cfg.JWTSecret)
	}
	return a
}

// Configured reports whether any credential can be accepted.
func (a *Authenticator) Configured() bool {
	return len(a.clientKeys) > 0 || len(a.adminKeys) > 0 || len(a.secret) > 0
}

// Authenticate resolves the caller of r. The x-api-key header takes
// precedence over the Authorization header.
func (a *Authenticator) Authenticate(r *http.Request) (*core.Identity, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	if apiKey := r.Header.Get(core.HeaderXAPIKey); apiKey != "" {
		if identity := a.identityForKey(apiKey); identity != nil {
			return identity, nil
		}
		return nil, fmt.Errorf("%w: x-api-key", ErrInvalidCredentials)
	}

	authHeader := r.Header.Get(core.HeaderAuthorization)
	if authHeader == "" {
		return nil, ErrMissingCredentials
	}
	token, ok := util.BearerToken(authHeader)
	if !ok || token == "" {
		return nil, fmt.Errorf("%w: malformed Authorization header", ErrInvalidCredentials)
	}
	if identity := a.identityForKey(token); identity != nil {
		return identity, nil
	}
	if len(a.secret) > 0 && strings.Count(token, ".") == 2 {
		identity, err := a.parseToken(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return identity, nil
	}
	return nil, fmt.Errorf("%w: bearer token", ErrInvalidCredentials)
}

func (a *Authenticator) identityForKey(key string) *core.Identity {
	provided := []byte(key)
	if matchAny(provided, a.adminKeys) {
		return keyIdentity(key, core.RoleAdmin)
	}
	if matchAny(provided, a.clientKeys) {
		return keyIdentity(key, core.RoleUser)
	}
	return nil
}

func matchAny(provided []byte, keys [][]byte) bool {
	for _, valid := range keys {
		if len(provided) == len(valid) && subtle.ConstantTimeCompare(provided, valid) == 1 {
			return true
		}
	}
	return false
}

func keyIdentity(key, role string) *core.Identity {
	sum := sha256.Sum256([]byte(key))
	id := "key-" + hex.EncodeToString(sum[:])[:12]
	return &core.Identity{ID: id, Name: id, Role: role}
}

func (a *Authenticator) parseToken(tokenStr string) (*core.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return nil, errors.New("token has no subject")
	}
	role := claims.Role
	if role != core.RoleAdmin {
		role = core.RoleUser
	}
	return &core.Identity{ID: id, Name: claims.Name, Email: claims.Email, Role: role}, nil
}

// RequireUser rejects unauthenticated requests and stores the caller identity.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Authenticate(c.Request)
		if err != nil {
			abortWithError(c, statusFor(err), err.Error())
			return
		}
		c.Set(core.ContextKeyIdentity, identity)
		c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil || !identity.IsAdmin() {
			abortWithError(c, http.StatusUnauthorized, "admin access required")
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity stored by RequireUser, nil if absent.
func IdentityFrom(c *gin.Context) *core.Identity {
	v, ok := c.Get(core.ContextKeyIdentity)
	if !ok {
		return nil
	}
	identity, _ := v.(*core.Identity)
	return identity
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMissingCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"message": message,
		"type":    "authentication_error",
	}})
}
