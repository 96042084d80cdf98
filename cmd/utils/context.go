package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const principalKey contextKey = "principal"

var ErrNoPrincipal = errors.New("principal not found in context")

// Principal is the authenticated caller. Handlers pull it from the request
// context once and pass it to services explicitly.
type Principal struct {
	UserID uint
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, ErrNoPrincipal
	}
	return p, nil
}

type Authenticator struct {
	secret    []byte
	accessTTL time.Duration
}

func NewAuthenticator(secret string, accessTTL time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), accessTTL: accessTTL}
}

func (a *Authenticator) GenerateAccessToken(userID uint) (string, time.Time, error) {
	expiresAt := time.Now().Add(a.accessTTL)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (a *Authenticator) ParseAccessToken(tokenString string) (Principal, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, errors.New("invalid token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return Principal{}, errors.New("invalid user ID in token")
	}
	return Principal{UserID: uint(userID)}, nil
}

// Require rejects requests without a valid Bearer token.
func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return a.require(next, false)
}

// RequireWS is Require for websocket upgrades. Browsers cannot set headers
// on the handshake, so a "token" query parameter is accepted as well.
func (a *Authenticator) RequireWS(next http.HandlerFunc) http.HandlerFunc {
	return a.require(next, true)
}

func (a *Authenticator) require(next http.HandlerFunc, allowQuery bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r, allowQuery)
		if tokenString == "" {
			WriteError(w, Unauthorized("Authorization header required"))
			return
		}

		principal, err := a.ParseAccessToken(tokenString)
		if err != nil {
			WriteError(w, Unauthorized("Invalid token"))
			return
		}

		next(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	}
}

func bearerToken(r *http.Request, allowQuery bool) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		return ""
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}
