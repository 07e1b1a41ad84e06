package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ledger-service/internal/logger"
)

type contextKey struct{}

var errMissingToken = errors.New("missing bearer token")

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return userID, ok
}

// Authenticator resolves the acting user from an HS256 bearer token whose subject is the user id.
// Tokens are issued by the identity provider; this service only verifies them.
type Authenticator struct {
	secret []byte
	logger *logger.Logger
}

func NewAuthenticator(secret string, log *logger.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		logger: log,
	}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.authenticate(r)
		if err != nil {
			a.logger.WithFields(map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Debug("Rejected request: %v", err)
			sendJSONError(w, "UNAUTHORIZED", "A valid bearer token is required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (uuid.UUID, error) {
	header := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return uuid.Nil, errMissingToken
	}

	return a.ParseToken(strings.TrimSpace(raw))
}

func (a *Authenticator) ParseToken(raw string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", err)
	}

	userID, err := uuid.Parse(subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("token subject %q is not a user id", subject)
	}

	return userID, nil
}

// IssueToken signs a token for userID. Used by tooling and tests standing in for the identity provider.
func IssueToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString([]byte(secret))
}
