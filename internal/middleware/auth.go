package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	ScreenIDKey  contextKey = "screen_id"
	RequestIDKey contextKey = "request_id"
)

// ScreenTokenHeader carries the screen token on script-issued requests.
// Forms and the WebSocket URL use the "token" parameter instead.
const ScreenTokenHeader = "X-Screen-Token"

var (
	ErrInvalidToken = errors.New("invalid screen token")
	ErrTokenExpired = errors.New("screen token has expired")
)

// ErrorFunc writes a failure response. The default writes the JSON error
// envelope; HTML routes swap in a toast renderer.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// JWTAuth signs and verifies screen tokens. A token binds a browser page to
// one review screen and expires with it.
type JWTAuth struct {
	Secret  []byte
	TTL     time.Duration
	OnError ErrorFunc
}

func NewJWTAuth(secret string, ttl time.Duration) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), TTL: ttl}
}

// GenerateScreenToken creates a token for screenID valid for the screen TTL.
func (j *JWTAuth) GenerateScreenToken(screenID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"screen_id": screenID.String(),
		"exp":       now.Add(j.TTL).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ParseScreenToken verifies tokenStr and returns the screen it was issued for.
func (j *JWTAuth) ParseScreenToken(tokenStr string) (uuid.UUID, error) {
	if tokenStr == "" {
		return uuid.Nil, fmt.Errorf("%w: missing", ErrInvalidToken)
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}

	screenIDStr, ok := claims["screen_id"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: no screen id", ErrInvalidToken)
	}

	screenID, err := uuid.Parse(screenIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return screenID, nil
}

// TokenFromRequest looks for the screen token in the header, the query
// string and finally the submitted form.
func TokenFromRequest(r *http.Request) string {
	if tok := r.Header.Get(ScreenTokenHeader); tok != "" {
		return tok
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if r.Method == http.MethodPost {
		return r.FormValue("token")
	}
	return ""
}

// Middleware validates the screen token and attaches screen_id to context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fail := j.OnError
		if fail == nil {
			fail = writeError
		}

		screenID, err := j.ParseScreenToken(TokenFromRequest(r))
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				fail(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "This page has expired. Please reload.")
			} else {
				fail(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "This page has expired. Please reload.")
			}
			return
		}

		ctx := context.WithValue(r.Context(), ScreenIDKey, screenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetScreenID extracts screen_id from request context
func GetScreenID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ScreenIDKey).(uuid.UUID)
	return id
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
