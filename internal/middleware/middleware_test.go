package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenToken_RoundTrip(t *testing.T) {
	auth := NewJWTAuth("secret", time.Minute)
	id := uuid.New()

	tok, err := auth.GenerateScreenToken(id)
	require.NoError(t, err)

	got, err := auth.ParseScreenToken(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestScreenToken_Rejections(t *testing.T) {
	auth := NewJWTAuth("secret", time.Minute)
	id := uuid.New()

	other, err := NewJWTAuth("other", time.Minute).GenerateScreenToken(id)
	require.NoError(t, err)
	_, err = auth.ParseScreenToken(other)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = auth.ParseScreenToken("")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired, err := NewJWTAuth("secret", -time.Minute).GenerateScreenToken(id)
	require.NoError(t, err)
	_, err = auth.ParseScreenToken(expired)
	assert.True(t, errors.Is(err, ErrTokenExpired))

	noScreen := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})
	raw, err := noScreen.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.ParseScreenToken(raw)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestMiddleware_TokenSources(t *testing.T) {
	auth := NewJWTAuth("secret", time.Minute)
	id := uuid.New()
	tok, err := auth.GenerateScreenToken(id)
	require.NoError(t, err)

	var seen uuid.UUID
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetScreenID(r.Context())
	}))

	header := httptest.NewRequest(http.MethodGet, "/review/score-trend", nil)
	header.Header.Set(ScreenTokenHeader, tok)

	query := httptest.NewRequest(http.MethodGet, "/review/ws?token="+tok, nil)

	form := httptest.NewRequest(http.MethodPost, "/review/start", strings.NewReader(url.Values{"token": {tok}}.Encode()))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	for name, req := range map[string]*http.Request{"header": header, "query": query, "form": form} {
		seen = uuid.Nil
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, name)
		assert.Equal(t, id, seen, name)
	}
}

func TestMiddleware_MissingTokenWritesEnvelope(t *testing.T) {
	auth := NewJWTAuth("secret", time.Minute)
	called := false
	h := RequestID(auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	req := httptest.NewRequest(http.MethodGet, "/review/score-trend", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "req-1", body.Error.RequestID)
}

func TestMiddleware_CustomErrorFunc(t *testing.T) {
	auth := NewJWTAuth("secret", -time.Minute)
	tok, err := auth.GenerateScreenToken(uuid.New())
	require.NoError(t, err)

	var gotCode string
	auth.OnError = func(w http.ResponseWriter, r *http.Request, status int, code, message string) {
		gotCode = code
		w.WriteHeader(status)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ScreenTokenHeader, tok)
	rr := httptest.NewRecorder()
	auth.Middleware(http.NotFoundHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "TOKEN_EXPIRED", gotCode)
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var fromCtx string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rr.Header().Get("X-Request-ID")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, fromCtx)
}

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	pre := httptest.NewRequest(http.MethodOptions, "/review/start", nil)
	pre.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, pre)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), ScreenTokenHeader)

	other := httptest.NewRequest(http.MethodGet, "/review", nil)
	other.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/review/start", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/review/start", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rl.Stop()
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/review", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")
}
