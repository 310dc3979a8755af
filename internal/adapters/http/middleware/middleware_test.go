package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/storage/memory"
	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/token"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/services"
)

const testSecret = "test-secret"

type countingHandler struct {
	calls int
	user  domain.AuthenticatedUser
	ok    bool
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	h.user, h.ok = UserFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newLimiter(t *testing.T, requests int, window time.Duration) *services.RateLimiterService {
	t.Helper()
	limiter, err := services.NewRateLimiterService(memory.NewCounterStore(nil), services.Config{
		DefaultRule: domain.RateLimitRule{Requests: requests, Window: window},
	})
	require.NoError(t, err)
	return limiter
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, domain.RateLimitRequest) (domain.Decision, error) {
	return domain.Decision{}, domain.ErrCounterStore
}

func TestRateLimiterMiddleware_SixRequestScenario(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	next := &countingHandler{}
	h := TraceID(NewRateLimiterMiddleware(newLimiter(t, 5, time.Minute), "auth", NewErrorHandler(logger), logger)(next))

	wantStatus := []int{200, 200, 200, 200, 200, 429}
	wantRemaining := []string{"4", "3", "2", "1", "0", "0"}

	var last *httptest.ResponseRecorder
	for i := range wantStatus {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, wantStatus[i], rec.Code, "request %d", i+1)
		assert.Equal(t, wantRemaining[i], rec.Header().Get(RateLimitRemainingHeader), "request %d", i+1)
		last = rec
	}

	assert.Equal(t, 5, next.calls)

	body := decodeBody(t, last)
	assert.Equal(t, "Too Many Requests", body["error"])
	assert.Equal(t, "60 seconds", body["retryAfter"])
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, last.Header().Get(TraceIDHeader), body["traceId"])
	assert.Equal(t, "60", last.Header().Get("Retry-After"))

	assert.Contains(t, logs.String(), "rate limit exceeded")
	assert.Contains(t, logs.String(), "10.0.0.1")
	assert.Contains(t, logs.String(), "/api/auth/login")
}

func TestRateLimiterMiddleware_ScopesAreIndependent(t *testing.T) {
	logger := zerolog.Nop()
	limiter := newLimiter(t, 1, time.Minute)
	next := &countingHandler{}

	authChain := NewRateLimiterMiddleware(limiter, "auth", NewErrorHandler(logger), logger)(next)
	walletChain := NewRateLimiterMiddleware(limiter, "wallet", NewErrorHandler(logger), logger)(next)

	for _, h := range []http.Handler{authChain, walletChain} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, next.calls)
}

func TestRateLimiterMiddleware_FaultGoesToErrorHandler(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	next := &countingHandler{}
	h := TraceID(NewRateLimiterMiddleware(failingLimiter{}, "wallet", NewErrorHandler(logger), logger)(next))

	req := httptest.NewRequest(http.MethodGet, "/api/wallet/balance", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, next.calls)
	assert.Empty(t, rec.Header().Get(RateLimitRemainingHeader))

	body := decodeBody(t, rec)
	assert.Equal(t, "trace-123", body["traceId"])
	assert.Equal(t, "Internal Server Error", body["message"])
	assert.Equal(t, 1, strings.Count(logs.String(), `"level":"error"`))
	assert.Contains(t, logs.String(), "rate limit wallet")
	assert.Contains(t, logs.String(), "trace-123")
}

func TestRateLimiterMiddleware_UsesAuthenticatedUserWhenPresent(t *testing.T) {
	logger := zerolog.Nop()
	next := &countingHandler{}
	h := NewRateLimiterMiddleware(newLimiter(t, 1, time.Minute), "wallet", NewErrorHandler(logger), logger)(next)

	for _, id := range []string{"u1", "u2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req = req.WithContext(WithUser(req.Context(), domain.AuthenticatedUser{ID: id}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, id)
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", extractIP(req))

	req.Header.Set("X-Real-IP", "5.6.7.8")
	assert.Equal(t, "5.6.7.8", extractIP(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", extractIP(req))
}

type authFixture struct {
	issuer  *token.JWT
	users   *memory.UserRepository
	handler http.Handler
	next    *countingHandler
	logs    *bytes.Buffer
}

func newAuthFixture(t *testing.T, gate bool) *authFixture {
	t.Helper()

	jwt, err := token.NewJWT(testSecret)
	require.NoError(t, err)
	users := memory.NewUserRepository()
	auth, err := services.NewAuthService(jwt, users)
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := zerolog.New(logs)
	onError := NewErrorHandler(logger)
	next := &countingHandler{}

	var h http.Handler = next
	if gate {
		h = NewVerifiedEmailMiddleware(auth, onError, logger)(h)
	}
	h = TraceID(NewAuthMiddleware(auth, onError, logger)(h))

	return &authFixture{issuer: jwt, users: users, handler: h, next: next, logs: logs}
}

func (f *authFixture) do(t *testing.T, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *authFixture) bearer(t *testing.T, id, role string) string {
	t.Helper()
	raw, err := f.issuer.Issue(domain.DecodedIdentity{ID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	f := newAuthFixture(t, false)

	for _, header := range []string{"", "Bearer ", "Basic dXNlcjpwYXNz"} {
		rec := f.do(t, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, "No token provided", decodeBody(t, rec)["message"], header)
	}
	assert.Equal(t, 0, f.next.calls)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	f := newAuthFixture(t, false)
	f.users.Save(domain.User{ID: "u1", Email: "u1@example.com", IsVerified: true})

	other, err := token.NewJWT("another-secret")
	require.NoError(t, err)
	forged, err := other.Issue(domain.DecodedIdentity{ID: "u1", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	for _, header := range []string{"Bearer garbage", "Bearer " + forged} {
		rec := f.do(t, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid token", decodeBody(t, rec)["message"])
	}
	assert.Equal(t, 0, f.next.calls)
}

func TestAuthMiddleware_UserNotFound(t *testing.T) {
	f := newAuthFixture(t, false)

	rec := f.do(t, f.bearer(t, "deleted", "volunteer"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["message"])
	assert.Equal(t, 0, f.next.calls)
}

func TestAuthMiddleware_UnverifiedEmail(t *testing.T) {
	f := newAuthFixture(t, false)
	f.users.Save(domain.User{ID: "u1", Email: "u1@example.com", Role: "volunteer"})

	rec := f.do(t, f.bearer(t, "u1", "volunteer"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "Email not verified")
	assert.Equal(t, 0, f.next.calls)
}

func TestAuthMiddleware_AttachesUserWithTokenRole(t *testing.T) {
	f := newAuthFixture(t, false)
	f.users.Save(domain.User{ID: "u1", Email: "u1@example.com", Role: "volunteer", IsVerified: true})

	rec := f.do(t, f.bearer(t, "u1", "admin"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.next.calls)
	require.True(t, f.next.ok)
	assert.Equal(t, domain.AuthenticatedUser{ID: "u1", Email: "u1@example.com", Role: "admin", IsVerified: true}, f.next.user)
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t, false)
	f.users.Save(domain.User{ID: "u1", IsVerified: true})

	raw := f.bearer(t, "u1", "volunteer")[len("Bearer "):]
	rec := f.do(t, "bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type flakyAuth struct {
	user        domain.AuthenticatedUser
	authErr     error
	verified    bool
	verifiedErr error
}

func (a *flakyAuth) Authenticate(context.Context, string) (domain.AuthenticatedUser, error) {
	return a.user, a.authErr
}

func (a *flakyAuth) IsVerified(context.Context, string) (bool, error) {
	return a.verified, a.verifiedErr
}

func TestAuthMiddleware_LookupFaultIs500(t *testing.T) {
	logger := zerolog.Nop()
	next := &countingHandler{}
	auth := &flakyAuth{authErr: errors.Join(domain.ErrUserLookup, errors.New("db down"))}
	h := TraceID(NewAuthMiddleware(auth, NewErrorHandler(logger), logger)(next))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["traceId"])
	assert.Equal(t, 0, next.calls)
}

func TestVerifiedEmailMiddleware_RequiresAuthenticatedUser(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	next := &countingHandler{}
	h := NewVerifiedEmailMiddleware(&flakyAuth{verified: true}, NewErrorHandler(logger), logger)(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", decodeBody(t, rec)["message"])
	assert.Equal(t, 0, next.calls)
	assert.Contains(t, logs.String(), "without an authenticated user")
}

func TestVerifiedEmailMiddleware_RechecksLiveStatus(t *testing.T) {
	f := newAuthFixture(t, true)
	f.users.Save(domain.User{ID: "u1", Email: "u1@example.com", IsVerified: true})

	rec := f.do(t, f.bearer(t, "u1", "volunteer"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.next.calls)
}

func TestVerifiedEmailMiddleware_Unverified(t *testing.T) {
	logger := zerolog.Nop()
	next := &countingHandler{}
	// Context says verified; the live check says otherwise and wins.
	auth := &flakyAuth{verified: false}
	h := NewVerifiedEmailMiddleware(auth, NewErrorHandler(logger), logger)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), domain.AuthenticatedUser{ID: "u1", IsVerified: true}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["verificationNeeded"])
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, 0, next.calls)
}

func TestVerifiedEmailMiddleware_LookupFailure(t *testing.T) {
	logger := zerolog.Nop()
	next := &countingHandler{}
	auth := &flakyAuth{verifiedErr: errors.Join(domain.ErrUserLookup, errors.New("timeout"))}
	h := TraceID(NewVerifiedEmailMiddleware(auth, NewErrorHandler(logger), logger)(next))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "trace-abc")
	req = req.WithContext(WithUser(req.Context(), domain.AuthenticatedUser{ID: "u1"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "trace-abc", decodeBody(t, rec)["traceId"])
	assert.Equal(t, 0, next.calls)
}

func TestTraceID(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(TraceIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "incoming-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "incoming-id", seen)
}

func TestVerifiedEmailMiddleware_UserDeletedAfterAuth(t *testing.T) {
	logger := zerolog.Nop()
	next := &countingHandler{}
	auth := &flakyAuth{verifiedErr: domain.ErrUserNotFound}
	h := NewVerifiedEmailMiddleware(auth, NewErrorHandler(logger), logger)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/certificates", nil)
	req = req.WithContext(WithUser(req.Context(), domain.AuthenticatedUser{ID: "gone", IsVerified: true}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["message"])
	assert.Equal(t, 0, next.calls)
}
