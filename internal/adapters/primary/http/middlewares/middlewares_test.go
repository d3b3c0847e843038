package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/admin/loventia/discover/internal/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return raw
}

func authRouter(cfg AuthConfig) *gin.Engine {
	r := gin.New()
	r.GET("/me", Auth(cfg, discardLog), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	return r
}

func TestAuth(t *testing.T) {
	userID := uuid.New()
	expired := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	cases := []struct {
		name       string
		header     func(t *testing.T) string
		wantStatus int
	}{
		{
			name: "sub claim",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
					jwt.RegisteredClaims{Subject: userID.String()})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "legacy userId claim and lowercase scheme",
			header: func(t *testing.T) string {
				return "bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
					jwt.MapClaims{"userId": userID.String()})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "uid claim",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
					jwt.MapClaims{"uid": userID.String()})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			header:     func(*testing.T) string { return "" },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     func(*testing.T) string { return "Basic dXNlcjpwYXNz" },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong secret",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"),
					jwt.RegisteredClaims{Subject: userID.String()})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
					jwt.RegisteredClaims{Subject: userID.String(), ExpiresAt: expired})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "other hmac algorithm",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret),
					jwt.RegisteredClaims{Subject: userID.String()})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "subject is not a uuid",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
					jwt.RegisteredClaims{Subject: "42"})
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	r := authRouter(AuthConfig{JWTSecret: testSecret})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if h := tc.header(t); h != "" {
				req.Header.Set("Authorization", h)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantStatus == http.StatusOK && w.Body.String() != userID.String() {
				t.Fatalf("expected user id %s, got %s", userID, w.Body.String())
			}
			if tc.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] != "unauthorized" {
					t.Fatalf("unexpected body %s", w.Body.String())
				}
			}
		})
	}
}

func TestAuth_Issuer(t *testing.T) {
	cfg := AuthConfig{JWTSecret: testSecret, Issuer: "loventia"}
	userID := uuid.New()

	good := signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
		jwt.RegisteredClaims{Subject: userID.String(), Issuer: "loventia"})
	if id, err := cfg.ParseToken(good); err != nil || id != userID {
		t.Fatalf("expected %s, got %s, %v", userID, id, err)
	}

	foreign := signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
		jwt.RegisteredClaims{Subject: userID.String(), Issuer: "someone-else"})
	if _, err := cfg.ParseToken(foreign); err == nil {
		t.Fatalf("expected issuer mismatch to be rejected")
	}
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Time, time.Duration) (ratelimit.Bucket, error) {
	return ratelimit.Bucket{}, errors.New("redis down")
}

func (failingStore) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func limitedRouter(t *testing.T, store ratelimit.BucketStore, limit int, opts ...ratelimit.Option) *gin.Engine {
	t.Helper()
	limiter, err := ratelimit.New(ratelimit.Config{Scope: "discover", Limit: limit, Window: time.Minute}, store, opts...)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	r := gin.New()
	r.GET("/discover", RateLimit(limiter, ratelimit.DefaultKeyFunc("", false), discardLog), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit(t *testing.T) {
	r := limitedRouter(t, ratelimit.NewMemoryStore(), 2)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/discover", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i, wantRemaining := range []string{"1", "0"} {
		w := do()
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Fatalf("request %d: expected remaining %s, got %s", i+1, wantRemaining, got)
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" || w.Header().Get("X-RateLimit-Scope") != "discover" {
			t.Fatalf("request %d: unexpected headers %v", i+1, w.Header())
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if reset := w.Header().Get("X-RateLimit-Reset"); reset != "60" && reset != "59" {
		t.Fatalf("expected reset in seconds, got %q", reset)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var body struct {
		Error string `json:"error"`
		Limit int    `json:"limit"`
		Reset int64  `json:"reset"`
		Scope string `json:"scope"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "Too Many Requests" || body.Limit != 2 || body.Scope != "discover" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Reset <= time.Now().UnixMilli() {
		t.Fatalf("expected reset as future epoch millis, got %d", body.Reset)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := limitedRouter(t, failingStore{}, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discover", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 when store fails, got %d", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "1" || w.Header().Get("X-RateLimit-Scope") != "discover" {
			t.Fatalf("request %d: expected limit and scope headers, got %v", i+1, w.Header())
		}
		if w.Header().Get("X-RateLimit-Remaining") != "" {
			t.Fatalf("request %d: expected no remaining header without a bucket", i+1)
		}
	}
}

func TestRateLimit_ResetUsesLimiterClock(t *testing.T) {
	fixed := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	r := limitedRouter(t, ratelimit.NewMemoryStore(), 5, ratelimit.WithClock(func() time.Time { return fixed }))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discover", nil))

	if reset := w.Header().Get("X-RateLimit-Reset"); reset != "60" {
		t.Fatalf("expected reset 60 by limiter clock, got %q", reset)
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(discardLog, true))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	known := uuid.NewString()
	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"valid id is propagated", known, true},
		{"garbage is replaced", "not-a-uuid", false},
		{"missing is generated", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.incoming != "" {
				req.Header.Set(RequestIDHeader, tc.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected uuid request id, got %q", got)
			}
			if (got == tc.incoming) != tc.keep {
				t.Fatalf("incoming %q, response %q", tc.incoming, got)
			}
		})
	}
}

func TestRecoveryLogger(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryLogger(discardLog))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestChain_SkipsNilAndDoesNotAlias(t *testing.T) {
	var calls []string
	mark := func(name string) gin.HandlerFunc {
		return func(*gin.Context) { calls = append(calls, name) }
	}

	base := Chain(mark("auth"), nil, mark("limit"))
	if len(base) != 2 {
		t.Fatalf("expected nil handlers skipped, got %d", len(base))
	}

	a := append(base, mark("a"))
	b := append(base, mark("b"))
	a[2](nil)
	b[2](nil)
	if calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("routes share handler storage: %v", calls)
	}
}
