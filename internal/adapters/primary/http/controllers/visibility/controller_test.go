package visibility

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/admin/loventia/discover/internal/adapters/primary/http/middlewares"
	"github.com/admin/loventia/discover/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type fakeVisibility struct {
	duration time.Duration
	resume   bool
	calls    int
}

func (f *fakeVisibility) Hide(_ context.Context, _ uuid.UUID, duration time.Duration, resumeOnLogin bool) (*domain.Visibility, error) {
	f.calls++
	f.duration, f.resume = duration, resumeOnLogin
	return &domain.Visibility{IsHidden: true, ResumeOnLogin: resumeOnLogin}, nil
}

func (f *fakeVisibility) Unhide(context.Context, uuid.UUID) (*domain.Visibility, error) {
	f.calls++
	return &domain.Visibility{}, nil
}

func (f *fakeVisibility) ResumeOnLogin(context.Context, uuid.UUID) (*domain.Visibility, error) {
	f.calls++
	return &domain.Visibility{}, nil
}

func newTestRouter(t *testing.T, uc *fakeVisibility) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"id": uuid.NewString()}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	r := gin.New()
	New(uc, middlewares.Auth(middlewares.AuthConfig{JWTSecret: testSecret}, log), nil, log).RegisterRoutes(r)
	return r, "Bearer " + token
}

func put(r *gin.Engine, path, bearer, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPut, path, reader)
	req.Header.Set("Authorization", bearer)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHide(t *testing.T) {
	cases := []struct {
		name         string
		body         string
		wantStatus   int
		wantDuration time.Duration
		wantResume   bool
	}{
		{"empty body hides indefinitely", "", http.StatusOK, 0, false},
		{"timed hide", `{"durationMinutes":90}`, http.StatusOK, 90 * time.Minute, false},
		{"resume on login", `{"resumeOnLogin":true}`, http.StatusOK, 0, true},
		{"negative duration", `{"durationMinutes":-5}`, http.StatusBadRequest, 0, false},
		{"malformed json", `{"durationMinutes":`, http.StatusBadRequest, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &fakeVisibility{}
			r, bearer := newTestRouter(t, uc)

			w := put(r, "/api/users/visibility/hide", bearer, tc.body)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				if uc.calls != 0 {
					t.Fatalf("use case must not be called on invalid input")
				}
				return
			}
			if uc.duration != tc.wantDuration || uc.resume != tc.wantResume {
				t.Fatalf("expected (%s, %v), got (%s, %v)", tc.wantDuration, tc.wantResume, uc.duration, uc.resume)
			}

			var resp VisibilityResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Visibility == nil || !resp.Visibility.IsHidden {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestUnhide(t *testing.T) {
	uc := &fakeVisibility{}
	r, bearer := newTestRouter(t, uc)

	w := put(r, "/api/users/visibility/unhide", bearer, "")
	if w.Code != http.StatusOK || uc.calls != 1 {
		t.Fatalf("expected 200 and one call, got %d, %d", w.Code, uc.calls)
	}
	var resp VisibilityResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Visibility == nil || resp.Visibility.IsHidden {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	if w := put(r, "/api/users/visibility/unhide", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestResumeOnLogin(t *testing.T) {
	uc := &fakeVisibility{}
	r, bearer := newTestRouter(t, uc)

	req := httptest.NewRequest(http.MethodPost, "/api/users/visibility/resume", nil)
	req.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || uc.calls != 1 {
		t.Fatalf("expected 200 and one call, got %d, %d", w.Code, uc.calls)
	}
}
