package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/admin/loventia/discover/internal/adapters/primary/http/middlewares"
	"github.com/admin/loventia/discover/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type fakeDiscover struct {
	filters        domain.DiscoverFilters
	actTarget      uuid.UUID
	actType        domain.ActionType
	idempotencyKey string
	rewindErr      error
	actErr         error
}

func (f *fakeDiscover) Discover(_ context.Context, _ uuid.UUID, filters domain.DiscoverFilters) (*domain.DiscoverResult, error) {
	f.filters = filters
	return &domain.DiscoverResult{
		Users: []domain.PublicUser{{ID: "c1", Username: "alice"}},
		Meta:  domain.DiscoverMeta{Page: 1},
	}, nil
}

func (f *fakeDiscover) Act(_ context.Context, _, targetID uuid.UUID, actionType domain.ActionType, key string) (*domain.ActionResult, error) {
	f.actTarget, f.actType, f.idempotencyKey = targetID, actionType, key
	if f.actErr != nil {
		return nil, f.actErr
	}
	return &domain.ActionResult{TargetID: targetID}, nil
}

func (f *fakeDiscover) Rewind(context.Context, uuid.UUID) (*domain.RewindResult, error) {
	if f.rewindErr != nil {
		return nil, f.rewindErr
	}
	return &domain.RewindResult{OK: true}, nil
}

func (f *fakeDiscover) LikedYou(context.Context, uuid.UUID, int) ([]domain.PublicUser, error) {
	return []domain.PublicUser{{ID: "fan", Username: "bob"}}, nil
}

func newTestRouter(t *testing.T, uc *fakeDiscover) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.RegisteredClaims{Subject: uuid.NewString()}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	r := gin.New()
	auth := middlewares.Auth(middlewares.AuthConfig{JWTSecret: testSecret}, log)
	New(uc, auth, nil, nil, log).RegisterRoutes(r)
	return r, "Bearer " + token
}

func serve(r *gin.Engine, method, target, authHeader string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestList_BareArrayAndEnvelope(t *testing.T) {
	uc := &fakeDiscover{}
	r, bearer := newTestRouter(t, uc)

	for _, path := range []string{"/discover", "/api/discover"} {
		w := serve(r, http.MethodGet, path+"?minAge=25&goals=marriage&mustHavePhoto=1", bearer, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		var users []domain.PublicUser
		if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil || len(users) != 1 {
			t.Fatalf("%s: expected bare array, got %s", path, w.Body.String())
		}
	}
	if uc.filters.MinAge == nil || *uc.filters.MinAge != 25 || uc.filters.Goal != "marriage" {
		t.Fatalf("filters not parsed: %+v", uc.filters)
	}
	if uc.filters.MustHavePhoto == nil || !*uc.filters.MustHavePhoto || uc.filters.NoDrugs != nil {
		t.Fatalf("dealbreaker overrides not parsed: %+v", uc.filters)
	}

	w := serve(r, http.MethodGet, "/api/discover?withMeta=true", bearer, nil)
	var envelope struct {
		Users []domain.PublicUser  `json:"users"`
		Meta  *domain.DiscoverMeta `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil || envelope.Meta == nil || len(envelope.Users) != 1 {
		t.Fatalf("expected envelope with meta, got %s", w.Body.String())
	}
}

func TestList_Errors(t *testing.T) {
	r, bearer := newTestRouter(t, &fakeDiscover{})

	cases := []struct {
		name       string
		target     string
		auth       string
		wantStatus int
	}{
		{"no token", "/api/discover", "", http.StatusUnauthorized},
		{"non numeric age", "/api/discover?minAge=abc", bearer, http.StatusBadRequest},
		{"non numeric distance", "/api/discover?distanceKm=far", bearer, http.StatusBadRequest},
		{"NaN distance", "/api/discover?distanceKm=NaN", bearer, http.StatusBadRequest},
		{"infinite distance", "/api/discover?distanceKm=%2BInf", bearer, http.StatusBadRequest},
		{"negative infinite distance", "/api/discover?distanceKm=-Inf", bearer, http.StatusBadRequest},
		{"huge page is passed through", "/api/discover?page=9223372036854775807", bearer, http.StatusOK},
		{"empty value ignored", "/api/discover?minAge=", bearer, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tc.target, tc.auth, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestAct(t *testing.T) {
	uc := &fakeDiscover{}
	r, bearer := newTestRouter(t, uc)
	target := uuid.New()

	w := serve(r, http.MethodPost, "/api/discover/"+target.String()+"/SuperLike", bearer,
		http.Header{"Idempotency-Key": []string{"k-1"}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if uc.actTarget != target || uc.actType != domain.ActionSuperlike || uc.idempotencyKey != "k-1" {
		t.Fatalf("unexpected call %s %s %q", uc.actTarget, uc.actType, uc.idempotencyKey)
	}

	cases := []struct {
		name       string
		path       string
		actErr     error
		wantStatus int
	}{
		{"bad action type", "/api/discover/" + target.String() + "/wink", nil, http.StatusBadRequest},
		{"bad target id", "/api/discover/nobody/like", nil, http.StatusBadRequest},
		{"quota exceeded", "/api/discover/" + target.String() + "/superlike",
			&domain.QuotaExceededError{Limit: 5, Used: 5, WeekKey: "2025-W10"}, http.StatusTooManyRequests},
		{"unknown target", "/api/discover/" + target.String() + "/like",
			fmt.Errorf("%w: target", domain.ErrNotFound), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc.actErr = tc.actErr
			w := serve(r, http.MethodPost, tc.path, bearer, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRewind(t *testing.T) {
	uc := &fakeDiscover{}
	r, bearer := newTestRouter(t, uc)

	if w := serve(r, http.MethodPost, "/api/discover/rewind", bearer, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	uc.rewindErr = fmt.Errorf("%w: nothing to rewind", domain.ErrNotFound)
	w := serve(r, http.MethodPost, "/api/discover/rewind", bearer, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] != "nothing to rewind" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	uc.rewindErr = fmt.Errorf("%w: rewind", domain.ErrFeatureLocked)
	if w := serve(r, http.MethodPost, "/api/discover/rewind", bearer, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestLikedYou(t *testing.T) {
	r, bearer := newTestRouter(t, &fakeDiscover{})

	w := serve(r, http.MethodGet, "/api/discover/liked-you?limit=10", bearer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Users []domain.PublicUser `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || len(body.Users) != 1 || body.Users[0].ID != "fan" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	if w := serve(r, http.MethodGet, "/api/discover/liked-you?limit=ten", bearer, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
