package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouterSmoke(t *testing.T) {
	router := NewRouter(Config{
		CSRFEnforced:        false,
		AuthRateLimitPerMin: 60,
	}, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{name: "healthz", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK},
		{name: "auth_me_unauthorized", method: http.MethodGet, target: "/api/v1/auth/me", wantStatus: http.StatusUnauthorized},
		{name: "login_invalid_body", method: http.MethodPost, target: "/api/v1/auth/login", wantStatus: http.StatusBadRequest},
		{name: "answers_unauthorized", method: http.MethodPost, target: "/api/v1/answers", wantStatus: http.StatusUnauthorized},
		{name: "top_users_unauthorized", method: http.MethodGet, target: "/api/v1/courses/1/top-users", wantStatus: http.StatusUnauthorized},
		{name: "unknown_route", method: http.MethodGet, target: "/api/v1/nope", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("%s %s: got status %d, want %d", tc.method, tc.target, w.Code, tc.wantStatus)
			}
		})
	}
}

func TestRouterCSRFEnforcedBlocksWrites(t *testing.T) {
	router := NewRouter(Config{
		CSRFEnforced:        true,
		AuthRateLimitPerMin: 60,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", w.Code)
	}
}
