package course

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classplay/internal/auth"

	"github.com/go-chi/chi/v5"
)

func withUser(r *http.Request, u *auth.User) *http.Request {
	return r.WithContext(auth.ContextWithUser(r.Context(), u))
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestCreateCourseRejectsBadDate(t *testing.T) {
	h := NewHandler(NewService(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses",
		strings.NewReader(`{"title":"Intro","start_date":"31-12-2025"}`))
	req = withUser(req, &auth.User{ID: 1, Role: auth.RoleModerator})
	rec := httptest.NewRecorder()

	h.CreateCourse(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, rec)
	errObj, _ := body["error"].(map[string]interface{})
	if msg, _ := errObj["message"].(string); !strings.Contains(msg, "YYYY-MM-DD") {
		t.Fatalf("error message = %q, want date format hint", msg)
	}
}

func TestCreateCourseRejectsInvalidBody(t *testing.T) {
	h := NewHandler(NewService(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", strings.NewReader(`{`))
	req = withUser(req, &auth.User{ID: 1, Role: auth.RoleModerator})
	rec := httptest.NewRecorder()

	h.CreateCourse(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetCourseRejectsNonNumericID(t *testing.T) {
	h := NewHandler(NewService(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/abc", nil)
	req = withChiParam(req, "courseID", "abc")
	rec := httptest.NewRecorder()

	h.GetCourse(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestEnrollRequiresUser(t *testing.T) {
	h := NewHandler(NewService(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/1/inscriptions", nil)
	req = withChiParam(req, "courseID", "1")
	rec := httptest.NewRecorder()

	h.Enroll(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
