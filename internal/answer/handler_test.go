package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"classplay/internal/auth"

	"github.com/go-chi/chi/v5"
)

type mockAnswerService struct {
	saveAnswersFn             func(ctx context.Context, subs []Submission) ([]SubmissionResult, error)
	getUserAnswersFn          func(ctx context.Context, userID int64) ([]Answer, error)
	getUserAnswersBySectionFn func(ctx context.Context, userID, sectionID int64) ([]Answer, error)
	sectionScoreFn            func(ctx context.Context, userID, sectionID int64) (*SectionSummary, error)
	topUsersByCourseFn        func(ctx context.Context, courseID int64) ([]RankedUser, error)
}

func (m *mockAnswerService) SaveAnswers(ctx context.Context, subs []Submission) ([]SubmissionResult, error) {
	if m.saveAnswersFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.saveAnswersFn(ctx, subs)
}

func (m *mockAnswerService) GetUserAnswers(ctx context.Context, userID int64) ([]Answer, error) {
	if m.getUserAnswersFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getUserAnswersFn(ctx, userID)
}

func (m *mockAnswerService) GetUserAnswersBySection(ctx context.Context, userID, sectionID int64) ([]Answer, error) {
	if m.getUserAnswersBySectionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getUserAnswersBySectionFn(ctx, userID, sectionID)
}

func (m *mockAnswerService) SectionScore(ctx context.Context, userID, sectionID int64) (*SectionSummary, error) {
	if m.sectionScoreFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.sectionScoreFn(ctx, userID, sectionID)
}

func (m *mockAnswerService) TopUsersByCourse(ctx context.Context, courseID int64) ([]RankedUser, error) {
	if m.topUsersByCourseFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.topUsersByCourseFn(ctx, courseID)
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withUser(r *http.Request, u *auth.User) *http.Request {
	return r.WithContext(auth.ContextWithUser(r.Context(), u))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestSaveAnswersFillsSessionUserID(t *testing.T) {
	var got []Submission
	h := NewHandler(&mockAnswerService{
		saveAnswersFn: func(ctx context.Context, subs []Submission) ([]SubmissionResult, error) {
			got = subs
			out := make([]SubmissionResult, len(subs))
			for i := range subs {
				out[i] = SubmissionResult{Answer: &Answer{ID: int64(i + 1), UserID: subs[i].UserID, QuestionID: subs[i].QuestionID, OptionID: subs[i].OptionID}}
			}
			return out, nil
		},
	})

	body := bytes.NewBufferString(`{"answers":[{"question_id":10,"option_id":100},{"question_id":11,"option_id":110}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", body)
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.SaveAnswers(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 submissions passed through, got %d", len(got))
	}
	for _, sub := range got {
		if sub.UserID != 7 {
			t.Fatalf("expected session user id to be filled in, got %+v", sub)
		}
	}
}

func TestSaveAnswersForbiddenForOtherUser(t *testing.T) {
	called := false
	h := NewHandler(&mockAnswerService{
		saveAnswersFn: func(ctx context.Context, subs []Submission) ([]SubmissionResult, error) {
			called = true
			return nil, nil
		},
	})

	body := bytes.NewBufferString(`{"answers":[{"user_id":99,"question_id":10,"option_id":100}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", body)
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.SaveAnswers(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if called {
		t.Fatalf("service should not be called when forbidden")
	}
}

func TestSaveAnswersModeratorMaySubmitForOthers(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		saveAnswersFn: func(ctx context.Context, subs []Submission) ([]SubmissionResult, error) {
			if subs[0].UserID != 99 {
				t.Fatalf("expected target user preserved, got %+v", subs[0])
			}
			return []SubmissionResult{{Answer: &Answer{ID: 1, UserID: 99, QuestionID: 10, OptionID: 100}}}, nil
		},
	})

	body := bytes.NewBufferString(`{"answers":[{"user_id":99,"question_id":10,"option_id":100}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", body)
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleModerator})
	w := httptest.NewRecorder()

	h.SaveAnswers(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestSaveAnswersEmptyBatchRejected(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		saveAnswersFn: func(ctx context.Context, subs []Submission) ([]SubmissionResult, error) {
			return nil, ErrInvalidInput
		},
	})

	body := bytes.NewBufferString(`{"answers":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", body)
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.SaveAnswers(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := decodeBody(t, w)
	errObj, ok := resp["error"].(map[string]interface{})
	if !ok || errObj["message"] == "" {
		t.Fatalf("expected error.message in body, got %s", w.Body.String())
	}
}

func TestSaveAnswersReportsPerItemErrors(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		saveAnswersFn: func(ctx context.Context, subs []Submission) ([]SubmissionResult, error) {
			return []SubmissionResult{
				{Answer: &Answer{ID: 1, UserID: 7, QuestionID: 10, OptionID: 100}},
				{Error: ErrOptionNotInQuestion.Error()},
			}, nil
		},
	})

	body := bytes.NewBufferString(`{"answers":[{"question_id":10,"option_id":100},{"question_id":11,"option_id":999}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", body)
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.SaveAnswers(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for mixed batch, got %d", w.Code)
	}
	resp := decodeBody(t, w)
	data, ok := resp["data"].([]interface{})
	if !ok || len(data) != 2 {
		t.Fatalf("expected 2 results, got %s", w.Body.String())
	}
	second, _ := data[1].(map[string]interface{})
	if second["error"] != ErrOptionNotInQuestion.Error() {
		t.Fatalf("expected per-item error on second result, got %v", second)
	}
}

func TestGetUserAnswersForbiddenForNonOwner(t *testing.T) {
	called := false
	h := NewHandler(&mockAnswerService{
		getUserAnswersFn: func(ctx context.Context, userID int64) ([]Answer, error) {
			called = true
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/99/answers", nil)
	req = withChiParam(req, "userID", "99")
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.GetUserAnswers(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if called {
		t.Fatalf("service should not be called when forbidden")
	}
}

func TestGetUserAnswersNotFoundWhenEmpty(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		getUserAnswersFn: func(ctx context.Context, userID int64) ([]Answer, error) {
			return nil, ErrNoAnswers
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/7/answers", nil)
	req = withChiParam(req, "userID", "7")
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.GetUserAnswers(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSectionScoreModeratorMayReadAnyUser(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		sectionScoreFn: func(ctx context.Context, userID, sectionID int64) (*SectionSummary, error) {
			if userID != 99 || sectionID != 3 {
				t.Fatalf("unexpected args user=%d section=%d", userID, sectionID)
			}
			return &SectionSummary{TotalQuestions: 3, TotalScore: 10, CorrectAnswers: 2, IncorrectAnswers: 1, ObtainedScore: 7}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/99/sections/3/score", nil)
	req = withChiParam(req, "userID", "99")
	req = withChiParam(req, "sectionID", "3")
	req = withUser(req, &auth.User{ID: 1, Role: auth.RoleModerator})
	w := httptest.NewRecorder()

	h.SectionScore(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	data, _ := resp["data"].(map[string]interface{})
	if data["obtained_score"] != float64(7) {
		t.Fatalf("expected obtained_score=7, got %v", data)
	}
}

func TestSectionScoreEmptySectionIs404(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		sectionScoreFn: func(ctx context.Context, userID, sectionID int64) (*SectionSummary, error) {
			return nil, ErrSectionEmpty
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/7/sections/3/score", nil)
	req = withChiParam(req, "userID", "7")
	req = withChiParam(req, "sectionID", "3")
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.SectionScore(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTopUsersNotFoundWithoutAnswers(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		topUsersByCourseFn: func(ctx context.Context, courseID int64) ([]RankedUser, error) {
			return nil, ErrNoAnswers
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/4/top-users", nil)
	req = withChiParam(req, "courseID", "4")
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.TopUsers(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	resp := decodeBody(t, w)
	errObj, _ := resp["error"].(map[string]interface{})
	if errObj["message"] != ErrNoAnswers.Error() {
		t.Fatalf("expected error.message %q, got %s", ErrNoAnswers.Error(), w.Body.String())
	}
}

func TestTopUsersReturnsRankedList(t *testing.T) {
	h := NewHandler(&mockAnswerService{
		topUsersByCourseFn: func(ctx context.Context, courseID int64) ([]RankedUser, error) {
			return []RankedUser{
				{UserID: 2, Username: "bo", TotalScore: 12},
				{UserID: 5, Username: "eva", TotalScore: 7},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/4/top-users", nil)
	req = withChiParam(req, "courseID", "4")
	req = withUser(req, &auth.User{ID: 7, Role: auth.RoleStudent})
	w := httptest.NewRecorder()

	h.TopUsers(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeBody(t, w)
	data, ok := resp["data"].([]interface{})
	if !ok || len(data) != 2 {
		t.Fatalf("expected 2 ranked users, got %s", w.Body.String())
	}
	first, _ := data[0].(map[string]interface{})
	if first["username"] != "bo" {
		t.Fatalf("expected highest scorer first, got %v", first)
	}
}
