package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"classplay/internal/app/apiresp"
	"classplay/internal/auth"

	"github.com/go-chi/chi/v5"
)

type answerService interface {
	SaveAnswers(ctx context.Context, subs []Submission) ([]SubmissionResult, error)
	GetUserAnswers(ctx context.Context, userID int64) ([]Answer, error)
	GetUserAnswersBySection(ctx context.Context, userID, sectionID int64) ([]Answer, error)
	SectionScore(ctx context.Context, userID, sectionID int64) (*SectionSummary, error)
	TopUsersByCourse(ctx context.Context, courseID int64) ([]RankedUser, error)
}

type Handler struct {
	svc answerService
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type saveAnswersRequest struct {
	Answers []Submission `json:"answers"`
}

func NewHandler(svc answerService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return
	}

	var req saveAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	for i := range req.Answers {
		if req.Answers[i].UserID == 0 {
			req.Answers[i].UserID = user.ID
		}
		if user.Role != auth.RoleModerator && req.Answers[i].UserID != user.ID {
			writeJSON(w, r, http.StatusForbidden, response{OK: false, Error: "cannot submit answers for another user"})
			return
		}
	}

	results, err := h.svc.SaveAnswers(r.Context(), req.Answers)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "answers are required and every item needs question_id and option_id"})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}

	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: results})
}

func (h *Handler) GetUserAnswers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeUserParam(w, r)
	if !ok {
		return
	}

	answers, err := h.svc.GetUserAnswers(r.Context(), userID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: answers})
}

func (h *Handler) GetUserAnswersBySection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeUserParam(w, r)
	if !ok {
		return
	}
	sectionID, ok := pathInt64(w, r, "sectionID")
	if !ok {
		return
	}

	answers, err := h.svc.GetUserAnswersBySection(r.Context(), userID, sectionID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: answers})
}

func (h *Handler) SectionScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeUserParam(w, r)
	if !ok {
		return
	}
	sectionID, ok := pathInt64(w, r, "sectionID")
	if !ok {
		return
	}

	summary, err := h.svc.SectionScore(r.Context(), userID, sectionID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: summary})
}

func (h *Handler) TopUsers(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}

	users, err := h.svc.TopUsersByCourse(r.Context(), courseID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: users})
}

// authorizeUserParam resolves the {userID} path parameter and enforces
// that students only read their own data.
func (h *Handler) authorizeUserParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return 0, false
	}

	userID, ok := pathInt64(w, r, "userID")
	if !ok {
		return 0, false
	}
	if user.Role != auth.RoleModerator && userID != user.ID {
		writeJSON(w, r, http.StatusForbidden, response{OK: false, Error: "forbidden"})
		return 0, false
	}
	return userID, true
}

func (h *Handler) writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error()})
	case errors.Is(err, ErrNoAnswers),
		errors.Is(err, ErrSectionNotFound),
		errors.Is(err, ErrSectionEmpty),
		errors.Is(err, ErrCourseNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
	}
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
