package question

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"classplay/internal/app/apiresp"
	"classplay/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type questionRequest struct {
	QuestionType string `json:"question_type"`
	Statement    string `json:"statement"`
	Score        int    `json:"score"`
	ImageURL     string `json:"image_url"`
	VideoURL     string `json:"video_url"`
}

type optionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := pathInt64(w, r, "sectionID")
	if !ok {
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	q, err := h.svc.CreateQuestion(r.Context(), sectionID, QuestionInput{
		QuestionType: req.QuestionType,
		Statement:    req.Statement,
		Score:        req.Score,
		ImageURL:     req.ImageURL,
		VideoURL:     req.VideoURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "question_type, statement and a non-negative score are required"})
		case errors.Is(err, ErrSectionNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: q})
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "questionID")
	if !ok {
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	q, err := h.svc.UpdateQuestion(r.Context(), id, QuestionInput{
		QuestionType: req.QuestionType,
		Statement:    req.Statement,
		Score:        req.Score,
		ImageURL:     req.ImageURL,
		VideoURL:     req.VideoURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "question_type, statement and a non-negative score are required"})
		case errors.Is(err, ErrQuestionNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: q})
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "questionID")
	if !ok {
		return
	}

	if err := h.svc.DeleteQuestion(r.Context(), id); err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	sectionID, ok := pathInt64(w, r, "sectionID")
	if !ok {
		return
	}

	items, err := h.svc.ListQuestionsBySection(r.Context(), sectionID, user.Role == auth.RoleModerator)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) CreateOption(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathInt64(w, r, "questionID")
	if !ok {
		return
	}

	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	o, err := h.svc.CreateOption(r.Context(), questionID, OptionInput{Text: req.Text, IsCorrect: req.IsCorrect})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "text is required"})
		case errors.Is(err, ErrQuestionNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: o})
}

func (h *Handler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "optionID")
	if !ok {
		return
	}

	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	o, err := h.svc.UpdateOption(r.Context(), id, OptionInput{Text: req.Text, IsCorrect: req.IsCorrect})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "text is required"})
		case errors.Is(err, ErrOptionNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: o})
}

func (h *Handler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "optionID")
	if !ok {
		return
	}

	if err := h.svc.DeleteOption(r.Context(), id); err != nil {
		if errors.Is(err, ErrOptionNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
