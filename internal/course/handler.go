package course

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

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

type courseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	File        string `json:"file"`
	IsPublic    bool   `json:"is_public"`
}

type sectionRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SeqNo        int    `json:"seq_no"`
	VideoLink    string `json:"video_link"`
	TotalMinutes int    `json:"total_minutes"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	in, ok := decodeCourseRequest(w, r)
	if !ok {
		return
	}

	c, err := h.svc.CreateCourse(r.Context(), user.ID, in)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "title is required"})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: c})
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	id, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}
	in, ok := decodeCourseRequest(w, r)
	if !ok {
		return
	}

	c, err := h.svc.UpdateCourse(r.Context(), user.ID, id, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "title is required"})
		case errors.Is(err, ErrCourseNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: c})
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	id, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}

	if err := h.svc.DeleteCourse(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}

	c, err := h.svc.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: c})
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	var (
		items []Course
		err   error
	)
	if user.Role == auth.RoleModerator && r.URL.Query().Get("mine") == "1" {
		items, err = h.svc.ListCoursesByCreator(r.Context(), user.ID)
	} else {
		items, err = h.svc.ListPublicCourses(r.Context())
	}
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	courseID, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}

	var req sectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	sec, err := h.svc.CreateSection(r.Context(), user.ID, courseID, SectionInput{
		Name:         req.Name,
		Description:  req.Description,
		SeqNo:        req.SeqNo,
		VideoLink:    req.VideoLink,
		TotalMinutes: req.TotalMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "name is required"})
		case errors.Is(err, ErrCourseNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: sec})
}

func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	id, ok := pathInt64(w, r, "sectionID")
	if !ok {
		return
	}

	var req sectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	sec, err := h.svc.UpdateSection(r.Context(), user.ID, id, SectionInput{
		Name:         req.Name,
		Description:  req.Description,
		SeqNo:        req.SeqNo,
		VideoLink:    req.VideoLink,
		TotalMinutes: req.TotalMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "name is required"})
		case errors.Is(err, ErrSectionNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: sec})
}

func (h *Handler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	id, ok := pathInt64(w, r, "sectionID")
	if !ok {
		return
	}

	if err := h.svc.DeleteSection(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, ErrSectionNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}

	items, err := h.svc.ListSectionsByCourse(r.Context(), courseID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	courseID, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}

	ins, err := h.svc.Enroll(r.Context(), user.ID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, ErrCourseNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		case errors.Is(err, ErrAlreadyEnrolled):
			writeJSON(w, r, http.StatusConflict, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: ins})
}

func (h *Handler) ListMyCourses(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	items, err := h.svc.ListEnrolledCourses(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) ListEnrolledUsers(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathInt64(w, r, "courseID")
	if !ok {
		return
	}

	items, err := h.svc.ListEnrolledUsers(r.Context(), courseID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func decodeCourseRequest(w http.ResponseWriter, r *http.Request) (CourseInput, bool) {
	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return CourseInput{}, false
	}

	start, ok := parseDate(w, r, req.StartDate)
	if !ok {
		return CourseInput{}, false
	}
	end, ok := parseDate(w, r, req.EndDate)
	if !ok {
		return CourseInput{}, false
	}

	return CourseInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		StartDate:   start,
		EndDate:     end,
		File:        req.File,
		IsPublic:    req.IsPublic,
	}, true
}

func parseDate(w http.ResponseWriter, r *http.Request, v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "dates must use YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
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
