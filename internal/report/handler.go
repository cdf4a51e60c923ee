package report

import (
	"errors"
	"net/http"
	"strconv"

	"classplay/internal/answer"
	"classplay/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ExportCourseLeaderboard(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil || courseID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid courseID")
		return
	}

	file, err := h.svc.CourseLeaderboardXLSX(r.Context(), courseID)
	if err != nil {
		switch {
		case errors.Is(err, answer.ErrCourseNotFound), errors.Is(err, answer.ErrNoAnswers):
			apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
		case errors.Is(err, answer.ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
