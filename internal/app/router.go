package app

import (
	"database/sql"
	"net/http"
	"time"

	"classplay/internal/answer"
	"classplay/internal/app/observability"
	"classplay/internal/auth"
	"classplay/internal/course"
	"classplay/internal/question"
	"classplay/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)
	r.Use(CORSMiddleware(cfg.CORSAllowedOrigins))

	authSvc := auth.NewService(db, auth.ServiceConfig{
		SessionTTL:        time.Duration(cfg.SessionTTLHours) * time.Hour,
		BcryptCost:        cfg.BcryptCost,
		LoginMaxFailures:  cfg.LoginMaxFailures,
		LoginLockDuration: time.Duration(cfg.LoginLockMins) * time.Minute,
	})
	authHandler := auth.NewHandler(authSvc)

	courseSvc := course.NewService(db)
	courseHandler := course.NewHandler(courseSvc)

	questionSvc := question.NewService(db)
	questionHandler := question.NewHandler(questionSvc)

	answerSvc := answer.NewService(db, cfg.AnswerBatchWorkers)
	answerHandler := answer.NewHandler(answerSvc)

	reportSvc := report.NewService(db, answerSvc)
	reportHandler := report.NewHandler(reportSvc)

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(CSRFMiddleware(cfg.CSRFEnforced))

		api.Group(func(public chi.Router) {
			public.Use(RateLimitMiddleware(authLimiter))
			public.Post("/auth/register", authHandler.Register)
			public.Post("/auth/login", authHandler.Login)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Get("/courses", courseHandler.ListCourses)
			secure.Get("/courses/{courseID}", courseHandler.GetCourse)
			secure.Get("/courses/{courseID}/sections", courseHandler.ListSections)
			secure.Post("/courses/{courseID}/inscriptions", courseHandler.Enroll)
			secure.Get("/my/courses", courseHandler.ListMyCourses)

			secure.Get("/sections/{sectionID}/questions", questionHandler.ListQuestions)

			secure.Post("/answers", answerHandler.SaveAnswers)
			secure.Get("/users/{userID}/answers", answerHandler.GetUserAnswers)
			secure.Get("/users/{userID}/sections/{sectionID}/answers", answerHandler.GetUserAnswersBySection)
			secure.Get("/users/{userID}/sections/{sectionID}/score", answerHandler.SectionScore)
			secure.Get("/courses/{courseID}/top-users", answerHandler.TopUsers)

			secure.Group(func(mod chi.Router) {
				mod.Use(authHandler.RequireRoles(auth.RoleModerator))
				mod.Post("/courses", courseHandler.CreateCourse)
				mod.Put("/courses/{courseID}", courseHandler.UpdateCourse)
				mod.Delete("/courses/{courseID}", courseHandler.DeleteCourse)
				mod.Get("/courses/{courseID}/inscriptions", courseHandler.ListEnrolledUsers)
				mod.Post("/courses/{courseID}/sections", courseHandler.CreateSection)
				mod.Put("/sections/{sectionID}", courseHandler.UpdateSection)
				mod.Delete("/sections/{sectionID}", courseHandler.DeleteSection)

				mod.Post("/sections/{sectionID}/questions", questionHandler.CreateQuestion)
				mod.Put("/questions/{questionID}", questionHandler.UpdateQuestion)
				mod.Delete("/questions/{questionID}", questionHandler.DeleteQuestion)
				mod.Post("/questions/{questionID}/options", questionHandler.CreateOption)
				mod.Put("/options/{optionID}", questionHandler.UpdateOption)
				mod.Delete("/options/{optionID}", questionHandler.DeleteOption)

				mod.Get("/courses/{courseID}/top-users/export", reportHandler.ExportCourseLeaderboard)
			})
		})
	})

	return r
}
