package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrCourseNotFound  = errors.New("course not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
)

type Service struct {
	db *sql.DB
}

type Course struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	File        string     `json:"file,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	IsPublic    bool       `json:"is_public"`
}

type Section struct {
	ID           int64  `json:"id"`
	CourseID     int64  `json:"course_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	SeqNo        int    `json:"seq_no"`
	VideoLink    string `json:"video_link,omitempty"`
	TotalMinutes int    `json:"total_minutes,omitempty"`
}

type Inscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CourseInput struct {
	Title       string
	Description string
	Category    string
	StartDate   *time.Time
	EndDate     *time.Time
	File        string
	IsPublic    bool
}

type SectionInput struct {
	Name         string
	Description  string
	SeqNo        int
	VideoLink    string
	TotalMinutes int
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateCourse(ctx context.Context, actorID int64, in CourseInput) (*Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	var c Course
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO courses (title, description, category, start_date, end_date, file, created_by, is_public)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, $5, NULLIF($6,''), $7, $8)
		RETURNING id, title, COALESCE(description,''), COALESCE(category,''), start_date, end_date, COALESCE(file,''), created_by, is_public
	`, title, strings.TrimSpace(in.Description), strings.TrimSpace(in.Category), in.StartDate, in.EndDate,
		strings.TrimSpace(in.File), actorID, in.IsPublic).
		Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.StartDate, &c.EndDate, &c.File, &c.CreatedBy, &c.IsPublic)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "course_created", "course", c.ID, map[string]any{
		"title":     c.Title,
		"is_public": c.IsPublic,
	})
	return &c, nil
}

func (s *Service) UpdateCourse(ctx context.Context, actorID, id int64, in CourseInput) (*Course, error) {
	title := strings.TrimSpace(in.Title)
	if id <= 0 || title == "" {
		return nil, ErrInvalidInput
	}

	var c Course
	err := s.db.QueryRowContext(ctx, `
		UPDATE courses
		SET title = $2,
			description = NULLIF($3,''),
			category = NULLIF($4,''),
			start_date = $5,
			end_date = $6,
			file = NULLIF($7,''),
			is_public = $8
		WHERE id = $1
		RETURNING id, title, COALESCE(description,''), COALESCE(category,''), start_date, end_date, COALESCE(file,''), created_by, is_public
	`, id, title, strings.TrimSpace(in.Description), strings.TrimSpace(in.Category), in.StartDate, in.EndDate,
		strings.TrimSpace(in.File), in.IsPublic).
		Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.StartDate, &c.EndDate, &c.File, &c.CreatedBy, &c.IsPublic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("update course: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "course_updated", "course", c.ID, map[string]any{
		"title": c.Title,
	})
	return &c, nil
}

func (s *Service) DeleteCourse(ctx context.Context, actorID, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course rows: %w", err)
	}
	if n == 0 {
		return ErrCourseNotFound
	}

	_ = s.writeAudit(ctx, actorID, "course_deleted", "course", id, nil)
	return nil
}

func (s *Service) GetCourse(ctx context.Context, id int64) (*Course, error) {
	var c Course
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(description,''), COALESCE(category,''), start_date, end_date, COALESCE(file,''), created_by, is_public
		FROM courses
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.StartDate, &c.EndDate, &c.File, &c.CreatedBy, &c.IsPublic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &c, nil
}

func (s *Service) ListPublicCourses(ctx context.Context) ([]Course, error) {
	return s.listCourses(ctx, `WHERE is_public = TRUE`, nil)
}

func (s *Service) ListCoursesByCreator(ctx context.Context, creatorID int64) ([]Course, error) {
	return s.listCourses(ctx, `WHERE created_by = $1`, []any{creatorID})
}

func (s *Service) listCourses(ctx context.Context, where string, args []any) ([]Course, error) {
	query := `
		SELECT id, title, COALESCE(description,''), COALESCE(category,''), start_date, end_date, COALESCE(file,''), created_by, is_public
		FROM courses
	` + where + ` ORDER BY title ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := make([]Course, 0)
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.StartDate, &c.EndDate, &c.File, &c.CreatedBy, &c.IsPublic); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return out, nil
}

func (s *Service) CreateSection(ctx context.Context, actorID, courseID int64, in SectionInput) (*Section, error) {
	name := strings.TrimSpace(in.Name)
	if courseID <= 0 || name == "" || in.SeqNo < 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	var sec Section
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sections (course_id, name, description, seq_no, video_link, total_minutes)
		VALUES ($1, $2, NULLIF($3,''), $4, NULLIF($5,''), $6)
		RETURNING id, course_id, name, COALESCE(description,''), seq_no, COALESCE(video_link,''), COALESCE(total_minutes, 0)
	`, courseID, name, strings.TrimSpace(in.Description), in.SeqNo, strings.TrimSpace(in.VideoLink), in.TotalMinutes).
		Scan(&sec.ID, &sec.CourseID, &sec.Name, &sec.Description, &sec.SeqNo, &sec.VideoLink, &sec.TotalMinutes)
	if err != nil {
		return nil, fmt.Errorf("create section: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "section_created", "section", sec.ID, map[string]any{
		"course_id": sec.CourseID,
		"name":      sec.Name,
	})
	return &sec, nil
}

func (s *Service) UpdateSection(ctx context.Context, actorID, id int64, in SectionInput) (*Section, error) {
	name := strings.TrimSpace(in.Name)
	if id <= 0 || name == "" || in.SeqNo < 0 {
		return nil, ErrInvalidInput
	}

	var sec Section
	err := s.db.QueryRowContext(ctx, `
		UPDATE sections
		SET name = $2,
			description = NULLIF($3,''),
			seq_no = $4,
			video_link = NULLIF($5,''),
			total_minutes = $6
		WHERE id = $1
		RETURNING id, course_id, name, COALESCE(description,''), seq_no, COALESCE(video_link,''), COALESCE(total_minutes, 0)
	`, id, name, strings.TrimSpace(in.Description), in.SeqNo, strings.TrimSpace(in.VideoLink), in.TotalMinutes).
		Scan(&sec.ID, &sec.CourseID, &sec.Name, &sec.Description, &sec.SeqNo, &sec.VideoLink, &sec.TotalMinutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSectionNotFound
		}
		return nil, fmt.Errorf("update section: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "section_updated", "section", sec.ID, map[string]any{
		"name": sec.Name,
	})
	return &sec, nil
}

func (s *Service) DeleteSection(ctx context.Context, actorID, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete section rows: %w", err)
	}
	if n == 0 {
		return ErrSectionNotFound
	}

	_ = s.writeAudit(ctx, actorID, "section_deleted", "section", id, nil)
	return nil
}

func (s *Service) ListSectionsByCourse(ctx context.Context, courseID int64) ([]Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_id, name, COALESCE(description,''), seq_no, COALESCE(video_link,''), COALESCE(total_minutes, 0)
		FROM sections
		WHERE course_id = $1
		ORDER BY seq_no ASC, id ASC
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	out := make([]Section, 0)
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.CourseID, &sec.Name, &sec.Description, &sec.SeqNo, &sec.VideoLink, &sec.TotalMinutes); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return out, nil
}

// Enroll registers a user in a course. Duplicate enrollments hit the
// unique index and are reported as ErrAlreadyEnrolled.
func (s *Service) Enroll(ctx context.Context, userID, courseID int64) (*Inscription, error) {
	if userID <= 0 || courseID <= 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	var ins Inscription
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inscriptions (user_id, course_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, course_id) DO NOTHING
		RETURNING id, user_id, course_id, created_at
	`, userID, courseID).Scan(&ins.ID, &ins.UserID, &ins.CourseID, &ins.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("enroll: %w", err)
	}
	return &ins, nil
}

func (s *Service) ListEnrolledCourses(ctx context.Context, userID int64) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, COALESCE(c.description,''), COALESCE(c.category,''), c.start_date, c.end_date, COALESCE(c.file,''), c.created_by, c.is_public
		FROM inscriptions i
		JOIN courses c ON c.id = i.course_id
		WHERE i.user_id = $1
		ORDER BY i.created_at DESC, c.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	defer rows.Close()

	out := make([]Course, 0)
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.StartDate, &c.EndDate, &c.File, &c.CreatedBy, &c.IsPublic); err != nil {
			return nil, fmt.Errorf("scan enrolled course: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolled courses: %w", err)
	}
	return out, nil
}

func (s *Service) ListEnrolledUsers(ctx context.Context, courseID int64) ([]Inscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, course_id, created_at
		FROM inscriptions
		WHERE course_id = $1
		ORDER BY created_at ASC, id ASC
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list inscriptions: %w", err)
	}
	defer rows.Close()

	out := make([]Inscription, 0)
	for rows.Next() {
		var ins Inscription
		if err := rows.Scan(&ins.ID, &ins.UserID, &ins.CourseID, &ins.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inscription: %w", err)
		}
		out = append(out, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inscriptions: %w", err)
	}
	return out, nil
}

func (s *Service) writeAudit(ctx context.Context, userID int64, action, entityType string, entityID int64, payload map[string]any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, now())
	`, userID, action, entityType, fmt.Sprintf("%d", entityID), string(b))
	return err
}
