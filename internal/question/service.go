package question

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSectionNotFound  = errors.New("section not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
)

const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
)

type Service struct {
	db *sql.DB
}

type Question struct {
	ID           int64    `json:"id"`
	SectionID    int64    `json:"section_id"`
	QuestionType string   `json:"question_type"`
	Statement    string   `json:"statement"`
	Score        int      `json:"score"`
	ImageURL     string   `json:"image_url,omitempty"`
	VideoURL     string   `json:"video_url,omitempty"`
	Options      []Option `json:"options,omitempty"`
}

type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type QuestionInput struct {
	QuestionType string
	Statement    string
	Score        int
	ImageURL     string
	VideoURL     string
}

type OptionInput struct {
	Text      string
	IsCorrect bool
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func validateQuestionInput(in QuestionInput) error {
	if strings.TrimSpace(in.Statement) == "" {
		return ErrInvalidInput
	}
	if in.Score < 0 {
		return ErrInvalidInput
	}
	switch strings.TrimSpace(in.QuestionType) {
	case TypeMultipleChoice, TypeTrueFalse:
		return nil
	default:
		return ErrInvalidInput
	}
}

func (s *Service) CreateQuestion(ctx context.Context, sectionID int64, in QuestionInput) (*Question, error) {
	if sectionID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateQuestionInput(in); err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sections WHERE id = $1)`, sectionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check section: %w", err)
	}
	if !exists {
		return nil, ErrSectionNotFound
	}

	var q Question
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO questions (section_id, question_type, statement, score, image_url, video_url)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''))
		RETURNING id, section_id, question_type, statement, score, COALESCE(image_url,''), COALESCE(video_url,'')
	`, sectionID, strings.TrimSpace(in.QuestionType), strings.TrimSpace(in.Statement), in.Score,
		strings.TrimSpace(in.ImageURL), strings.TrimSpace(in.VideoURL)).
		Scan(&q.ID, &q.SectionID, &q.QuestionType, &q.Statement, &q.Score, &q.ImageURL, &q.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return &q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, id int64, in QuestionInput) (*Question, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateQuestionInput(in); err != nil {
		return nil, err
	}

	var q Question
	err := s.db.QueryRowContext(ctx, `
		UPDATE questions
		SET question_type = $2,
			statement = $3,
			score = $4,
			image_url = NULLIF($5,''),
			video_url = NULLIF($6,'')
		WHERE id = $1
		RETURNING id, section_id, question_type, statement, score, COALESCE(image_url,''), COALESCE(video_url,'')
	`, id, strings.TrimSpace(in.QuestionType), strings.TrimSpace(in.Statement), in.Score,
		strings.TrimSpace(in.ImageURL), strings.TrimSpace(in.VideoURL)).
		Scan(&q.ID, &q.SectionID, &q.QuestionType, &q.Statement, &q.Score, &q.ImageURL, &q.VideoURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	return &q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete question rows: %w", err)
	}
	if n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// ListQuestionsBySection returns the section's questions with their options.
// When includeCorrect is false the is_correct flag is zeroed, for the
// student-facing quiz view.
func (s *Service) ListQuestionsBySection(ctx context.Context, sectionID int64, includeCorrect bool) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, section_id, question_type, statement, score, COALESCE(image_url,''), COALESCE(video_url,'')
		FROM questions
		WHERE section_id = $1
		ORDER BY id ASC
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := make([]Question, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.SectionID, &q.QuestionType, &q.Statement, &q.Score, &q.ImageURL, &q.VideoURL); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	optRows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.text, o.is_correct
		FROM options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.section_id = $1
		ORDER BY o.id ASC
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var o Option
		if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if !includeCorrect {
			o.IsCorrect = false
		}
		if i, ok := index[o.QuestionID]; ok {
			out[i].Options = append(out[i].Options, o)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}

	return out, nil
}

func (s *Service) CreateOption(ctx context.Context, questionID int64, in OptionInput) (*Option, error) {
	text := strings.TrimSpace(in.Text)
	if questionID <= 0 || text == "" {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM questions WHERE id = $1)`, questionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check question: %w", err)
	}
	if !exists {
		return nil, ErrQuestionNotFound
	}

	var o Option
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO options (question_id, text, is_correct)
		VALUES ($1, $2, $3)
		RETURNING id, question_id, text, is_correct
	`, questionID, text, in.IsCorrect).Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect)
	if err != nil {
		return nil, fmt.Errorf("create option: %w", err)
	}
	return &o, nil
}

func (s *Service) UpdateOption(ctx context.Context, id int64, in OptionInput) (*Option, error) {
	text := strings.TrimSpace(in.Text)
	if id <= 0 || text == "" {
		return nil, ErrInvalidInput
	}

	var o Option
	err := s.db.QueryRowContext(ctx, `
		UPDATE options
		SET text = $2,
			is_correct = $3
		WHERE id = $1
		RETURNING id, question_id, text, is_correct
	`, id, text, in.IsCorrect).Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOptionNotFound
		}
		return nil, fmt.Errorf("update option: %w", err)
	}
	return &o, nil
}

func (s *Service) DeleteOption(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM options WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete option: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete option rows: %w", err)
	}
	if n == 0 {
		return ErrOptionNotFound
	}
	return nil
}
