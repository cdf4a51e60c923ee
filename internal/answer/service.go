package answer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoAnswers           = errors.New("no answers found")
	ErrSectionNotFound     = errors.New("section not found")
	ErrSectionEmpty        = errors.New("section has no questions")
	ErrCourseNotFound      = errors.New("course not found")
	ErrOptionNotInQuestion = errors.New("option does not belong to question")
)

type Service struct {
	db           *sql.DB
	batchWorkers int
}

type Answer struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	OptionID   int64     `json:"option_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Submission struct {
	UserID     int64 `json:"user_id"`
	QuestionID int64 `json:"question_id"`
	OptionID   int64 `json:"option_id"`
}

// SubmissionResult carries either the stored answer or the reason this
// item was rejected. One entry per submitted item, in input order.
type SubmissionResult struct {
	Answer *Answer `json:"answer,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func NewService(db *sql.DB, batchWorkers int) *Service {
	if batchWorkers <= 0 {
		batchWorkers = 4
	}
	return &Service{db: db, batchWorkers: batchWorkers}
}

// SaveAnswers validates the whole batch up front, then processes items
// independently: a rejected item never blocks its siblings. Each item is
// an atomic insert-or-replace keyed on (user, question), so replays and
// concurrent submissions for the same key settle on a single row.
func (s *Service) SaveAnswers(ctx context.Context, subs []Submission) ([]SubmissionResult, error) {
	if len(subs) == 0 {
		return nil, ErrInvalidInput
	}
	for _, sub := range subs {
		if sub.UserID <= 0 || sub.QuestionID <= 0 || sub.OptionID <= 0 {
			return nil, ErrInvalidInput
		}
	}

	results := make([]SubmissionResult, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchWorkers)
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			saved, err := s.saveOne(gctx, sub)
			if err != nil {
				if errors.Is(err, ErrOptionNotInQuestion) {
					results[i] = SubmissionResult{Error: err.Error()}
					return nil
				}
				return err
			}
			results[i] = SubmissionResult{Answer: saved}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) saveOne(ctx context.Context, sub Submission) (*Answer, error) {
	var belongs bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM options
			WHERE id = $1 AND question_id = $2
		)
	`, sub.OptionID, sub.QuestionID).Scan(&belongs)
	if err != nil {
		return nil, fmt.Errorf("check option: %w", err)
	}
	if !belongs {
		return nil, ErrOptionNotInQuestion
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_answers (user_id, question_id, option_id, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, question_id)
		DO UPDATE SET option_id = EXCLUDED.option_id
		RETURNING id, user_id, question_id, option_id, created_at
	`, sub.UserID, sub.QuestionID, sub.OptionID)

	var a Answer
	if err := row.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.OptionID, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	return &a, nil
}

func (s *Service) GetUserAnswers(ctx context.Context, userID int64) ([]Answer, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.queryAnswers(ctx, `
		SELECT id, user_id, question_id, option_id, created_at
		FROM user_answers
		WHERE user_id = $1
		ORDER BY id ASC
	`, userID)
}

func (s *Service) GetUserAnswersBySection(ctx context.Context, userID, sectionID int64) ([]Answer, error) {
	if userID <= 0 || sectionID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.queryAnswers(ctx, `
		SELECT ua.id, ua.user_id, ua.question_id, ua.option_id, ua.created_at
		FROM user_answers ua
		JOIN questions q ON q.id = ua.question_id
		WHERE ua.user_id = $1 AND q.section_id = $2
		ORDER BY ua.id ASC
	`, userID, sectionID)
}

func (s *Service) queryAnswers(ctx context.Context, query string, args ...any) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	out := make([]Answer, 0)
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.OptionID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoAnswers
	}
	return out, nil
}

// SectionScore aggregates one user's result for a section. Questions the
// user never answered count toward the totals but toward neither the
// correct nor the incorrect counter.
func (s *Service) SectionScore(ctx context.Context, userID, sectionID int64) (*SectionSummary, error) {
	if userID <= 0 || sectionID <= 0 {
		return nil, ErrInvalidInput
	}

	questions, err := s.sectionQuestions(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sections WHERE id = $1)`, sectionID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check section: %w", err)
		}
		if !exists {
			return nil, ErrSectionNotFound
		}
		return nil, ErrSectionEmpty
	}

	marks, err := s.sectionMarks(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}
	if len(marks) == 0 {
		return nil, ErrNoAnswers
	}

	summary := SummarizeSection(questions, marks)
	return &summary, nil
}

func (s *Service) sectionQuestions(ctx context.Context, sectionID int64) ([]QuestionWeight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, score
		FROM questions
		WHERE section_id = $1
		ORDER BY id ASC
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("query section questions: %w", err)
	}
	defer rows.Close()

	out := make([]QuestionWeight, 0)
	for rows.Next() {
		var q QuestionWeight
		if err := rows.Scan(&q.ID, &q.Score); err != nil {
			return nil, fmt.Errorf("scan question weight: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate section questions: %w", err)
	}
	return out, nil
}

func (s *Service) sectionMarks(ctx context.Context, userID, sectionID int64) ([]AnswerMark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ua.question_id, o.is_correct
		FROM user_answers ua
		JOIN questions q ON q.id = ua.question_id
		JOIN options o ON o.id = ua.option_id
		WHERE ua.user_id = $1 AND q.section_id = $2
	`, userID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("query section marks: %w", err)
	}
	defer rows.Close()

	out := make([]AnswerMark, 0)
	for rows.Next() {
		var m AnswerMark
		if err := rows.Scan(&m.QuestionID, &m.Correct); err != nil {
			return nil, fmt.Errorf("scan section mark: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate section marks: %w", err)
	}
	return out, nil
}

// TopUsersByCourse returns every user who answered at least one question
// in the course, ranked by total score. A user whose answers are all
// wrong still appears, with a zero score.
func (s *Service) TopUsersByCourse(ctx context.Context, courseID int64) ([]RankedUser, error) {
	if courseID <= 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, COALESCE(SUM(q.score) FILTER (WHERE o.is_correct), 0)
		FROM user_answers ua
		JOIN questions q ON q.id = ua.question_id
		JOIN sections sec ON sec.id = q.section_id
		JOIN options o ON o.id = ua.option_id
		JOIN users u ON u.id = ua.user_id
		WHERE sec.course_id = $1
		GROUP BY u.id, u.username
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("query course scores: %w", err)
	}
	defer rows.Close()

	users := make([]RankedUser, 0)
	for rows.Next() {
		var ru RankedUser
		if err := rows.Scan(&ru.UserID, &ru.Username, &ru.TotalScore); err != nil {
			return nil, fmt.Errorf("scan course score: %w", err)
		}
		users = append(users, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course scores: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNoAnswers
	}

	RankUsers(users)
	return users, nil
}
