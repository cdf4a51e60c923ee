package report

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"classplay/internal/answer"

	"github.com/xuri/excelize/v2"
)

type leaderboardSource interface {
	TopUsersByCourse(ctx context.Context, courseID int64) ([]answer.RankedUser, error)
}

type Service struct {
	db          *sql.DB
	leaderboard leaderboardSource
}

type LeaderboardFile struct {
	Filename string
	Content  []byte
}

func NewService(db *sql.DB, leaderboard leaderboardSource) *Service {
	return &Service{db: db, leaderboard: leaderboard}
}

// CourseLeaderboardXLSX renders the course leaderboard as a spreadsheet,
// one ranked row per user.
func (s *Service) CourseLeaderboardXLSX(ctx context.Context, courseID int64) (*LeaderboardFile, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM courses WHERE id = $1`, courseID).Scan(&title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, answer.ErrCourseNotFound
		}
		return nil, fmt.Errorf("query course title: %w", err)
	}

	rows, err := s.leaderboard.TopUsersByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	content, err := BuildLeaderboardWorkbook(title, rows)
	if err != nil {
		return nil, err
	}

	return &LeaderboardFile{
		Filename: fmt.Sprintf("course_%d_top_users_%s.xlsx", courseID, time.Now().Format("20060102")),
		Content:  content,
	}, nil
}

func BuildLeaderboardWorkbook(courseTitle string, rows []answer.RankedUser) ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	_ = f.SetCellValue(sheet, "A1", courseTitle)
	headers := []string{"rank", "user_id", "username", "total_score"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, ru := range rows {
		values := []any{i + 1, ru.UserID, ru.Username, ru.TotalScore}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+3)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "D", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
