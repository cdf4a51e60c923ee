package answer

import "sort"

type QuestionWeight struct {
	ID    int64
	Score int
}

type AnswerMark struct {
	QuestionID int64
	Correct    bool
}

type SectionSummary struct {
	TotalQuestions   int `json:"total_questions"`
	TotalScore       int `json:"total_score"`
	CorrectAnswers   int `json:"correct_answers"`
	IncorrectAnswers int `json:"incorrect_answers"`
	ObtainedScore    int `json:"obtained_score"`
}

type RankedUser struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	TotalScore int    `json:"total_score"`
}

// SummarizeSection folds a user's marks over a section's questions.
// Marks for questions outside the section are ignored; duplicate marks
// for a question keep the last one, matching the one-answer-per-question
// storage invariant.
func SummarizeSection(questions []QuestionWeight, marks []AnswerMark) SectionSummary {
	summary := SectionSummary{TotalQuestions: len(questions)}

	weights := make(map[int64]int, len(questions))
	for _, q := range questions {
		summary.TotalScore += q.Score
		weights[q.ID] = q.Score
	}

	marked := make(map[int64]bool, len(marks))
	for _, m := range marks {
		if _, ok := weights[m.QuestionID]; !ok {
			continue
		}
		marked[m.QuestionID] = m.Correct
	}

	for qID, correct := range marked {
		if correct {
			summary.CorrectAnswers++
			summary.ObtainedScore += weights[qID]
		} else {
			summary.IncorrectAnswers++
		}
	}
	return summary
}

// RankUsers sorts in place: total score descending, user ID ascending on
// ties, so equal scores always come back in the same order.
func RankUsers(users []RankedUser) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalScore != users[j].TotalScore {
			return users[i].TotalScore > users[j].TotalScore
		}
		return users[i].UserID < users[j].UserID
	})
}
