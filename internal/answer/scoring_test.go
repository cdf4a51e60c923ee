package answer

import (
	"reflect"
	"testing"
)

func TestSummarizeSection(t *testing.T) {
	tests := []struct {
		name      string
		questions []QuestionWeight
		marks     []AnswerMark
		want      SectionSummary
	}{
		{
			name: "mixed correct and wrong",
			questions: []QuestionWeight{
				{ID: 1, Score: 2},
				{ID: 2, Score: 3},
				{ID: 3, Score: 5},
			},
			marks: []AnswerMark{
				{QuestionID: 1, Correct: true},
				{QuestionID: 2, Correct: false},
				{QuestionID: 3, Correct: true},
			},
			want: SectionSummary{TotalQuestions: 3, TotalScore: 10, CorrectAnswers: 2, IncorrectAnswers: 1, ObtainedScore: 7},
		},
		{
			name: "unanswered question counts in neither bucket",
			questions: []QuestionWeight{
				{ID: 1, Score: 2},
				{ID: 2, Score: 3},
				{ID: 3, Score: 5},
			},
			marks: []AnswerMark{
				{QuestionID: 1, Correct: true},
			},
			want: SectionSummary{TotalQuestions: 3, TotalScore: 10, CorrectAnswers: 1, IncorrectAnswers: 0, ObtainedScore: 2},
		},
		{
			name: "all wrong yields zero obtained",
			questions: []QuestionWeight{
				{ID: 1, Score: 4},
				{ID: 2, Score: 6},
			},
			marks: []AnswerMark{
				{QuestionID: 1, Correct: false},
				{QuestionID: 2, Correct: false},
			},
			want: SectionSummary{TotalQuestions: 2, TotalScore: 10, CorrectAnswers: 0, IncorrectAnswers: 2, ObtainedScore: 0},
		},
		{
			name: "marks outside the section are ignored",
			questions: []QuestionWeight{
				{ID: 1, Score: 2},
			},
			marks: []AnswerMark{
				{QuestionID: 1, Correct: true},
				{QuestionID: 99, Correct: true},
			},
			want: SectionSummary{TotalQuestions: 1, TotalScore: 2, CorrectAnswers: 1, IncorrectAnswers: 0, ObtainedScore: 2},
		},
		{
			name:      "no marks",
			questions: []QuestionWeight{{ID: 1, Score: 2}},
			marks:     nil,
			want:      SectionSummary{TotalQuestions: 1, TotalScore: 2},
		},
		{
			name:  "zero weight question",
			marks: []AnswerMark{{QuestionID: 1, Correct: true}},
			questions: []QuestionWeight{
				{ID: 1, Score: 0},
				{ID: 2, Score: 3},
			},
			want: SectionSummary{TotalQuestions: 2, TotalScore: 3, CorrectAnswers: 1, IncorrectAnswers: 0, ObtainedScore: 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SummarizeSection(tc.questions, tc.marks)
			if got != tc.want {
				t.Fatalf("summary mismatch\n got=%+v\nwant=%+v", got, tc.want)
			}
			if got.ObtainedScore > got.TotalScore {
				t.Fatalf("obtained %d exceeds total %d", got.ObtainedScore, got.TotalScore)
			}
			if got.CorrectAnswers+got.IncorrectAnswers > got.TotalQuestions {
				t.Fatalf("answered counters exceed question count: %+v", got)
			}
		})
	}
}

func TestRankUsersOrdersByScoreThenID(t *testing.T) {
	users := []RankedUser{
		{UserID: 5, Username: "eva", TotalScore: 7},
		{UserID: 2, Username: "bo", TotalScore: 12},
		{UserID: 9, Username: "iris", TotalScore: 7},
		{UserID: 1, Username: "al", TotalScore: 0},
	}

	RankUsers(users)

	want := []RankedUser{
		{UserID: 2, Username: "bo", TotalScore: 12},
		{UserID: 5, Username: "eva", TotalScore: 7},
		{UserID: 9, Username: "iris", TotalScore: 7},
		{UserID: 1, Username: "al", TotalScore: 0},
	}
	if !reflect.DeepEqual(users, want) {
		t.Fatalf("rank mismatch\n got=%+v\nwant=%+v", users, want)
	}
}

func TestRankUsersIsDeterministicOnTies(t *testing.T) {
	a := []RankedUser{
		{UserID: 3, TotalScore: 10},
		{UserID: 1, TotalScore: 10},
		{UserID: 2, TotalScore: 10},
	}
	b := []RankedUser{
		{UserID: 2, TotalScore: 10},
		{UserID: 3, TotalScore: 10},
		{UserID: 1, TotalScore: 10},
	}

	RankUsers(a)
	RankUsers(b)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("tied users ranked differently:\n a=%+v\n b=%+v", a, b)
	}
	for i, u := range a {
		if u.UserID != int64(i+1) {
			t.Fatalf("expected ascending user ids on tie, got %+v", a)
		}
	}
}
