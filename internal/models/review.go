package models

import "strings"

// Placeholder titles used when the backend omits optional text.
const (
	DefaultContentTitle = "Question"
)

type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type WrongQuestion struct {
	ID            int64   `json:"id"`
	QuestionText  string  `json:"question_text"`
	CorrectAnswer string  `json:"correct_answer"`
	AudioURL      string  `json:"audio_url"`
	WrongCount    int     `json:"wrong_count"`
	WrongDate     *string `json:"wrong_date"`
	LastScore     *int    `json:"last_score"`
}

// Normalize fills defaults. A listed wrong question was missed at least once.
func (q *WrongQuestion) Normalize() {
	if q.WrongCount < 1 {
		q.WrongCount = 1
	}
}

type LearningHistoryEntry struct {
	ID               int64    `json:"id"`
	ContentTitle     string   `json:"content_title"`
	StudyDate        *string  `json:"study_date"`
	Score            *float64 `json:"score"`
	TimeSpent        float64  `json:"time_spent"`
	CompletionStatus bool     `json:"completion_status"`
}

func (e *LearningHistoryEntry) Normalize() {
	if strings.TrimSpace(e.ContentTitle) == "" {
		e.ContentTitle = DefaultContentTitle
	}
	if e.TimeSpent < 0 {
		e.TimeSpent = 0
	}
	if e.Score != nil {
		s := *e.Score
		if s < 0 {
			s = 0
		} else if s > 100 {
			s = 100
		}
		e.Score = &s
	}
}

type AnswerHistoryEntry struct {
	ID            int64    `json:"id"`
	QuestionText  string   `json:"question_text"`
	UserAnswer    string   `json:"user_answer"`
	CorrectAnswer string   `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	AnswerDate    *string  `json:"answer_date"`
	Score         *float64 `json:"score"`
}

func (e *AnswerHistoryEntry) Normalize() {}

// Option is one labelled answer choice (A-D) of a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type QuestionDetail struct {
	ID            int64     `json:"id"`
	QuestionText  string    `json:"question_text"`
	CorrectAnswer string    `json:"correct_answer"`
	AudioURL      string    `json:"audio_url"`
	OptionA       *string   `json:"option_a"`
	OptionB       *string   `json:"option_b"`
	OptionC       *string   `json:"option_c"`
	OptionD       *string   `json:"option_d"`
	Options       [4]Option `json:"options"`
}

var optionLabels = [4]string{"A", "B", "C", "D"}

// Normalize builds Options from the raw option fields, substituting
// "Option X" for every missing or blank choice.
func (q *QuestionDetail) Normalize() {
	raw := [4]*string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
	for i, label := range optionLabels {
		text := "Option " + label
		if raw[i] != nil && strings.TrimSpace(*raw[i]) != "" {
			text = *raw[i]
		}
		q.Options[i] = Option{Label: label, Text: text}
	}
}

// OptionText returns the text of the option with the given label.
// Options are rebuilt from the raw fields when they were never normalized.
func (q *QuestionDetail) OptionText(label string) (string, bool) {
	if q.Options[0].Label == "" {
		q.Normalize()
	}
	for _, o := range q.Options {
		if o.Label == label {
			return o.Text, true
		}
	}
	return "", false
}

type StartReviewRequest struct {
	QuestionID int64 `json:"question_id"`
}

type StartReviewResponse struct {
	Success  bool  `json:"success"`
	ReviewID int64 `json:"review_id"`
}

type ReviewResult struct {
	QuestionID int64   `json:"question_id"`
	UserAnswer string  `json:"user_answer"`
	IsCorrect  bool    `json:"is_correct"`
	TimeSpent  float64 `json:"time_spent"`
}

// SummaryStats is derived from the three history collections on every load.
type SummaryStats struct {
	WrongCount      int     `json:"wrong_count"`
	StudyMinutes    float64 `json:"study_minutes"`
	AccuracyPercent int     `json:"accuracy_percent"`
	StudyDays       int     `json:"study_days"`
}

// ScoreTrend is the chart series: one label per day, nil where no score was recorded.
type ScoreTrend struct {
	Labels []string   `json:"labels"`
	Scores []*float64 `json:"scores"`
}
