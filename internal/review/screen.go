package review

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"listening-review/internal/models"
)

var (
	ErrScreenNotFound    = errors.New("review screen not found")
	ErrInvalidTransition = errors.New("invalid review screen transition")
	ErrInvalidAnswer     = errors.New("answer must be one of the question's options")
)

type State string

const (
	StateIdle              State = "idle"
	StateLoading           State = "loading"
	StateReady             State = "ready"
	StatePartiallyFailed   State = "partially_failed"
	StateQuestionModalOpen State = "question_modal_open"
	StateLeft              State = "left"
)

// Section identifies one independently loaded list on the screen. The
// values double as DOM container ids.
type Section string

const (
	SectionWrongQuestions  Section = "wrong-questions"
	SectionLearningHistory Section = "learning-history"
	SectionAnswerHistory   Section = "answer-history"
)

// Sections in display order.
var Sections = []Section{SectionWrongQuestions, SectionLearningHistory, SectionAnswerHistory}

type SectionStatus string

const (
	SectionLoading SectionStatus = "loading"
	SectionReady   SectionStatus = "ready"
	SectionFailed  SectionStatus = "failed"
)

// Screen is one load of the review page. It is replaced, never reused,
// on the next page load.
type Screen struct {
	ID       uuid.UUID                 `json:"id"`
	Locale   string                    `json:"locale"`
	State    State                     `json:"state"`
	Settled  State                     `json:"settled,omitempty"`
	Sections map[Section]SectionStatus `json:"sections"`

	Profile         *models.Profile               `json:"profile,omitempty"`
	WrongQuestions  []models.WrongQuestion        `json:"wrong_questions"`
	LearningHistory []models.LearningHistoryEntry `json:"learning_history"`
	AnswerHistory   []models.AnswerHistoryEntry   `json:"answer_history"`
	Stats           models.SummaryStats           `json:"stats"`
	Trend           models.ScoreTrend             `json:"trend"`

	OpenQuestion *models.QuestionDetail `json:"open_question,omitempty"`
	OpenedAt     time.Time              `json:"opened_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

func newScreen(locale string, now time.Time) *Screen {
	s := &Screen{
		ID:        uuid.New(),
		Locale:    locale,
		State:     StateIdle,
		Sections:  make(map[Section]SectionStatus, len(Sections)),
		CreatedAt: now,
	}
	for _, sec := range Sections {
		s.Sections[sec] = SectionLoading
	}
	return s
}

// reset returns s to a fresh idle state, keeping its identity.
func (s *Screen) reset() {
	fresh := newScreen(s.Locale, s.CreatedAt)
	fresh.ID = s.ID
	*s = *fresh
}

// Loaded reports whether the initial load has finished.
func (s *Screen) Loaded() bool {
	switch s.State {
	case StateReady, StatePartiallyFailed, StateQuestionModalOpen:
		return true
	}
	return false
}

func (s *Screen) Failed(sec Section) bool {
	return s.Sections[sec] == SectionFailed
}
