// Package render turns review data into HTML fragments. All user-supplied
// text goes through html/template contextual escaping.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"

	"listening-review/internal/models"
	"listening-review/internal/review"
)

//go:embed templates/*.html
var templateFS embed.FS

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastDanger  ToastKind = "danger"
	ToastInfo    ToastKind = "info"
)

// How long a toast stays on screen before the page script removes it.
var toastDurations = map[ToastKind]int{
	ToastSuccess: 3000,
	ToastDanger:  5000,
	ToastInfo:    3000,
}

type emptyState struct {
	Icon    string
	Title   string
	Message string
}

var emptyStates = map[review.Section]emptyState{
	review.SectionWrongQuestions: {
		Icon:    "fa-check-circle",
		Title:   "Great job!",
		Message: "No missed questions. Keep up the good work!",
	},
	review.SectionLearningHistory: {
		Icon:    "fa-history",
		Title:   "No learning history yet",
		Message: "Your study sessions will appear here once you start.",
	},
	review.SectionAnswerHistory: {
		Icon:    "fa-clipboard-list",
		Title:   "No answer history yet",
		Message: "Your answers will appear here once you answer a question.",
	},
}

var sectionErrors = map[review.Section]string{
	review.SectionWrongQuestions:  "Failed to load missed questions.",
	review.SectionLearningHistory: "Failed to load learning history.",
	review.SectionAnswerHistory:   "Failed to load answer history.",
}

var sectionTitles = map[review.Section]string{
	review.SectionWrongQuestions:  "Missed questions",
	review.SectionLearningHistory: "Learning history",
	review.SectionAnswerHistory:   "Answer history",
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// New parses the embedded templates. Timestamps are shown in loc.
func New(loc *time.Location) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{tmpl: tmpl, loc: loc}, nil
}

// Locale returns display helpers for tag in the renderer's time zone.
func (r *Renderer) Locale(tag language.Tag) Locale {
	return NewLocale(tag, r.loc)
}

// ScreenLocale is Locale for the language a screen was negotiated with.
func (r *Renderer) ScreenLocale(s *review.Screen) Locale {
	return r.Locale(language.Make(s.Locale))
}

func (r *Renderer) execute(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) empty(l Locale, sec review.Section) (template.HTML, error) {
	e := emptyStates[sec]
	return r.execute("empty", emptyState{
		Icon:    e.Icon,
		Title:   l.T(e.Title),
		Message: l.T(e.Message),
	})
}

func (r *Renderer) WrongQuestions(l Locale, items []models.WrongQuestion) (template.HTML, error) {
	if len(items) == 0 {
		return r.empty(l, review.SectionWrongQuestions)
	}
	return r.execute("wrong_questions", struct {
		L     Locale
		Items []models.WrongQuestion
	}{l, items})
}

func (r *Renderer) LearningHistory(l Locale, items []models.LearningHistoryEntry) (template.HTML, error) {
	if len(items) == 0 {
		return r.empty(l, review.SectionLearningHistory)
	}
	return r.execute("learning_history", struct {
		L     Locale
		Items []models.LearningHistoryEntry
	}{l, items})
}

func (r *Renderer) AnswerHistory(l Locale, items []models.AnswerHistoryEntry) (template.HTML, error) {
	if len(items) == 0 {
		return r.empty(l, review.SectionAnswerHistory)
	}
	return r.execute("answer_history", struct {
		L     Locale
		Items []models.AnswerHistoryEntry
	}{l, items})
}

// SectionError is the failure fragment shared by every section.
func (r *Renderer) SectionError(l Locale, sec review.Section) (template.HTML, error) {
	msg, ok := sectionErrors[sec]
	if !ok {
		msg = "A network error occurred."
	}
	return r.execute("section_error", struct {
		L       Locale
		Section review.Section
		Message string
	}{l, sec, l.T(msg)})
}

func (r *Renderer) Loading(l Locale, sec review.Section) (template.HTML, error) {
	return r.execute("loading", struct {
		L       Locale
		Section review.Section
	}{l, sec})
}

// Section renders sec according to its load status on s.
func (r *Renderer) Section(l Locale, s *review.Screen, sec review.Section) (template.HTML, error) {
	switch s.Sections[sec] {
	case review.SectionFailed:
		return r.SectionError(l, sec)
	case review.SectionReady:
	default:
		return r.Loading(l, sec)
	}

	switch sec {
	case review.SectionWrongQuestions:
		return r.WrongQuestions(l, s.WrongQuestions)
	case review.SectionLearningHistory:
		return r.LearningHistory(l, s.LearningHistory)
	case review.SectionAnswerHistory:
		return r.AnswerHistory(l, s.AnswerHistory)
	}
	return "", fmt.Errorf("render: unknown section %q", sec)
}

// Toast renders a dismissible message. message is translated before display.
func (r *Renderer) Toast(l Locale, kind ToastKind, message string, args ...interface{}) (template.HTML, error) {
	duration, ok := toastDurations[kind]
	if !ok {
		kind, duration = ToastInfo, toastDurations[ToastInfo]
	}
	return r.execute("toast", struct {
		Kind       ToastKind
		DurationMS int
		Message    string
	}{kind, duration, l.T(message, args...)})
}

func (r *Renderer) Stats(l Locale, stats models.SummaryStats) (template.HTML, error) {
	return r.execute("stats", struct {
		L     Locale
		Stats models.SummaryStats
	}{l, stats})
}

// QuestionModal renders the re-attempt modal body. token authorizes the
// forms it contains.
func (r *Renderer) QuestionModal(l Locale, q *models.QuestionDetail, token string) (template.HTML, error) {
	if q == nil {
		return "", fmt.Errorf("render question_modal: no question")
	}
	return r.execute("question_modal", struct {
		L     Locale
		Q     *models.QuestionDetail
		Token string
	}{l, q, token})
}

// PageView is the input to Page.
type PageView struct {
	Screen *review.Screen
	Token  string
	// Live pages start with loading placeholders and receive sections over
	// the WebSocket.
	Live bool
}

type pageSection struct {
	ID    review.Section
	Title string
	HTML  template.HTML
}

// Page renders the full review page for the screen's current state.
func (r *Renderer) Page(v PageView) (template.HTML, error) {
	s := v.Screen
	l := r.ScreenLocale(s)

	var stats template.HTML
	var err error
	if s.Loaded() {
		stats, err = r.Stats(l, s.Stats)
	} else {
		stats, err = r.Loading(l, "summary-stats")
	}
	if err != nil {
		return "", err
	}

	sections := make([]pageSection, 0, len(review.Sections))
	for _, sec := range review.Sections {
		html, err := r.Section(l, s, sec)
		if err != nil {
			return "", err
		}
		sections = append(sections, pageSection{ID: sec, Title: l.T(sectionTitles[sec]), HTML: html})
	}

	var trend string
	if s.Loaded() {
		raw, err := json.Marshal(s.Trend)
		if err != nil {
			return "", fmt.Errorf("failed to marshal trend: %w", err)
		}
		trend = string(raw)
	}

	return r.execute("page", struct {
		L         Locale
		Token     string
		Live      bool
		Profile   *models.Profile
		Stats     template.HTML
		Sections  []pageSection
		TrendJSON string
	}{l, v.Token, v.Live, s.Profile, stats, sections, trend})
}
