// Package review drives the review screen: loading the learner's history,
// deriving summary counters and handling the re-attempt modal.
package review

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"listening-review/internal/models"
)

// DataSource is the backend the screen reads from.
type DataSource interface {
	LoadProfile(ctx context.Context) (*models.Profile, error)
	LoadWrongQuestions(ctx context.Context) ([]models.WrongQuestion, error)
	LoadLearningHistory(ctx context.Context) ([]models.LearningHistoryEntry, error)
	LoadAnswerHistory(ctx context.Context) ([]models.AnswerHistoryEntry, error)
	LoadQuestion(ctx context.Context, id int64) (*models.QuestionDetail, error)
	StartReview(ctx context.Context, id int64) (string, error)
	SaveReviewResult(ctx context.Context, result models.ReviewResult) error
}

// Notifier receives progress while a screen loads. Calls are serialized
// and never happen after the activation context is done.
type Notifier interface {
	SectionDone(s *Screen, sec Section, err error)
	StatsReady(s *Screen)
}

type nopNotifier struct{}

func (nopNotifier) SectionDone(*Screen, Section, error) {}
func (nopNotifier) StatsReady(*Screen)                  {}

// NopNotifier discards all progress events.
var NopNotifier Notifier = nopNotifier{}

type Controller struct {
	source    DataSource
	store     Store
	trendDays int
	loc       *time.Location
	now       func() time.Time
}

func NewController(source DataSource, store Store, trendDays int, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{
		source:    source,
		store:     store,
		trendDays: trendDays,
		loc:       loc,
		now:       time.Now,
	}
}

// NewScreen registers a fresh idle screen.
func (c *Controller) NewScreen(ctx context.Context, locale language.Tag) (*Screen, error) {
	s := newScreen(locale.String(), c.now())
	if err := c.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Controller) Screen(ctx context.Context, id uuid.UUID) (*Screen, error) {
	return c.store.Get(ctx, id)
}

// Activate loads the profile and the three history sections concurrently.
// Each section settles on its own; stats and the score trend are computed
// once every fetch has returned.
func (c *Controller) Activate(ctx context.Context, s *Screen, n Notifier) error {
	if s.State != StateIdle {
		return fmt.Errorf("activate from %s: %w", s.State, ErrInvalidTransition)
	}
	if n == nil {
		n = NopNotifier
	}

	s.State = StateLoading
	if err := c.store.Save(ctx, s); err != nil {
		return err
	}

	var mu sync.Mutex
	finish := func(sec Section, err error, apply func()) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("review screen %s: %s failed: %v", s.ID, sec, err)
			s.Sections[sec] = SectionFailed
		} else {
			apply()
			s.Sections[sec] = SectionReady
		}
		// Sockets that connect mid-load replay this snapshot.
		if serr := c.store.Save(ctx, s); serr != nil {
			log.Printf("review screen %s: failed to save %s: %v", s.ID, sec, serr)
		}
		n.SectionDone(s, sec, err)
	}

	var g errgroup.Group
	g.Go(func() error {
		profile, err := c.source.LoadProfile(ctx)
		if err != nil {
			log.Printf("review screen %s: profile failed: %v", s.ID, err)
			return nil
		}
		mu.Lock()
		s.Profile = profile
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		list, err := c.source.LoadWrongQuestions(ctx)
		finish(SectionWrongQuestions, err, func() { s.WrongQuestions = list })
		return nil
	})
	g.Go(func() error {
		list, err := c.source.LoadLearningHistory(ctx)
		finish(SectionLearningHistory, err, func() { s.LearningHistory = list })
		return nil
	})
	g.Go(func() error {
		list, err := c.source.LoadAnswerHistory(ctx)
		finish(SectionAnswerHistory, err, func() { s.AnswerHistory = list })
		return nil
	})
	g.Wait()

	if err := ctx.Err(); err != nil {
		// Abandoned loads go back to idle so the next connection can retry.
		s.reset()
		if serr := c.store.Save(context.WithoutCancel(ctx), s); serr != nil {
			log.Printf("review screen %s: failed to reset: %v", s.ID, serr)
		}
		return err
	}

	s.Stats = Summarize(s.WrongQuestions, s.LearningHistory, s.AnswerHistory, c.loc)
	s.Trend = ScoreTrend(s.LearningHistory, c.now(), c.trendDays, c.loc, language.Make(s.Locale))

	s.State = StateReady
	for _, sec := range Sections {
		if s.Failed(sec) {
			s.State = StatePartiallyFailed
			break
		}
	}
	s.Settled = s.State

	if err := c.store.Save(ctx, s); err != nil {
		return err
	}
	n.StatsReady(s)
	return nil
}

// OpenQuestion loads a question's detail and opens the re-attempt modal.
func (c *Controller) OpenQuestion(ctx context.Context, screenID uuid.UUID, questionID int64) (*Screen, error) {
	s, err := c.store.Get(ctx, screenID)
	if err != nil {
		return nil, err
	}
	if !s.Loaded() {
		return nil, fmt.Errorf("open question from %s: %w", s.State, ErrInvalidTransition)
	}

	detail, err := c.source.LoadQuestion(ctx, questionID)
	if err != nil {
		log.Printf("review screen %s: load question %d failed: %v", s.ID, questionID, err)
		return nil, err
	}

	s.OpenQuestion = detail
	s.OpenedAt = c.now()
	s.State = StateQuestionModalOpen
	if err := c.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// CloseQuestion dismisses the modal and returns to the settled load state.
func (c *Controller) CloseQuestion(ctx context.Context, screenID uuid.UUID) (*Screen, error) {
	s, err := c.store.Get(ctx, screenID)
	if err != nil {
		return nil, err
	}
	if s.State != StateQuestionModalOpen {
		return nil, fmt.Errorf("close question from %s: %w", s.State, ErrInvalidTransition)
	}
	s.OpenQuestion = nil
	s.OpenedAt = time.Time{}
	s.State = s.Settled
	if err := c.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// StartReview registers a review for the open question and returns the
// page to navigate to. The screen is discarded on success; on failure the
// modal stays open.
func (c *Controller) StartReview(ctx context.Context, screenID uuid.UUID) (string, error) {
	s, err := c.store.Get(ctx, screenID)
	if err != nil {
		return "", err
	}
	if s.State != StateQuestionModalOpen || s.OpenQuestion == nil {
		return "", fmt.Errorf("start review from %s: %w", s.State, ErrInvalidTransition)
	}

	target, err := c.source.StartReview(ctx, s.OpenQuestion.ID)
	if err != nil {
		log.Printf("review screen %s: start review %d failed: %v", s.ID, s.OpenQuestion.ID, err)
		return "", err
	}

	s.State = StateLeft
	if err := c.store.Delete(ctx, s.ID); err != nil {
		log.Printf("review screen %s: failed to discard: %v", s.ID, err)
	}
	return target, nil
}

// SubmitAnswer records the learner's choice for the open question and
// reports whether it was correct.
func (c *Controller) SubmitAnswer(ctx context.Context, screenID uuid.UUID, label string) (bool, error) {
	s, err := c.store.Get(ctx, screenID)
	if err != nil {
		return false, err
	}
	if s.State != StateQuestionModalOpen || s.OpenQuestion == nil {
		return false, fmt.Errorf("submit answer from %s: %w", s.State, ErrInvalidTransition)
	}

	answer, ok := s.OpenQuestion.OptionText(label)
	if !ok {
		return false, ErrInvalidAnswer
	}

	result := models.ReviewResult{
		QuestionID: s.OpenQuestion.ID,
		UserAnswer: answer,
		IsCorrect:  answer == s.OpenQuestion.CorrectAnswer,
		TimeSpent:  minutesSince(s.OpenedAt, c.now()),
	}
	if err := c.source.SaveReviewResult(ctx, result); err != nil {
		log.Printf("review screen %s: save result for %d failed: %v", s.ID, result.QuestionID, err)
		return false, err
	}
	return result.IsCorrect, nil
}

// Leave discards a screen the learner navigated away from.
func (c *Controller) Leave(ctx context.Context, screenID uuid.UUID) error {
	return c.store.Delete(ctx, screenID)
}

// minutesSince rounds the elapsed time to a tenth of a minute.
func minutesSince(start, now time.Time) float64 {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	tenths := int64(now.Sub(start) / (6 * time.Second))
	return float64(tenths) / 10
}
