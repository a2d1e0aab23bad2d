package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"listening-review/internal/datasource"
	"listening-review/internal/middleware"
	"listening-review/internal/models"
	"listening-review/internal/render"
	"listening-review/internal/review"
)

type fixtureSource struct {
	learningErr error
}

func (f *fixtureSource) LoadProfile(ctx context.Context) (*models.Profile, error) {
	return &models.Profile{ID: 1, Username: "learner"}, nil
}

func (f *fixtureSource) LoadWrongQuestions(ctx context.Context) ([]models.WrongQuestion, error) {
	return []models.WrongQuestion{{ID: 5, QuestionText: "Where is the station?", WrongCount: 2}}, nil
}

func (f *fixtureSource) LoadLearningHistory(ctx context.Context) ([]models.LearningHistoryEntry, error) {
	return nil, f.learningErr
}

func (f *fixtureSource) LoadAnswerHistory(ctx context.Context) ([]models.AnswerHistoryEntry, error) {
	return []models.AnswerHistoryEntry{{IsCorrect: true}, {IsCorrect: false}}, nil
}

func (f *fixtureSource) LoadQuestion(ctx context.Context, id int64) (*models.QuestionDetail, error) {
	return nil, datasource.ErrInvalidID
}

func (f *fixtureSource) StartReview(ctx context.Context, id int64) (string, error) {
	return "", datasource.ErrInvalidID
}

func (f *fixtureSource) SaveReviewResult(ctx context.Context, result models.ReviewResult) error {
	return nil
}

type hubFixture struct {
	hub        *Hub
	auth       *middleware.JWTAuth
	controller *review.Controller
	server     *httptest.Server
}

func newHubFixture(t *testing.T, src review.DataSource) *hubFixture {
	t.Helper()
	renderer, err := render.New(time.UTC)
	require.NoError(t, err)

	auth := middleware.NewJWTAuth("secret", time.Minute)
	controller := review.NewController(src, review.NewMemoryStore(time.Hour), 7, time.UTC)
	hub := NewHub(nil, auth, controller, renderer)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &hubFixture{hub: hub, auth: auth, controller: controller, server: server}
}

func (f *hubFixture) dial(t *testing.T, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/review/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntilCompleted collects events up to and including "completed".
func readUntilCompleted(t *testing.T, conn *websocket.Conn) []event {
	t.Helper()
	var events []event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var e event
		require.NoError(t, conn.ReadJSON(&e))
		events = append(events, e)
		if e.Type == models.EventCompleted {
			return events
		}
	}
}

func countType(events []event, typ string) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestHandleWebSocket_StreamsSectionsThenStats(t *testing.T) {
	f := newHubFixture(t, &fixtureSource{learningErr: &datasource.FetchError{Kind: datasource.HTTPFailure, Status: 500}})

	screen, err := f.controller.NewScreen(context.Background(), language.English)
	require.NoError(t, err)
	token, err := f.auth.GenerateScreenToken(screen.ID)
	require.NoError(t, err)

	conn, _, err := f.dial(t, token)
	require.NoError(t, err)
	defer conn.Close()

	events := readUntilCompleted(t, conn)
	assert.Equal(t, 3, countType(events, models.EventSection))
	assert.Equal(t, 1, countType(events, models.EventStats))

	// Stats arrive only after every section.
	var statsAt, lastSection int
	for i, e := range events {
		switch e.Type {
		case models.EventStats:
			statsAt = i
		case models.EventSection:
			lastSection = i
		}
	}
	assert.Greater(t, statsAt, lastSection)

	for _, e := range events {
		if e.Type != models.EventSection {
			continue
		}
		var u models.SectionUpdate
		require.NoError(t, json.Unmarshal(e.Payload, &u))
		if u.Section == string(review.SectionLearningHistory) {
			assert.Equal(t, string(review.SectionFailed), u.Status)
			assert.Contains(t, u.HTML, "Failed to load learning history.")
		}
	}

	var done models.CompletedEvent
	require.NoError(t, json.Unmarshal(events[len(events)-1].Payload, &done))
	assert.Equal(t, string(review.StatePartiallyFailed), done.State)
}

func TestHandleWebSocket_ReplaysLoadedScreen(t *testing.T) {
	f := newHubFixture(t, &fixtureSource{})

	screen, err := f.controller.NewScreen(context.Background(), language.Japanese)
	require.NoError(t, err)
	require.NoError(t, f.controller.Activate(context.Background(), screen, nil))

	token, err := f.auth.GenerateScreenToken(screen.ID)
	require.NoError(t, err)

	conn, _, err := f.dial(t, token)
	require.NoError(t, err)
	defer conn.Close()

	events := readUntilCompleted(t, conn)
	assert.Equal(t, 3, countType(events, models.EventSection))

	for _, e := range events {
		if e.Type != models.EventStats {
			continue
		}
		var u models.StatsUpdate
		require.NoError(t, json.Unmarshal(e.Payload, &u))
		assert.Equal(t, 50, u.Stats.AccuracyPercent)
		assert.Contains(t, u.HTML, "正答率")
		assert.Len(t, u.Trend.Labels, 7)
	}
}

func TestHandleWebSocket_RejectsBadToken(t *testing.T) {
	f := newHubFixture(t, &fixtureSource{})

	_, resp, err := f.dial(t, "not-a-token")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWebSocket_UnknownScreen(t *testing.T) {
	f := newHubFixture(t, &fixtureSource{})

	screen, err := f.controller.NewScreen(context.Background(), language.English)
	require.NoError(t, err)
	token, err := f.auth.GenerateScreenToken(screen.ID)
	require.NoError(t, err)
	require.NoError(t, f.controller.Leave(context.Background(), screen.ID))

	_, resp, err := f.dial(t, token)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// gatedSource holds the answer history fetch until release is closed or
// the load is cancelled.
type gatedSource struct {
	fixtureSource
	release chan struct{}
}

func (g *gatedSource) LoadAnswerHistory(ctx context.Context) ([]models.AnswerHistoryEntry, error) {
	select {
	case <-g.release:
		return g.fixtureSource.LoadAnswerHistory(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readSections reads n section events and indexes their status by section.
func readSections(t *testing.T, conn *websocket.Conn, n int) map[string]string {
	t.Helper()
	status := make(map[string]string)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(status) < n {
		var e event
		require.NoError(t, conn.ReadJSON(&e))
		if e.Type != models.EventSection {
			continue
		}
		var u models.SectionUpdate
		require.NoError(t, json.Unmarshal(e.Payload, &u))
		status[u.Section] = u.Status
	}
	return status
}

func TestHandleWebSocket_LateSocketSeesFinishedSections(t *testing.T) {
	src := &gatedSource{release: make(chan struct{})}
	f := newHubFixture(t, src)

	screen, err := f.controller.NewScreen(context.Background(), language.English)
	require.NoError(t, err)
	token, err := f.auth.GenerateScreenToken(screen.ID)
	require.NoError(t, err)

	first, _, err := f.dial(t, token)
	require.NoError(t, err)
	defer first.Close()
	readSections(t, first, 2)

	second, _, err := f.dial(t, token)
	require.NoError(t, err)
	defer second.Close()

	replayed := readSections(t, second, 3)
	assert.Equal(t, string(review.SectionReady), replayed[string(review.SectionWrongQuestions)])
	assert.Equal(t, string(review.SectionLoading), replayed[string(review.SectionAnswerHistory)])

	// The load survives the socket that started it.
	require.NoError(t, first.Close())
	close(src.release)

	events := readUntilCompleted(t, second)
	var done models.CompletedEvent
	require.NoError(t, json.Unmarshal(events[len(events)-1].Payload, &done))
	assert.Equal(t, string(review.StateReady), done.State)
}

func TestHandleWebSocket_LastSocketLeavingResetsLoad(t *testing.T) {
	src := &gatedSource{release: make(chan struct{})}
	f := newHubFixture(t, src)

	screen, err := f.controller.NewScreen(context.Background(), language.English)
	require.NoError(t, err)
	token, err := f.auth.GenerateScreenToken(screen.ID)
	require.NoError(t, err)

	conn, _, err := f.dial(t, token)
	require.NoError(t, err)
	readSections(t, conn, 2)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		s, err := f.controller.Screen(context.Background(), screen.ID)
		return err == nil && s.State == review.StateIdle
	}, 5*time.Second, 20*time.Millisecond)
}
