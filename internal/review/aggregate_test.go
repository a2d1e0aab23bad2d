package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"listening-review/internal/models"
)

func strPtr(s string) *string      { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil, nil, nil, time.UTC)
	assert.Equal(t, models.SummaryStats{}, got)
}

func TestSummarize_StudyMinutesTreatsMissingAsZero(t *testing.T) {
	learning := []models.LearningHistoryEntry{
		{TimeSpent: 12.5},
		{},
		{TimeSpent: 3},
	}
	got := Summarize(nil, learning, nil, time.UTC)
	assert.Equal(t, 15.5, got.StudyMinutes)
}

func TestSummarize_AccuracyHalf(t *testing.T) {
	answers := []models.AnswerHistoryEntry{
		{IsCorrect: true}, {IsCorrect: true}, {IsCorrect: false}, {IsCorrect: false},
	}
	assert.Equal(t, 50, Summarize(nil, nil, answers, time.UTC).AccuracyPercent)
}

func TestSummarize_AccuracyRoundsHalfUp(t *testing.T) {
	tests := []struct {
		correct, total int
		want           int
	}{
		{1, 3, 33},  // 33.33
		{2, 3, 67},  // 66.67
		{1, 8, 13},  // 12.5
		{3, 8, 38},  // 37.5
		{0, 5, 0},
		{5, 5, 100},
	}
	for _, tc := range tests {
		answers := make([]models.AnswerHistoryEntry, tc.total)
		for i := 0; i < tc.correct; i++ {
			answers[i].IsCorrect = true
		}
		assert.Equal(t, tc.want, Summarize(nil, nil, answers, time.UTC).AccuracyPercent, "%d/%d", tc.correct, tc.total)
	}
}

func TestSummarize_AccuracyIsOrderIndependent(t *testing.T) {
	a := []models.AnswerHistoryEntry{{IsCorrect: true}, {IsCorrect: false}, {IsCorrect: false}}
	b := []models.AnswerHistoryEntry{{IsCorrect: false}, {IsCorrect: false}, {IsCorrect: true}}
	assert.Equal(t, Summarize(nil, nil, a, time.UTC).AccuracyPercent, Summarize(nil, nil, b, time.UTC).AccuracyPercent)
}

func TestSummarize_StudyDaysCollapsesDates(t *testing.T) {
	learning := []models.LearningHistoryEntry{
		{StudyDate: strPtr("2024-01-01")},
		{StudyDate: strPtr("2024-01-01 09:00")},
		{StudyDate: strPtr("2024-01-02")},
		{StudyDate: nil},
		{StudyDate: strPtr("")},
	}
	assert.Equal(t, 2, Summarize(nil, learning, nil, time.UTC).StudyDays)
}

func TestSummarize_StudyDaysFromParsedDates(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"rfc1123", []string{"Tue, 02 Jan 2024 09:00:00 GMT", "Wed, 03 Jan 2024 09:00:00 GMT"}, 2},
		{"month name", []string{"Jan 2, 2024", "Jan 3, 2024"}, 2},
		{"mixed shapes same day", []string{"2024-01-02", "2024-01-02T23:10:00", "Jan 2, 2024"}, 1},
		{"unparseable falls back to prefix", []string{"someday soon", "someday later"}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			learning := make([]models.LearningHistoryEntry, 0, len(tc.dates))
			for _, d := range tc.dates {
				learning = append(learning, models.LearningHistoryEntry{StudyDate: strPtr(d)})
			}
			assert.Equal(t, tc.want, Summarize(nil, learning, nil, time.UTC).StudyDays)
		})
	}
}

func TestSummarize_StudyDaysInLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	learning := []models.LearningHistoryEntry{
		{StudyDate: strPtr("2024-01-01T20:00:00Z")},
		{StudyDate: strPtr("2024-01-02T01:00:00Z")},
	}
	assert.Equal(t, 2, Summarize(nil, learning, nil, time.UTC).StudyDays)
	assert.Equal(t, 1, Summarize(nil, learning, nil, tokyo).StudyDays)
}

func TestSummarize_WrongCount(t *testing.T) {
	wrong := []models.WrongQuestion{{ID: 1, WrongCount: 1}, {ID: 2, WrongCount: 3}}
	assert.Equal(t, 2, Summarize(wrong, nil, nil, time.UTC).WrongCount)
}

func TestScoreTrend_LastSevenDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	learning := []models.LearningHistoryEntry{
		{StudyDate: strPtr("2024-03-10T09:00:00"), Score: floatPtr(80)},
		{StudyDate: strPtr("2024-03-10 11:00"), Score: floatPtr(60)},
		{StudyDate: strPtr("2024-03-04T09:00:00"), Score: floatPtr(90)},
		{StudyDate: strPtr("2024-03-01T09:00:00"), Score: floatPtr(10)}, // outside window
		{StudyDate: strPtr("2024-03-08T09:00:00")},                      // no score
	}

	trend := ScoreTrend(learning, now, 7, time.UTC, language.English)
	require.Len(t, trend.Labels, 7)
	require.Len(t, trend.Scores, 7)

	assert.Equal(t, "Mar 4", trend.Labels[0])
	assert.Equal(t, "Mar 10", trend.Labels[6])
	require.NotNil(t, trend.Scores[0])
	assert.Equal(t, 90.0, *trend.Scores[0])
	require.NotNil(t, trend.Scores[6])
	assert.Equal(t, 70.0, *trend.Scores[6])
	assert.Nil(t, trend.Scores[4])
}

func TestScoreTrend_JapaneseLabels(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	trend := ScoreTrend(nil, now, 2, time.UTC, language.Japanese)
	assert.Equal(t, []string{"3月9日", "3月10日"}, trend.Labels)
}
