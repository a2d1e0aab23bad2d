package review

import (
	"time"

	"golang.org/x/text/language"

	"listening-review/internal/format"
	"listening-review/internal/models"
)

// Summarize derives the summary counters shown above the review lists.
// Study days are distinct calendar dates in loc.
func Summarize(wrong []models.WrongQuestion, learning []models.LearningHistoryEntry, answers []models.AnswerHistoryEntry, loc *time.Location) models.SummaryStats {
	stats := models.SummaryStats{WrongCount: len(wrong)}

	days := make(map[string]struct{})
	for _, e := range learning {
		stats.StudyMinutes += e.TimeSpent
		if e.StudyDate == nil {
			continue
		}
		if key := format.DateKey(*e.StudyDate, loc); key != "" {
			days[key] = struct{}{}
		}
	}
	stats.StudyDays = len(days)

	stats.AccuracyPercent = accuracyPercent(answers)
	return stats
}

// accuracyPercent is round-half-up of 100*correct/total, computed in
// integers: floor((200c + t) / 2t).
func accuracyPercent(answers []models.AnswerHistoryEntry) int {
	total := len(answers)
	if total == 0 {
		return 0
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return (200*correct + total) / (2 * total)
}

var trendLabelLayouts = map[string]string{
	"ja": "1月2日",
}

// ScoreTrend returns one point per calendar day for the last days days
// ending on now's date, each the mean score studied that day, or nil.
func ScoreTrend(learning []models.LearningHistoryEntry, now time.Time, days int, loc *time.Location, tag language.Tag) models.ScoreTrend {
	if loc == nil {
		loc = time.UTC
	}
	if days < 1 {
		days = 1
	}

	type acc struct {
		sum float64
		n   int
	}
	byDay := make(map[string]*acc)
	for _, e := range learning {
		if e.StudyDate == nil || e.Score == nil {
			continue
		}
		t, ok := format.ParseTimestamp(*e.StudyDate, loc)
		if !ok {
			continue
		}
		key := t.In(loc).Format("2006-01-02")
		a := byDay[key]
		if a == nil {
			a = &acc{}
			byDay[key] = a
		}
		a.sum += *e.Score
		a.n++
	}

	base, _ := tag.Base()
	layout, ok := trendLabelLayouts[base.String()]
	if !ok {
		layout = "Jan 2"
	}

	today := now.In(loc)
	trend := models.ScoreTrend{
		Labels: make([]string, 0, days),
		Scores: make([]*float64, 0, days),
	}
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		trend.Labels = append(trend.Labels, day.Format(layout))
		if a := byDay[day.Format("2006-01-02")]; a != nil {
			mean := a.sum / float64(a.n)
			trend.Scores = append(trend.Scores, &mean)
		} else {
			trend.Scores = append(trend.Scores, nil)
		}
	}
	return trend
}
