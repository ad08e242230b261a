package apperr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalyticsRecordAndTotal(t *testing.T) {
	a := NewAnalytics()
	a.Record(Occurrence{Type: Validation.String(), Timestamp: time.Now()})
	a.Record(Occurrence{Type: Validation.String(), Timestamp: time.Now()})
	a.Record(Occurrence{Type: Database.String(), Timestamp: time.Now()})

	assert.Equal(t, 3, a.Total())
	assert.Equal(t, 2, a.ByType()[Validation.String()])
}

func TestAnalyticsRingBufferBound(t *testing.T) {
	a := NewAnalytics()
	for i := 0; i < ringSize+25; i++ {
		a.Record(Occurrence{Type: Validation.String(), Timestamp: time.Now()})
	}
	assert.Len(t, a.recentLocked(), ringSize)
	assert.Equal(t, ringSize+25, a.Total(), "counts accumulate past the ring bound even though recent history is capped")
}

func TestAnalyticsTop5OrdersByCountDescending(t *testing.T) {
	a := NewAnalytics()
	for i := 0; i < 5; i++ {
		a.Record(Occurrence{Type: Database.String(), Timestamp: time.Now()})
	}
	for i := 0; i < 2; i++ {
		a.Record(Occurrence{Type: Validation.String(), Timestamp: time.Now()})
	}
	top := a.Top5()
	assert.Equal(t, Database.String(), top[0].Type)
	assert.Equal(t, 5, top[0].Count)
}

func TestAnalyticsInsightsHighErrorRate(t *testing.T) {
	a := NewAnalytics()
	for i := 0; i < 51; i++ {
		a.Record(Occurrence{Type: App.String(), Timestamp: time.Now()})
	}
	assert.Contains(t, a.Insights(), InsightHighErrorRate)
}

func TestAnalyticsInsightsAuthIssues(t *testing.T) {
	a := NewAnalytics()
	for i := 0; i < 4; i++ {
		a.Record(Occurrence{Type: Authentication.String(), Timestamp: time.Now()})
	}
	a.Record(Occurrence{Type: App.String(), Timestamp: time.Now()})
	assert.Contains(t, a.Insights(), InsightAuthIssues)
}

func TestAnalyticsInsightsDatabaseIssues(t *testing.T) {
	a := NewAnalytics()
	a.Record(Occurrence{Type: Database.String(), Timestamp: time.Now()})
	assert.Contains(t, a.Insights(), InsightDatabaseIssues)
}

func TestAnalyticsSampleReturnsNewestN(t *testing.T) {
	a := NewAnalytics()
	for i := 0; i < 10; i++ {
		a.Record(Occurrence{Type: Validation.String(), RequestID: string(rune('a' + i)), Timestamp: time.Now()})
	}
	sample := a.Sample(3)
	assert.Len(t, sample, 3)
	assert.Equal(t, "j", sample[2].RequestID)
}
