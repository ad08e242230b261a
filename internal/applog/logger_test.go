package applog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistoryRecordsEntriesBelowConfiguredLevel(t *testing.T) {
	l := New(LevelWarn)
	l.Info("should not emit to handler", nil)
	l.Warn("should emit", nil)

	history := l.History()
	assert.Len(t, history, 2, "history records regardless of emitted level")
}

func TestHistoryRingBound(t *testing.T) {
	l := New(LevelDebug)
	for i := 0; i < defaultHistorySize+10; i++ {
		l.Info("line", nil)
	}
	assert.Len(t, l.History(), defaultHistorySize)
}

func TestLogRequestPromotesSlowRequestsToWarn(t *testing.T) {
	l := New(LevelDebug)
	l.LogRequest("GET", "/slow", 200, 1500*time.Millisecond, "req-1")

	history := l.History()
	last := history[len(history)-1]
	assert.Equal(t, LevelWarn, last.Level)
}

func TestLogRequestFastStaysInfo(t *testing.T) {
	l := New(LevelDebug)
	l.LogRequest("GET", "/fast", 200, 5*time.Millisecond, "req-2")

	history := l.History()
	last := history[len(history)-1]
	assert.Equal(t, LevelInfo, last.Level)
}

func TestRequestLineFormat(t *testing.T) {
	line := RequestLine("POST", "/api/todos", "abc-123")
	assert.Contains(t, line, "REQ POST")
	assert.Contains(t, line, "/api/todos")
	assert.Contains(t, line, "[abc-123]")
}
