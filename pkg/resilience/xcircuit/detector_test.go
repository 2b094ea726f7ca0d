package xcircuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFailureRateDetector(t *testing.T) {
	d := NewFailureRate(0.5, 0)

	tests := []struct {
		name   string
		status Status
		counts Counts
		want   bool
	}{
		{"closed no attempts", StatusClosed, Counts{}, false},
		{"closed below threshold", StatusClosed, Counts{Attempts: 10, Failures: 4}, false},
		{"closed at threshold", StatusClosed, Counts{Attempts: 2, Failures: 1}, true},
		{"closed all failed", StatusClosed, Counts{Attempts: 2, Failures: 2}, true},
		{"half-open any failure trips", StatusHalfOpen, Counts{Attempts: 100, Failures: 1}, true},
		{"open never trips again", StatusOpen, Counts{Attempts: 2, Failures: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{Status: tt.status, LastChange: time.Unix(0, 0)}
			assert.Equal(t, tt.want, d.ShouldTrip(state, tt.counts))
		})
	}
}

func TestFailureRateDetectorMinAttempts(t *testing.T) {
	d := NewFailureRate(0.5, 10)

	closed := State{Status: StatusClosed}
	assert.False(t, d.ShouldTrip(closed, Counts{Attempts: 9, Failures: 9}))
	assert.True(t, d.ShouldTrip(closed, Counts{Attempts: 10, Failures: 9}))
}

func TestFailureRateDetectorClampsThreshold(t *testing.T) {
	assert.InDelta(t, 0.0, NewFailureRate(-1, 0).Threshold(), 1e-9)
	assert.InDelta(t, 1.0, NewFailureRate(2, 0).Threshold(), 1e-9)
}

func TestFailureCountDetector(t *testing.T) {
	d := NewFailureCount(3)

	closed := State{Status: StatusClosed}
	assert.False(t, d.ShouldTrip(closed, Counts{Attempts: 100, Failures: 2}))
	assert.True(t, d.ShouldTrip(closed, Counts{Attempts: 100, Failures: 3}))

	assert.True(t, d.ShouldTrip(State{Status: StatusHalfOpen}, Counts{Failures: 1}))
	assert.False(t, d.ShouldTrip(State{Status: StatusOpen}, Counts{Failures: 100}))

	// 0 会被提升为 1
	assert.EqualValues(t, 1, NewFailureCount(0).Threshold())
}

func TestCompositeDetector(t *testing.T) {
	d := NewComposite(
		NewFailureRate(0.9, 0),
		NewFailureCount(5),
		nil, // nil 被过滤
	)
	assert.Len(t, d.Detectors(), 2)

	closed := State{Status: StatusClosed}
	// 失败率不达标但次数达标
	assert.True(t, d.ShouldTrip(closed, Counts{Attempts: 100, Failures: 5}))
	// 都不达标
	assert.False(t, d.ShouldTrip(closed, Counts{Attempts: 100, Failures: 4}))
	// 次数不达标但失败率达标
	assert.True(t, d.ShouldTrip(closed, Counts{Attempts: 4, Failures: 4}))
}

func TestCompositeDetectorEmpty(t *testing.T) {
	d := NewComposite()
	assert.Nil(t, d.Detectors())
	assert.False(t, d.ShouldTrip(State{Status: StatusClosed}, Counts{Attempts: 1, Failures: 1}))
}

func TestCountsFailureRate(t *testing.T) {
	assert.InDelta(t, 0.0, Counts{}.FailureRate(), 1e-9)
	assert.InDelta(t, 0.5, Counts{Attempts: 4, Failures: 2}.FailureRate(), 1e-9)
	assert.InDelta(t, 1.0, Counts{Attempts: 2, Failures: 2}.FailureRate(), 1e-9)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "closed", StatusClosed.String())
	assert.Equal(t, "open", StatusOpen.String())
	assert.Equal(t, "half-open", StatusHalfOpen.String())
	assert.Equal(t, "unknown", Status(99).String())
}
