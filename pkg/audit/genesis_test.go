package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateTimestamp(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	launch := time.Unix(1_725_840_000, 0)

	tests := []struct {
		name string
		ts   int64
		want int64
	}{
		{name: "valid", ts: 1_730_000_000, want: 1_730_000_000},
		{name: "exactly now", ts: now.Unix(), want: now.Unix()},
		{name: "future", ts: now.Unix() + 1, want: 0},
		{name: "before launch", ts: launch.Unix() - 1, want: 0},
		{name: "zero", ts: 0, want: 0},
		{name: "negative", ts: -5, want: 0},
		{name: "milliseconds", ts: 1_730_000_000_123, want: 1_730_000_000},
		{name: "future milliseconds", ts: (now.Unix() + 60) * 1000, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateTimestamp(tt.ts, now, launch))
		})
	}
}

func TestValidateTimestamp_NoLaunchBound(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	assert.Equal(t, int64(1000), ValidateTimestamp(1000, now, time.Time{}))
}
