package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{"整点h", "9h", 540, true},
		{"小时分钟h", "9h30", 570, true},
		{"带m后缀", "9h30m", 570, true},
		{"冒号", "9:30", 570, true},
		{"补零冒号", "09:30", 570, true},
		{"带秒", "14:00:00", 840, true},
		{"Excel小数", "0.375", 540, true},
		{"大写H", "10H", 600, true},
		{"空串", "", 0, false},
		{"非法文本", "midi", 0, false},
		{"分钟越界", "9h75", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseClock(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTimeRange_Overlaps(t *testing.T) {
	base := TimeRange{Start: 600, End: 660}
	tests := []struct {
		name  string
		other TimeRange
		want  bool
	}{
		{"完全相同", TimeRange{Start: 600, End: 660}, true},
		{"部分重叠", TimeRange{Start: 630, End: 700}, true},
		{"首尾相接", TimeRange{Start: 660, End: 720}, false},
		{"在之前", TimeRange{Start: 540, End: 600}, false},
		{"包含", TimeRange{Start: 540, End: 720}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestTimeRange_Within(t *testing.T) {
	slot := TimeRange{Start: 600, End: 660}
	assert.True(t, slot.Within(TimeRange{Start: 540, End: 720}))
	assert.True(t, slot.Within(slot))
	assert.False(t, slot.Within(TimeRange{Start: 630, End: 720}), "部分重叠不算包含")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "2h30", FormatDuration(150))
	assert.Equal(t, "0h00", FormatDuration(0))
	assert.Equal(t, "10:00-11:00", TimeRange{Start: 600, End: 660}.String())

	tr, ok := ParseRange("12:00-14:00")
	assert.True(t, ok)
	assert.Equal(t, 120, tr.Duration())
}
