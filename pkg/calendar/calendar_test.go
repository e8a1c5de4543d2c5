package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/mediatheque/pkg/model"
)

func TestWeeksOfMonth(t *testing.T) {
	// 2025 年 3 月 1 日是周六，第一个周二为 3 月 4 日
	weeks := WeeksOfMonth(2025, time.March)
	require.Len(t, weeks, 4)

	first := weeks[0]
	assert.Equal(t, 1, first.Index)
	require.Len(t, first.Days, 5)
	assert.Equal(t, model.Mardi, first.Days[0].Day)
	assert.Equal(t, "2025-03-04", first.Days[0].DateKey())
	assert.Equal(t, "2025-03-08", first.Days[4].DateKey())

	last := weeks[3]
	assert.Equal(t, "2025-03-25", last.Days[0].DateKey())
	assert.True(t, last.Has(model.Samedi))
}

func TestWeeksOfMonth_TruncatedLastWeek(t *testing.T) {
	// 2025 年 4 月 29 日周二，30 日周三，之后进入五月
	weeks := WeeksOfMonth(2025, time.April)
	require.Len(t, weeks, 5)

	last := weeks[4]
	require.Len(t, last.Days, 2)
	assert.Equal(t, model.Mercredi, last.Days[1].Day)
	assert.False(t, last.Has(model.Samedi))
}

func TestSaturdayColor(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		overrides map[int]model.RotationColor
		want      model.RotationColor
	}{
		{"单周默认红", 1, nil, model.Rouge},
		{"双周默认蓝", 2, nil, model.Bleu},
		{"显式配置优先", 3, map[int]model.RotationColor{3: model.Bleu}, model.Bleu},
		{"其他周不受影响", 4, map[int]model.RotationColor{3: model.Bleu}, model.Bleu},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SaturdayColor(tt.index, tt.overrides))
		})
	}
}
