package logger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  zerolog.Level
	}{
		{"调试", "debug", zerolog.DebugLevel},
		{"信息", "info", zerolog.InfoLevel},
		{"警告", "warn", zerolog.WarnLevel},
		{"警告全称", "warning", zerolog.WarnLevel},
		{"错误", "error", zerolog.ErrorLevel},
		{"致命", "fatal", zerolog.FatalLevel},
		{"未知回退到信息", "verbose", zerolog.InfoLevel},
		{"空串", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithClient(ctx, "key-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.NotNil(t, WithContext(ctx))
}

func TestPlanningLogger_ForPlan(t *testing.T) {
	base := NewPlanningLogger()
	sub := base.ForPlan("plan-1")
	assert.NotSame(t, base, sub)
	assert.NotSame(t, base.base, sub.base)
}
