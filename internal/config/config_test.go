package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/mediatheque/pkg/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PLANNING_RULES_FILE", "")
	t.Setenv("API_KEYS", " key-a, ,key-b ")
	t.Setenv("PLANNING_WORKERS", "8")
	t.Setenv("PLANNING_TIMEOUT", "bad")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mediatheque", cfg.App.Name)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.API.Keys)
	assert.Equal(t, 8, cfg.Planning.Workers)
	assert.Equal(t, 20*time.Second, cfg.Planning.Timeout, "无法解析的值回退到默认值")
	assert.Equal(t, model.DefaultRules(), cfg.Planning.Rules)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoad_RulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[rules]
ideal_max = 120
max_temp_alone = 90
temp_days = ["samedi"]
`), 0o600))
	t.Setenv("PLANNING_RULES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Planning.Rules.IdealMaxMinutes)
	assert.Equal(t, 90, cfg.Planning.Rules.MaxTemporaryAloneMinutes)
	assert.Equal(t, []model.Day{model.Samedi}, cfg.Planning.Rules.TemporaryDays)
	assert.Equal(t, 240, cfg.Planning.Rules.ToleratedMaxMinutes)

	t.Setenv("PLANNING_RULES_FILE", filepath.Join(t.TempDir(), "absent.toml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestParseRules(t *testing.T) {
	base := model.DefaultRules()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
		check   func(t *testing.T, r model.Rules)
	}{
		{
			name: "空文件保持默认",
			doc:  "",
			check: func(t *testing.T, r model.Rules) {
				assert.Equal(t, base, r)
			},
		},
		{
			name: "修改例外窗口",
			doc:  "[rules]\nexception_window = \"12:30-13:30\"\n",
			check: func(t *testing.T, r model.Rules) {
				require.NotNil(t, r.ExceptionWindow)
				assert.Equal(t, model.TimeRange{Start: 750, End: 810}, *r.ExceptionWindow)
			},
		},
		{
			name: "空字符串取消例外窗口",
			doc:  "[rules]\nexception_window = \"\"\n",
			check: func(t *testing.T, r model.Rules) {
				assert.Nil(t, r.ExceptionWindow)
			},
		},
		{
			name: "轮换上限",
			doc:  "[rules]\nrotation_cap_short = 2\nrotation_cap_long = 5\ndefault_youth_minimum = 2\n",
			check: func(t *testing.T, r model.Rules) {
				assert.Equal(t, 2, r.RotationCapShort)
				assert.Equal(t, 5, r.RotationCapLong)
				assert.Equal(t, 2, r.DefaultYouthMinimum)
			},
		},
		{name: "窗口格式错误", doc: "[rules]\nexception_window = \"midi\"\n", wantErr: true},
		{name: "服务日无效", doc: "[rules]\ntemp_days = [\"Lundi\"]\n", wantErr: true},
		{name: "时长为零", doc: "[rules]\nmin_break = 0\n", wantErr: true},
		{name: "语法错误", doc: "[rules\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRules([]byte(tt.doc), base)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, base, got)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}
