package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name:    "product list is required",
			wantErr: "ProductList",
		},
		{
			name: "defaults with product list from env",
			env:  map[string]string{"DIARY_VALIDATION_PRODUCT_LIST": "C,P,R"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"C", "P", "R"}, cfg.Validation.ProductList)
				assert.Equal(t, 36, cfg.Validation.MaxAnswers)
				assert.Equal(t, 500, cfg.Validation.DurationMax)
				assert.Equal(t, 1, cfg.Validation.Workers)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "PANELNO", cfg.Columns.PanelNo)
				assert.Equal(t, "csv", cfg.ChangeLog.Backend)
			},
		},
		{
			name: "file values overlay defaults",
			file: `
columns:
  panel_no: PID
  input_col: DATE
validation:
  product_list: ["제품 C", "제품 P"]
  max_answers: 10
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "PID", cfg.Columns.PanelNo)
				assert.Equal(t, "DATE", cfg.Columns.InputCol)
				assert.Equal(t, "Q3", cfg.Columns.ProductCol)
				assert.Equal(t, 10, cfg.Validation.MaxAnswers)
				assert.Equal(t, 500, cfg.Validation.DurationMax)
				assert.Equal(t, "DATE_month", cfg.InputMonth())
			},
		},
		{
			name: "env takes precedence over file",
			file: `
validation:
  product_list: [A]
  duration_max: 300
`,
			env: map[string]string{"DIARY_VALIDATION_DURATION_MAX": "600", "DIARY_SERVER_PORT": "9090"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 600, cfg.Validation.DurationMax)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, []string{"A"}, cfg.Validation.ProductList)
			},
		},
		{
			name:    "zero max answers rejected",
			env:     map[string]string{"DIARY_VALIDATION_PRODUCT_LIST": "A", "DIARY_VALIDATION_MAX_ANSWERS": "0"},
			wantErr: "MaxAnswers",
		},
		{
			name:    "empty column role rejected",
			file:    "columns:\n  order_col: \"\"\nvalidation:\n  product_list: [A]\n",
			wantErr: "OrderCol",
		},
		{
			name:    "invalid port",
			env:     map[string]string{"DIARY_VALIDATION_PRODUCT_LIST": "A", "DIARY_SERVER_PORT": "99999"},
			wantErr: "Port",
		},
		{
			name:    "malformed yaml",
			file:    "validation: [",
			wantErr: "failed to load config from file",
		},
		{
			name:    "sqlite backend needs a path",
			file:    "changelog:\n  backend: sqlite\n  sqlite_path: \"\"\nvalidation:\n  product_list: [A]\n",
			wantErr: "SQLitePath",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("duplicate column mapping", func(t *testing.T) {
		cfg := Default()
		cfg.Validation.ProductList = []string{"A"}
		cfg.Columns.EndCol = cfg.Columns.StartCol
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "both map to")
	})

	t.Run("duplicate product", func(t *testing.T) {
		cfg := Default()
		cfg.Validation.ProductList = []string{"A", " A"}
		assert.ErrorContains(t, cfg.Validate(), "listed twice")
	})

	t.Run("default plus products is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Validation.ProductList = []string{"A", "B"}
		assert.NoError(t, cfg.Validate())
	})
}

func TestColumnNames(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Q1_month", cfg.InputMonth())
	assert.Equal(t, "Q1_day", cfg.InputDay())
	assert.Equal(t, "Q4_hour", cfg.StartHour())
	assert.Equal(t, "Q5_time", cfg.EndTime())
	assert.Equal(t, "order_error", cfg.RuleColumn(domain.RuleOrderSequence))
	assert.Equal(t, "start_end_duplicate", cfg.RuleColumn(domain.RuleDuplicateAnswer))
	assert.Equal(t, "total_duration", cfg.FieldColumn(domain.FieldDuration))

	derived := cfg.DerivedColumns()
	assert.Len(t, derived, 17)
	assert.Contains(t, derived, "answer_combine")
	assert.Contains(t, derived, "Q4_time")
	assert.NotContains(t, derived, "Q4")

	col, ok := cfg.EditableColumn(RoleProduct)
	assert.True(t, ok)
	assert.Equal(t, "Q3", col)
	_, ok = cfg.EditableColumn("panel")
	assert.False(t, ok)

	assert.Equal(t, []string{"unique_id", "PANELNO", "Q1", "Q2", "Q3", "Q4", "Q5"}, cfg.LogColumns())
	assert.Equal(t, []string{
		"unique_id", "panel_code", "PANELNO", "Q1_month", "Q1_day", "Q2",
		"Q4_hour", "Q4_min", "Q5_hour", "Q5_min",
	}, cfg.ImportColumns())
}

func TestPaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.ImportDir = filepath.Join(base, "abs_import")

	paths := cfg.ResolvePaths(base)
	assert.Equal(t, filepath.Join(base, "convert_data"), paths.ConvertDir)
	assert.Equal(t, filepath.Join(base, "abs_import"), paths.ImportDir)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.ConvertDir, paths.LogDir, paths.ImportDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	at := time.Date(2025, 3, 15, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, filepath.Join(paths.ConvertDir, "converted_data_20250315_143005.xlsx"), paths.ConvertedFile(at))
	assert.Equal(t, filepath.Join(paths.ImportDir, "import_data_20250315.xlsx"), paths.ImportFile(at))
	assert.Equal(t, filepath.Join(paths.LogDir, "log_20250315.csv"), paths.LogFile(at))
}
