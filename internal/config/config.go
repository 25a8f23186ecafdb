package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. DIARY_SERVER_PORT.
const EnvPrefix = "DIARY"

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" envconfig:"SERVER"`
	Logging      LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
	Paths        PathsConfig        `yaml:"paths" envconfig:"PATHS"`
	Columns      ColumnsConfig      `yaml:"columns" envconfig:"COLUMNS"`
	ErrorColumns ErrorColumnsConfig `yaml:"error_columns" envconfig:"ERROR_COLUMNS"`
	Validation   ValidationConfig   `yaml:"validation" envconfig:"VALIDATION"`
	ChangeLog    ChangeLogConfig    `yaml:"changelog" envconfig:"CHANGELOG"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration   `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains output directories
type PathsConfig struct {
	ConvertDir string `yaml:"convert_dir" envconfig:"CONVERT_DIR" validate:"required"`
	LogDir     string `yaml:"log_dir" envconfig:"LOG_DIR" validate:"required"`
	ImportDir  string `yaml:"import_dir" envconfig:"IMPORT_DIR" validate:"required"`
}

// ColumnsConfig maps column roles to the header names found in the input.
type ColumnsConfig struct {
	UniqueID   string `yaml:"unique_id" envconfig:"UNIQUE_ID" validate:"required"`
	PanelCode  string `yaml:"panel_code" envconfig:"PANEL_CODE"`
	PanelNo    string `yaml:"panel_no" envconfig:"PANEL_NO" validate:"required"`
	InputCol   string `yaml:"input_col" envconfig:"INPUT_COL" validate:"required"`
	OrderCol   string `yaml:"order_col" envconfig:"ORDER_COL" validate:"required"`
	ProductCol string `yaml:"product_col" envconfig:"PRODUCT_COL" validate:"required"`
	StartCol   string `yaml:"start_col" envconfig:"START_COL" validate:"required"`
	EndCol     string `yaml:"end_col" envconfig:"END_COL" validate:"required"`
	AnswerDate string `yaml:"answer_date" envconfig:"ANSWER_DATE"`
}

// ErrorColumnsConfig names the annotation and computed columns.
type ErrorColumnsConfig struct {
	OrderError       string `yaml:"order_error" envconfig:"ORDER_ERROR" validate:"required"`
	DuplicateError   string `yaml:"duplicate_error" envconfig:"DUPLICATE_ERROR" validate:"required"`
	DayOrderError    string `yaml:"day_order_error" envconfig:"DAY_ORDER_ERROR" validate:"required"`
	AnswerCountError string `yaml:"answer_count_error" envconfig:"ANSWER_COUNT_ERROR" validate:"required"`
	StartEndDup      string `yaml:"start_end_duplicate" envconfig:"START_END_DUPLICATE" validate:"required"`
	TotalDuration    string `yaml:"total_duration" envconfig:"TOTAL_DURATION" validate:"required"`
	TimeError        string `yaml:"time_error" envconfig:"TIME_ERROR" validate:"required"`
	DurationError    string `yaml:"duration_error" envconfig:"DURATION_ERROR" validate:"required"`
	AnswerCombine    string `yaml:"answer_combine" envconfig:"ANSWER_COMBINE" validate:"required"`
}

// ValidationConfig carries the rule thresholds.
type ValidationConfig struct {
	ProductList       []string `yaml:"product_list" envconfig:"PRODUCT_LIST" validate:"min=1,dive,required"`
	MaxAnswers        int      `yaml:"max_answers" envconfig:"MAX_ANSWERS" validate:"gt=0"`
	DurationMax       int      `yaml:"duration_max" envconfig:"DURATION_MAX" validate:"gt=0"`
	Workers           int      `yaml:"workers" envconfig:"WORKERS" validate:"gte=1"`
	DefaultSheetIndex int      `yaml:"default_sheet_index" envconfig:"DEFAULT_SHEET_INDEX" validate:"gte=0"`
}

// ChangeLogConfig selects where edit history is persisted.
type ChangeLogConfig struct {
	Backend    string `yaml:"backend" envconfig:"BACKEND" validate:"oneof=csv sqlite"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH" validate:"required_if=Backend sqlite"`
}

// TelemetryConfig toggles tracing and metrics.
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled bool    `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRate     float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE" validate:"gte=0,lte=1"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, then the config file (if any),
// then DIARY_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and the cross-field constraints.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	seen := make(map[string]string)
	for role, name := range c.Columns.roles() {
		if other, dup := seen[name]; dup && name != "" {
			return fmt.Errorf("columns %s and %s both map to %q", other, role, name)
		}
		seen[name] = role
	}

	products := make(map[string]struct{}, len(c.Validation.ProductList))
	for _, p := range c.Validation.ProductList {
		key := strings.TrimSpace(p)
		if _, dup := products[key]; dup {
			return fmt.Errorf("product %q listed twice", p)
		}
		products[key] = struct{}{}
	}

	return nil
}

func (c ColumnsConfig) roles() map[string]string {
	return map[string]string{
		"unique_id":   c.UniqueID,
		"panel_code":  c.PanelCode,
		"panel_no":    c.PanelNo,
		"input_col":   c.InputCol,
		"order_col":   c.OrderCol,
		"product_col": c.ProductCol,
		"start_col":   c.StartCol,
		"end_col":     c.EndCol,
		"answer_date": c.AnswerDate,
	}
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns the documented defaults. The product list is left empty
// and must be configured.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    3 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  2 * time.Minute,
			AllowedOrigins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/diarycheck.log",
		},
		Paths: PathsConfig{
			ConvertDir: "convert_data",
			LogDir:     "log_data",
			ImportDir:  "import_data",
		},
		Columns: ColumnsConfig{
			UniqueID:   "unique_id",
			PanelCode:  "panel_code",
			PanelNo:    "PANELNO",
			InputCol:   "Q1",
			OrderCol:   "Q2",
			ProductCol: "Q3",
			StartCol:   "Q4",
			EndCol:     "Q5",
			AnswerDate: "answer_date",
		},
		ErrorColumns: ErrorColumnsConfig{
			OrderError:       "order_error",
			DuplicateError:   "duplicate_error",
			DayOrderError:    "day_order_error",
			AnswerCountError: "answer_count_error",
			StartEndDup:      "start_end_duplicate",
			TotalDuration:    "total_duration",
			TimeError:        "time_error",
			DurationError:    "duration_error",
			AnswerCombine:    "answer_combine",
		},
		Validation: ValidationConfig{
			MaxAnswers:        36,
			DurationMax:       500,
			Workers:           1,
			DefaultSheetIndex: 1,
		},
		ChangeLog: ChangeLogConfig{
			Backend:    "csv",
			SQLitePath: "log_data/changelog.db",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "diarycheck",
			TracingEnabled: false,
			TraceExporter:  "none",
			SampleRate:     1.0,
			MetricsEnabled: true,
		},
	}
}
