package config

import (
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/forecast"
	"github.com/dvloznov/finance-dashboard/internal/inference"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(envMap(nil))

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults should validate: %v", err)
	}
	if cfg.Inference.Host != inference.DefaultOllamaHost || cfg.Inference.Model != inference.DefaultOllamaModel {
		t.Errorf("Unexpected inference defaults: %+v", cfg.Inference)
	}
	if cfg.Inference.Timeout != 120*time.Second || cfg.Inference.MaxTokens != 2048 || cfg.Inference.Temperature != 0.7 {
		t.Errorf("Unexpected inference defaults: %+v", cfg.Inference)
	}
	if cfg.Detector.Sensitivity != 2.0 || cfg.Detector.MinHistory != 3 {
		t.Errorf("Unexpected detector defaults: %+v", cfg.Detector)
	}
	if cfg.Projection.Confidence != 0.95 || cfg.Projection.Method != "linear" {
		t.Errorf("Unexpected projection defaults: %+v", cfg.Projection)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{
		"FINDASH_INFERENCE_BACKEND":   "gemini",
		"FINDASH_INFERENCE_TIMEOUT":   "30s",
		"FINDASH_ANOMALY_SENSITIVITY": "1.5",
		"FINDASH_FORECAST_METHOD":     "moving_average",
		"FINDASH_BUCKET":              "week",
		"FINDASH_LOG_JSON":            "true",
		"FINDASH_TOP_N":               "not-a-number",
	}))

	if cfg.Inference.Model != inference.DefaultGeminiModel {
		t.Errorf("Model = %q, want Gemini default", cfg.Inference.Model)
	}
	if cfg.Inference.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Inference.Timeout)
	}
	if !cfg.Log.JSON {
		t.Error("Expected JSON logging")
	}
	if cfg.Aggregation.TopN != 10 {
		t.Errorf("Unparsable TopN should fall back to 10, got %d", cfg.Aggregation.TopN)
	}

	dc := cfg.DashboardConfig()
	if dc.Detector.Sensitivity != 1.5 || dc.Detector.Bucket != domain.BucketMonth {
		t.Errorf("Unexpected detector options: %+v", dc.Detector)
	}
	if dc.Projection.Method != forecast.MethodMovingAverage {
		t.Errorf("Method = %s", dc.Projection.Method)
	}
	if s := cfg.DashboardState(); s.Bucket != domain.BucketWeek {
		t.Errorf("Bucket = %s, want week", s.Bucket)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{
			name:        "invalid backend",
			mutate:      func(c *Config) { c.Inference.Backend = "openai" },
			wantErr:     true,
			errorString: "invalid inference backend 'openai'",
		},
		{
			name:        "invalid ollama host",
			mutate:      func(c *Config) { c.Inference.Host = "localhost:11434" },
			wantErr:     true,
			errorString: "invalid Ollama host",
		},
		{
			name:        "retries above one",
			mutate:      func(c *Config) { c.Inference.Retries = 3 },
			wantErr:     true,
			errorString: "must be 0 or 1",
		},
		{
			name:        "confidence out of range",
			mutate:      func(c *Config) { c.Projection.Confidence = 1.2 },
			wantErr:     true,
			errorString: "invalid forecast confidence 1.2",
		},
		{
			name:        "unknown bucket",
			mutate:      func(c *Config) { c.Aggregation.Bucket = "year" },
			wantErr:     true,
			errorString: `unknown bucket "year"`,
		},
		{
			name:        "tiny context budget",
			mutate:      func(c *Config) { c.Context.MaxBytes = 10 },
			wantErr:     true,
			errorString: "invalid context budget 10 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv(envMap(nil))
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := FromEnv(envMap(nil))
	cfg.Detector.Sensitivity = 0
	cfg.Projection.Method = "arima"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "sensitivity") || !strings.Contains(err.Error(), "arima") {
		t.Errorf("Expected both problems reported, got: %v", err)
	}
}

func TestConfig_ValidateNotion(t *testing.T) {
	cfg := FromEnv(envMap(nil))
	if err := cfg.ValidateNotion(); err == nil {
		t.Error("Expected error without token and database")
	}

	cfg = FromEnv(envMap(map[string]string{"NOTION_TOKEN": "secret", "FINDASH_NOTION_DB_ID": "db"}))
	if err := cfg.ValidateNotion(); err != nil {
		t.Errorf("ValidateNotion failed: %v", err)
	}
}

func TestConfig_ChatOptionsAndBudget(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{"FINDASH_CONTEXT_MAX_BYTES": "4096"}))

	if b := cfg.Budget(); b.MaxBytes != 4096 || b.MaxAnomalies != 10 {
		t.Errorf("Budget = %+v", b)
	}
	if o := cfg.ChatOptions(); o.Retries != 1 || o.Model != inference.DefaultOllamaModel {
		t.Errorf("ChatOptions = %+v", o)
	}
}
