// Package config loads the dashboard configuration from FINDASH_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/anomaly"
	"github.com/dvloznov/finance-dashboard/internal/chat"
	"github.com/dvloznov/finance-dashboard/internal/dashboard"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/forecast"
	"github.com/dvloznov/finance-dashboard/internal/inference"
)

const (
	BackendOllama = "ollama"
	BackendGemini = "gemini"
)

type LogConfig struct {
	Level string
	JSON  bool
}

type DataConfig struct {
	// Source is a file path, gs://bucket/object or bq://project.dataset.table.
	Source       string
	UploadBucket string
}

type InferenceConfig struct {
	Backend     string
	Host        string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Retries     int
}

type DetectorConfig struct {
	Sensitivity      float64
	MinHistory       int
	Bucket           string
	OutlierThreshold float64
}

type ProjectionConfig struct {
	Method     string
	Confidence float64
	Window     int
	Horizon    int
	Target     string
}

type AggregationConfig struct {
	Bucket      string
	TopN        int
	RecentLimit int
}

type ContextConfig struct {
	MaxBytes     int
	MaxAnomalies int
}

type NotionConfig struct {
	Token      string
	DatabaseID string
}

type Config struct {
	Log         LogConfig
	Data        DataConfig
	Inference   InferenceConfig
	Detector    DetectorConfig
	Projection  ProjectionConfig
	Aggregation AggregationConfig
	Context     ContextConfig
	Notion      NotionConfig
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Unset or unparsable values
// fall back to their defaults.
func FromEnv(getenv func(string) string) *Config {
	e := env{getenv}

	cfg := &Config{
		Log: LogConfig{
			Level: e.str("FINDASH_LOG_LEVEL", "info"),
			JSON:  e.boolVal("FINDASH_LOG_JSON", false),
		},
		Data: DataConfig{
			Source:       e.str("FINDASH_DATA_SOURCE", "data/dados_financeiros.csv"),
			UploadBucket: e.str("FINDASH_UPLOAD_BUCKET", ""),
		},
		Inference: InferenceConfig{
			Backend:     e.str("FINDASH_INFERENCE_BACKEND", BackendOllama),
			Host:        e.str("FINDASH_OLLAMA_HOST", inference.DefaultOllamaHost),
			Model:       e.str("FINDASH_MODEL", ""),
			Timeout:     e.duration("FINDASH_INFERENCE_TIMEOUT", 120*time.Second),
			MaxTokens:   e.intVal("FINDASH_MAX_TOKENS", 2048),
			Temperature: e.floatVal("FINDASH_TEMPERATURE", 0.7),
			Retries:     e.intVal("FINDASH_INFERENCE_RETRIES", 1),
		},
		Detector: DetectorConfig{
			Sensitivity:      e.floatVal("FINDASH_ANOMALY_SENSITIVITY", 2.0),
			MinHistory:       e.intVal("FINDASH_ANOMALY_MIN_HISTORY", 3),
			Bucket:           e.str("FINDASH_ANOMALY_BUCKET", string(domain.BucketMonth)),
			OutlierThreshold: e.floatVal("FINDASH_OUTLIER_THRESHOLD", 2.0),
		},
		Projection: ProjectionConfig{
			Method:     e.str("FINDASH_FORECAST_METHOD", string(forecast.MethodLinear)),
			Confidence: e.floatVal("FINDASH_FORECAST_CONFIDENCE", 0.95),
			Window:     e.intVal("FINDASH_FORECAST_WINDOW", 3),
			Horizon:    e.intVal("FINDASH_FORECAST_HORIZON", 3),
			Target:     e.str("FINDASH_FORECAST_TARGET", string(dashboard.TargetBalance)),
		},
		Aggregation: AggregationConfig{
			Bucket:      e.str("FINDASH_BUCKET", string(domain.BucketMonth)),
			TopN:        e.intVal("FINDASH_TOP_N", 10),
			RecentLimit: e.intVal("FINDASH_RECENT_LIMIT", 50),
		},
		Context: ContextConfig{
			MaxBytes:     e.intVal("FINDASH_CONTEXT_MAX_BYTES", 6000),
			MaxAnomalies: e.intVal("FINDASH_CONTEXT_MAX_ANOMALIES", 10),
		},
		Notion: NotionConfig{
			Token:      e.str("NOTION_TOKEN", ""),
			DatabaseID: e.str("FINDASH_NOTION_DB_ID", ""),
		},
	}

	if cfg.Inference.Model == "" {
		cfg.Inference.Model = inference.DefaultOllamaModel
		if cfg.Inference.Backend == BackendGemini {
			cfg.Inference.Model = inference.DefaultGeminiModel
		}
	}

	return cfg
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level '%s'", c.Log.Level))
	}

	if strings.TrimSpace(c.Data.Source) == "" {
		errs = append(errs, "data source cannot be empty")
	}

	switch c.Inference.Backend {
	case BackendOllama:
		if u, err := url.Parse(c.Inference.Host); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid Ollama host '%s': must be an http(s) URL", c.Inference.Host))
		}
	case BackendGemini:
	default:
		errs = append(errs, fmt.Sprintf("invalid inference backend '%s': must be one of [ollama gemini]", c.Inference.Backend))
	}
	if c.Inference.Timeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid inference timeout %v: must be at least 1 second", c.Inference.Timeout))
	}
	if c.Inference.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("invalid max tokens %d: must be at least 1", c.Inference.MaxTokens))
	}
	if c.Inference.Temperature < 0 || c.Inference.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("invalid temperature %v: must be between 0 and 2", c.Inference.Temperature))
	}
	if c.Inference.Retries < 0 || c.Inference.Retries > 1 {
		errs = append(errs, fmt.Sprintf("invalid inference retries %d: must be 0 or 1", c.Inference.Retries))
	}

	if c.Detector.Sensitivity <= 0 {
		errs = append(errs, fmt.Sprintf("invalid anomaly sensitivity %v: must be positive", c.Detector.Sensitivity))
	}
	if c.Detector.MinHistory < 1 {
		errs = append(errs, fmt.Sprintf("invalid anomaly min history %d: must be at least 1", c.Detector.MinHistory))
	}
	if _, err := domain.ParseBucket(c.Detector.Bucket); err != nil {
		errs = append(errs, "anomaly "+err.Error())
	}
	if c.Detector.OutlierThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("invalid outlier threshold %v: must be positive", c.Detector.OutlierThreshold))
	}

	if _, err := forecast.ParseMethod(c.Projection.Method); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Projection.Confidence <= 0 || c.Projection.Confidence >= 1 {
		errs = append(errs, fmt.Sprintf("invalid forecast confidence %v: must be between 0 and 1", c.Projection.Confidence))
	}
	if c.Projection.Window < 2 {
		errs = append(errs, fmt.Sprintf("invalid forecast window %d: must be at least 2", c.Projection.Window))
	}
	if c.Projection.Horizon < 0 || c.Projection.Horizon > 24 {
		errs = append(errs, fmt.Sprintf("invalid forecast horizon %d: must be between 0 and 24", c.Projection.Horizon))
	}
	if _, err := dashboard.ParseTarget(c.Projection.Target); err != nil {
		errs = append(errs, err.Error())
	}

	if _, err := domain.ParseBucket(c.Aggregation.Bucket); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Aggregation.TopN < 0 {
		errs = append(errs, fmt.Sprintf("invalid top N %d: cannot be negative", c.Aggregation.TopN))
	}
	if c.Aggregation.RecentLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid recent limit %d: must be at least 1", c.Aggregation.RecentLimit))
	}

	if c.Context.MaxBytes < 256 {
		errs = append(errs, fmt.Sprintf("invalid context budget %d bytes: must be at least 256", c.Context.MaxBytes))
	}
	if c.Context.MaxAnomalies < 0 {
		errs = append(errs, fmt.Sprintf("invalid context anomaly cap %d: cannot be negative", c.Context.MaxAnomalies))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateNotion checks the settings needed to publish.
func (c *Config) ValidateNotion() error {
	var errs []string
	if c.Notion.Token == "" {
		errs = append(errs, "NOTION_TOKEN is required")
	}
	if c.Notion.DatabaseID == "" {
		errs = append(errs, "FINDASH_NOTION_DB_ID is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("notion configuration invalid:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// DashboardConfig maps the analytics sections onto dashboard.Config.
// Call Validate first.
func (c *Config) DashboardConfig() dashboard.Config {
	cfg := dashboard.DefaultConfig()
	bucket, _ := domain.ParseBucket(c.Detector.Bucket)
	method, _ := forecast.ParseMethod(c.Projection.Method)

	cfg.Detector = anomaly.Options{
		Sensitivity: c.Detector.Sensitivity,
		MinHistory:  c.Detector.MinHistory,
		Bucket:      bucket,
	}
	cfg.OutlierThreshold = c.Detector.OutlierThreshold
	cfg.Projection = forecast.Options{
		Method:     method,
		Confidence: c.Projection.Confidence,
		Window:     c.Projection.Window,
	}
	cfg.RecentLimit = c.Aggregation.RecentLimit
	return cfg
}

// DashboardState is the initial view state.
func (c *Config) DashboardState() dashboard.State {
	s := dashboard.DefaultState()
	if b, err := domain.ParseBucket(c.Aggregation.Bucket); err == nil {
		s.Bucket = b
	}
	if t, err := dashboard.ParseTarget(c.Projection.Target); err == nil {
		s.ForecastTarget = t
	}
	s.ForecastHorizon = c.Projection.Horizon
	s.TopN = c.Aggregation.TopN
	return s
}

// ChatOptions maps the inference section onto chat.Options.
func (c *Config) ChatOptions() chat.Options {
	return chat.Options{
		Model:       c.Inference.Model,
		Timeout:     c.Inference.Timeout,
		Temperature: c.Inference.Temperature,
		MaxTokens:   c.Inference.MaxTokens,
		Retries:     c.Inference.Retries,
	}
}

// Budget maps the context section onto chat.Budget.
func (c *Config) Budget() chat.Budget {
	return chat.Budget{MaxBytes: c.Context.MaxBytes, MaxAnomalies: c.Context.MaxAnomalies}
}

type env struct {
	get func(string) string
}

func (e env) str(key, def string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return def
}

func (e env) intVal(key string, def int) int {
	if v := e.get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (e env) floatVal(key string, def float64) float64 {
	if v := e.get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (e env) boolVal(key string, def bool) bool {
	if v := e.get(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (e env) duration(key string, def time.Duration) time.Duration {
	if v := e.get(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
