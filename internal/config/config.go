// Package config loads the engine's configuration the way the rest of
// this codebase's ambient stack does: layered defaults, an optional JSON
// file, then GEPA_-prefixed environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds everything needed to construct and run one engine.Engine.
type Config struct {
	ReflectionLM ReflectionLMConfig `json:"reflection_lm"`
	Run          RunConfig          `json:"run"`
	Selector     SelectorConfig     `json:"selector"`
	StopWhen     StopConfig         `json:"stop_when"`
	Database     DatabaseConfig     `json:"database"`
	Server       ServerConfig       `json:"server"`
}

// ReflectionLMConfig configures the LM used by the default instruction
// proposal routine (internal/adapters/llm).
type ReflectionLMConfig struct {
	Provider    string  `json:"provider"` // "openai_compatible" or "anthropic"
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// RunConfig holds engine-loop behavior not specific to any one strategy.
type RunConfig struct {
	RunDir           string `json:"run_dir"` // empty disables persistence
	Seed             int64  `json:"seed"`
	RaiseOnException bool   `json:"raise_on_exception"`
	UseMerge         bool   `json:"use_merge"`
	MaxMergeInvocations int `json:"max_merge_invocations"`
	ValOverlapFloor  int    `json:"val_overlap_floor"`
	TrackBestOutputs bool   `json:"track_best_outputs"`
}

// SelectorConfig names which candidate/component selector and batch
// sampler and evaluation policy variants to wire up.
type SelectorConfig struct {
	CandidateSelector string  `json:"candidate_selector"` // "pareto", "current_best", "epsilon_greedy"
	Epsilon           float64 `json:"epsilon"`
	ComponentSelector string  `json:"component_selector"` // "round_robin", "all"
	BatchSampler      string  `json:"batch_sampler"`      // "simple_circular", "epoch_shuffled"
	MinibatchSize     int     `json:"minibatch_size"`
	EvaluationPolicy  string  `json:"evaluation_policy"` // "full", "incremental"
	IncrementalS0     int     `json:"incremental_s0"`
	IncrementalDeltaS int     `json:"incremental_delta_s"`
	IncrementalSMax   int     `json:"incremental_s_max"`
	IncrementalThresh float64 `json:"incremental_threshold"`
}

// StopConfig names which stop conditions cmd/gepa composes with stopcond.Any (the run stops when any one fires).
type StopConfig struct {
	MaxMetricCalls  int64   `json:"max_metric_calls"`
	TimeoutSeconds  int64   `json:"timeout_seconds"`
	Patience        int     `json:"no_improvement_patience"`
	ScoreThreshold  float64 `json:"score_threshold"`
	StopFilePath    string  `json:"stop_file_path"`
}

// DatabaseConfig holds the supplementary-history Postgres connection.
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds the optional HTTP status/SSE server.
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

// DefaultConfig returns the configuration a run starts from before the
// config file and environment are layered on top.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	runDir := filepath.Join(homeDir, ".gepa", "runs", "default")

	return &Config{
		ReflectionLM: ReflectionLMConfig{
			Provider:    "openai_compatible",
			URL:         "http://localhost:8000/v1",
			APIKey:      "",
			Model:       "gpt-4o-mini",
			MaxTokens:   4096,
			Temperature: 1.0,
		},
		Run: RunConfig{
			RunDir:              runDir,
			Seed:                0,
			RaiseOnException:    false,
			UseMerge:            true,
			MaxMergeInvocations: 5,
			ValOverlapFloor:     5,
			TrackBestOutputs:    false,
		},
		Selector: SelectorConfig{
			CandidateSelector: "pareto",
			Epsilon:           0.1,
			ComponentSelector: "round_robin",
			BatchSampler:      "epoch_shuffled",
			MinibatchSize:     3,
			EvaluationPolicy:  "full",
			IncrementalS0:     5,
			IncrementalDeltaS: 5,
			IncrementalSMax:   50,
			IncrementalThresh: 0.9,
		},
		StopWhen: StopConfig{
			MaxMetricCalls: 5000,
		},
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8090,
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func envInt64(key string, target *int64) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = i
		}
	}
}

func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load builds a Config from defaults, an optional JSON file, then
// GEPA_-prefixed environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("GEPA_REFLECTION_LM_PROVIDER", &cfg.ReflectionLM.Provider)
	envString("GEPA_REFLECTION_LM_URL", &cfg.ReflectionLM.URL)
	envString("GEPA_REFLECTION_LM_API_KEY", &cfg.ReflectionLM.APIKey)
	envString("GEPA_REFLECTION_LM_MODEL", &cfg.ReflectionLM.Model)
	envInt("GEPA_REFLECTION_LM_MAX_TOKENS", &cfg.ReflectionLM.MaxTokens)
	envFloat("GEPA_REFLECTION_LM_TEMPERATURE", &cfg.ReflectionLM.Temperature)

	envString("GEPA_RUN_DIR", &cfg.Run.RunDir)
	envInt64("GEPA_SEED", &cfg.Run.Seed)
	envBool("GEPA_RAISE_ON_EXCEPTION", &cfg.Run.RaiseOnException)
	envBool("GEPA_USE_MERGE", &cfg.Run.UseMerge)
	envInt("GEPA_MAX_MERGE_INVOCATIONS", &cfg.Run.MaxMergeInvocations)
	envInt("GEPA_VAL_OVERLAP_FLOOR", &cfg.Run.ValOverlapFloor)
	envBool("GEPA_TRACK_BEST_OUTPUTS", &cfg.Run.TrackBestOutputs)

	envString("GEPA_CANDIDATE_SELECTOR", &cfg.Selector.CandidateSelector)
	envFloat("GEPA_EPSILON", &cfg.Selector.Epsilon)
	envString("GEPA_COMPONENT_SELECTOR", &cfg.Selector.ComponentSelector)
	envString("GEPA_BATCH_SAMPLER", &cfg.Selector.BatchSampler)
	envInt("GEPA_MINIBATCH_SIZE", &cfg.Selector.MinibatchSize)
	envString("GEPA_EVALUATION_POLICY", &cfg.Selector.EvaluationPolicy)
	envInt("GEPA_INCREMENTAL_S0", &cfg.Selector.IncrementalS0)
	envInt("GEPA_INCREMENTAL_DELTA_S", &cfg.Selector.IncrementalDeltaS)
	envInt("GEPA_INCREMENTAL_S_MAX", &cfg.Selector.IncrementalSMax)
	envFloat("GEPA_INCREMENTAL_THRESHOLD", &cfg.Selector.IncrementalThresh)

	envInt64("GEPA_MAX_METRIC_CALLS", &cfg.StopWhen.MaxMetricCalls)
	envInt64("GEPA_TIMEOUT_SECONDS", &cfg.StopWhen.TimeoutSeconds)
	envInt("GEPA_NO_IMPROVEMENT_PATIENCE", &cfg.StopWhen.Patience)
	envFloat("GEPA_SCORE_THRESHOLD", &cfg.StopWhen.ScoreThreshold)
	envString("GEPA_STOP_FILE_PATH", &cfg.StopWhen.StopFilePath)

	envString("GEPA_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("GEPA_SERVER_HOST", &cfg.Server.Host)
	envInt("GEPA_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("GEPA_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	if cfg.Run.RunDir != "" {
		if err := os.MkdirAll(cfg.Run.RunDir, 0755); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has internally consistent values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.ReflectionLM.Temperature < 0 || c.ReflectionLM.Temperature > 2 {
		errs = append(errs, "reflection_lm temperature must be between 0 and 2")
	}
	if c.ReflectionLM.MaxTokens < 1 {
		errs = append(errs, "reflection_lm max_tokens must be positive")
	}
	if c.ReflectionLM.Provider == "openai_compatible" {
		if c.ReflectionLM.URL == "" {
			errs = append(errs, "reflection_lm URL is required for provider openai_compatible")
		} else if !isValidURL(c.ReflectionLM.URL) {
			errs = append(errs, "reflection_lm URL must be a valid URL")
		}
	}
	if c.ReflectionLM.Provider != "openai_compatible" && c.ReflectionLM.Provider != "anthropic" {
		errs = append(errs, "reflection_lm provider must be 'openai_compatible' or 'anthropic'")
	}

	switch c.Selector.CandidateSelector {
	case "pareto", "current_best", "epsilon_greedy":
	default:
		errs = append(errs, "candidate_selector must be one of pareto, current_best, epsilon_greedy")
	}
	switch c.Selector.ComponentSelector {
	case "round_robin", "all":
	default:
		errs = append(errs, "component_selector must be one of round_robin, all")
	}
	switch c.Selector.BatchSampler {
	case "simple_circular", "epoch_shuffled":
	default:
		errs = append(errs, "batch_sampler must be one of simple_circular, epoch_shuffled")
	}
	switch c.Selector.EvaluationPolicy {
	case "full", "incremental":
	default:
		errs = append(errs, "evaluation_policy must be one of full, incremental")
	}
	if c.Selector.MinibatchSize < 1 {
		errs = append(errs, "minibatch_size must be positive")
	}

	if c.StopWhen.MaxMetricCalls <= 0 && c.StopWhen.TimeoutSeconds <= 0 &&
		c.StopWhen.Patience <= 0 && c.StopWhen.ScoreThreshold <= 0 && c.StopWhen.StopFilePath == "" {
		errs = append(errs, "at least one stop condition must be configured")
	}

	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "postgres URL must be a valid URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("GEPA_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(homeDir, ".config", "gepa")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".gepa", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
