package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all environment variables.
const EnvPrefix = "MEETING_ASSISTANT_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr            string  `yaml:"listen_addr"`
	DBPath                string  `yaml:"db_path"`
	AudioDir              string  `yaml:"audio_dir"`
	ExportDir             string  `yaml:"export_dir"`
	ChunkDuration         string  `yaml:"chunk_duration"`
	SilenceTimeout        string  `yaml:"silence_timeout"`
	HeartbeatInterval     string  `yaml:"heartbeat_interval"`
	IdleTimeout           string  `yaml:"idle_timeout"`
	StageTimeout          string  `yaml:"stage_timeout"`
	QueueDepth            int     `yaml:"queue_depth"`
	MinJargonScore        float64 `yaml:"min_jargon_score"`
	MaxJargonTerms        int     `yaml:"max_jargon_terms"`
	MaxSummaryInput       int     `yaml:"max_summary_input"`
	MicSampleRate         int     `yaml:"mic_sample_rate"`
	MicSampleRates        []int   `yaml:"mic_sample_rates"`
	OpenAIModel           string  `yaml:"openai_model"`
	SummaryModel          string  `yaml:"summary_model"`
	DeepgramModel         string  `yaml:"deepgram_model"`
	GDriveFolderID        string  `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string  `yaml:"google_credentials_file"`

	// Secrets: env vars only, never serialized to YAML.
	DeepgramAPIKey  string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:            ":8080",
		DBPath:                "data/meeting-assistant.db",
		AudioDir:              "data/audio",
		ExportDir:             "data/exports",
		ChunkDuration:         "15s",
		SilenceTimeout:        "5m",
		HeartbeatInterval:     "30s",
		IdleTimeout:           "30m",
		StageTimeout:          "60s",
		QueueDepth:            8,
		MinJargonScore:        0.5,
		MaxJargonTerms:        10,
		MaxSummaryInput:       1024,
		MicSampleRate:         16000,
		MicSampleRates:        []int{48000, 44100, 32000, 24000},
		OpenAIModel:           "gpt-4o-mini",
		DeepgramModel:         "nova-2",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedChunkDuration returns ChunkDuration as a time.Duration,
// falling back to 15s if the value is invalid.
func (c *Config) ParsedChunkDuration() time.Duration {
	return parseDurationOr(c.ChunkDuration, 15*time.Second)
}

// ParsedSilenceTimeout returns SilenceTimeout as a time.Duration,
// falling back to 5m if the value is invalid.
func (c *Config) ParsedSilenceTimeout() time.Duration {
	return parseDurationOr(c.SilenceTimeout, 5*time.Minute)
}

// ParsedHeartbeatInterval returns HeartbeatInterval as a time.Duration,
// falling back to 30s if the value is invalid.
func (c *Config) ParsedHeartbeatInterval() time.Duration {
	return parseDurationOr(c.HeartbeatInterval, 30*time.Second)
}

// ParsedIdleTimeout returns IdleTimeout as a time.Duration,
// falling back to 30m if the value is invalid.
func (c *Config) ParsedIdleTimeout() time.Duration {
	return parseDurationOr(c.IdleTimeout, 30*time.Minute)
}

// ParsedStageTimeout returns StageTimeout as a time.Duration,
// falling back to 60s if the value is invalid.
func (c *Config) ParsedStageTimeout() time.Duration {
	return parseDurationOr(c.StageTimeout, 60*time.Second)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// SampleRateCandidates returns a deduplicated ordered list of sample rates
// to try: preferred rate first, then configured alternatives, then defaults.
func (c *Config) SampleRateCandidates() []int {
	hardcoded := []int{16000, 48000, 44100, 32000, 24000}

	combined := make([]int, 0, 1+len(c.MicSampleRates)+len(hardcoded))
	combined = append(combined, c.MicSampleRate)
	combined = append(combined, c.MicSampleRates...)
	combined = append(combined, hardcoded...)

	seen := make(map[int]struct{}, len(combined))
	result := make([]int, 0, len(combined))
	for _, rate := range combined {
		if rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}
	return result
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "AUDIO_DIR"); v != "" {
		cfg.AudioDir = v
	}
	if v := os.Getenv(EnvPrefix + "EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}
	if v := os.Getenv(EnvPrefix + "CHUNK_DURATION"); v != "" {
		cfg.ChunkDuration = v
	}
	if v := os.Getenv(EnvPrefix + "SILENCE_TIMEOUT"); v != "" {
		cfg.SilenceTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "HEARTBEAT_INTERVAL"); v != "" {
		cfg.HeartbeatInterval = v
	}
	if v := os.Getenv(EnvPrefix + "IDLE_TIMEOUT"); v != "" {
		cfg.IdleTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "STAGE_TIMEOUT"); v != "" {
		cfg.StageTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "QUEUE_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && depth > 0 {
			cfg.QueueDepth = depth
		}
	}
	if v := os.Getenv(EnvPrefix + "MIN_JARGON_SCORE"); v != "" {
		if score, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && score > 0 && score <= 1 {
			cfg.MinJargonScore = score
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_JARGON_TERMS"); v != "" {
		if terms, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && terms > 0 {
			cfg.MaxJargonTerms = terms
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_SUMMARY_INPUT"); v != "" {
		if size, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && size > 0 {
			cfg.MaxSummaryInput = size
		}
	}
	if v := os.Getenv(EnvPrefix + "MIC_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && rate > 0 {
			cfg.MicSampleRate = rate
		}
	}
	if v := os.Getenv(EnvPrefix + "MIC_SAMPLE_RATES"); v != "" {
		cfg.MicSampleRates = parseSampleRates(v)
	}
	if v := os.Getenv(EnvPrefix + "OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv(EnvPrefix + "SUMMARY_MODEL"); v != "" {
		cfg.SummaryModel = v
	}
	if v := os.Getenv(EnvPrefix + "DEEPGRAM_MODEL"); v != "" {
		cfg.DeepgramModel = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
}

// SummaryAPIKey returns the key matching the summary_model provider prefix.
func (c *Config) SummaryAPIKey(provider string) string {
	switch provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured; speaker identification is disabled. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if cfg.OpenAIAPIKey == "" {
		warnings = append(warnings, "OpenAI API key not configured; transcription and summaries are disabled. Set "+EnvPrefix+"OPENAI_API_KEY.")
	}
	if _, err := time.ParseDuration(cfg.ChunkDuration); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid chunk_duration %q, using default 15s.", cfg.ChunkDuration))
	}
	if _, err := time.ParseDuration(cfg.SilenceTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid silence_timeout %q, using default 5m.", cfg.SilenceTimeout))
	}
	if _, err := time.ParseDuration(cfg.StageTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid stage_timeout %q, using default 60s.", cfg.StageTimeout))
	}

	return warnings
}

func parseSampleRates(raw string) []int {
	parts := strings.Split(raw, ",")
	seen := make(map[int]struct{}, len(parts))
	result := make([]int, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		rate, err := strconv.Atoi(trimmed)
		if err != nil || rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}

	return result
}
