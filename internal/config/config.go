package config

import (
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Seoul"
	configPathEnv   = "NEWSDIGEST_CONFIG"
	accountsEnv     = "NEWSDIGEST_ACCOUNTS"
	fetchHoursEnv   = "FETCH_HOURS"
	instancesEnv    = "NITTER_INSTANCES"
	feedTimeoutEnv  = "FEED_TIMEOUT"
	maxNewsEnv      = "MAX_NEWS_PER_CATEGORY"
	minNewsEnv      = "MIN_NEWS_PER_CATEGORY"
	aiProviderEnv   = "AI_PROVIDER"
	aiAPIKeyEnv     = "AI_API_KEY"
	geminiKeyEnv    = "GEMINI_API_KEY"
	openAIKeyEnv    = "OPENAI_API_KEY"
	anthropicKeyEnv = "ANTHROPIC_API_KEY"
	aiModelsEnv     = "AI_MODELS"
	aiOverrideEnv   = "AI_MODEL_OVERRIDE"
	aiChunkSizeEnv  = "AI_CHUNK_SIZE"
	aiChunkDelayEnv = "AI_CHUNK_DELAY"
	aiBackoffEnv    = "AI_BACKOFF_BASE"
	aiAttemptsEnv   = "AI_MAX_ATTEMPTS"
	databaseDSNEnv  = "DATABASE_DSN"
	redisURLEnv     = "REDIS_URL"
	telegramToken   = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv = "TELEGRAM_CHANNEL_ID"
	intervalEnv     = "SCHEDULE_INTERVAL"
	logLevelEnv     = "LOG_LEVEL"

	// MaxCollectorWorkers caps parallel account fetches.
	MaxCollectorWorkers = 8
)

// Config holds high-level settings required across the application.
type Config struct {
	Accounts      []string                  `yaml:"accounts"`
	Categories    map[string]CategoryConfig `yaml:"categories"`
	Collector     CollectorConfig           `yaml:"collector"`
	AI            AIConfig                  `yaml:"ai"`
	Ranking       RankingConfig             `yaml:"ranking"`
	Notifications NotificationConfig        `yaml:"notifications"`
	Queue         QueueConfig               `yaml:"queue"`
	Database      DatabaseConfig            `yaml:"database"`
	Scheduler     SchedulerConfig           `yaml:"scheduler"`
	Logging       LoggingConfig             `yaml:"logging"`
}

// CategoryConfig lists the keywords used by the fallback classifier.
type CategoryConfig struct {
	Keywords []string `yaml:"keywords"`
}

// CollectorConfig controls mirror fetching and the lookback window.
type CollectorConfig struct {
	WindowHours     float64       `yaml:"windowHours"`
	Instances       []string      `yaml:"instances"`
	Timeout         time.Duration `yaml:"timeout"`
	AccountDelay    time.Duration `yaml:"accountDelay"`
	Workers         int           `yaml:"workers"`
	CanonicalDomain string        `yaml:"canonicalDomain"`
}

// AIConfig defines how to contact the text-generation service.
type AIConfig struct {
	Provider         string        `yaml:"provider"`
	Endpoint         string        `yaml:"endpoint"`
	APIKey           string        `yaml:"apiKey"`
	Models           []string      `yaml:"models"`
	ModelOverride    string        `yaml:"modelOverride"`
	Timeout          time.Duration `yaml:"timeout"`
	TranslateTimeout time.Duration `yaml:"translateTimeout"`
	ChunkSize        int           `yaml:"chunkSize"`
	ChunkDelay       time.Duration `yaml:"chunkDelay"`
	BackoffBase      time.Duration `yaml:"backoffBase"`
	MaxAttempts      int           `yaml:"maxAttempts"`
	Temperature      float64       `yaml:"temperature"`
	MaxTokens        int           `yaml:"maxTokens"`
}

// RankingConfig bounds the per-category output and scoring weights.
type RankingConfig struct {
	MaxPerCategory int           `yaml:"maxPerCategory"`
	MinPerCategory int           `yaml:"minPerCategory"`
	Weights        WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds the composite score constants.
type WeightsConfig struct {
	OverlapMultiplier   float64 `yaml:"overlapMultiplier"`
	OverlapCap          float64 `yaml:"overlapCap"`
	ImportanceWeight    float64 `yaml:"importanceWeight"`
	RecencyMax          float64 `yaml:"recencyMax"`
	RecencyHorizonHours float64 `yaml:"recencyHorizonHours"`
	EngagementDivisor   float64 `yaml:"engagementDivisor"`
	EngagementCap       float64 `yaml:"engagementCap"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// QueueConfig describes the Redis handoff list.
type QueueConfig struct {
	RedisURL string `yaml:"redisUrl"`
	Key      string `yaml:"key"`
}

// DatabaseConfig describes the audit store connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines how often daemon mode runs a cycle.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := Parse(raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	cfg.bindTimezone()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Keywords returns the fallback keyword list for a category slug.
func (c Config) Keywords(slug string) []string {
	return c.Categories[slug].Keywords
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(accountsEnv); v != "" {
		c.Accounts = splitList(v)
	}
	if v := os.Getenv(instancesEnv); v != "" {
		c.Collector.Instances = splitList(v)
	}
	envFloat(fetchHoursEnv, &c.Collector.WindowHours)
	envDuration(feedTimeoutEnv, &c.Collector.Timeout)

	envInt(maxNewsEnv, &c.Ranking.MaxPerCategory)
	envInt(minNewsEnv, &c.Ranking.MinPerCategory)

	if v := os.Getenv(aiProviderEnv); v != "" {
		c.AI.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := providerKey(c.AI.Provider); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv(aiAPIKeyEnv); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv(aiModelsEnv); v != "" {
		c.AI.Models = splitList(v)
	}
	if v := os.Getenv(aiOverrideEnv); v != "" {
		c.AI.ModelOverride = strings.TrimSpace(v)
	}
	envInt(aiChunkSizeEnv, &c.AI.ChunkSize)
	envDuration(aiChunkDelayEnv, &c.AI.ChunkDelay)
	envDuration(aiBackoffEnv, &c.AI.BackoffBase)
	envInt(aiAttemptsEnv, &c.AI.MaxAttempts)

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(redisURLEnv); v != "" {
		c.Queue.RedisURL = v
	}
	if v := os.Getenv(telegramToken); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	envDuration(intervalEnv, &c.Scheduler.Interval)
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func providerKey(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv(openAIKeyEnv)
	case ProviderAnthropic:
		return os.Getenv(anthropicKeyEnv)
	default:
		return os.Getenv(geminiKeyEnv)
	}
}

// normalize clamps values that would break the pipeline back to defaults.
func (c *Config) normalize() {
	def := defaultConfig()

	if c.Collector.WindowHours <= 0 {
		c.Collector.WindowHours = def.Collector.WindowHours
	}
	if c.Collector.Workers < 1 {
		c.Collector.Workers = 1
	}
	if c.Collector.Workers > MaxCollectorWorkers {
		c.Collector.Workers = MaxCollectorWorkers
	}
	if c.Ranking.MaxPerCategory <= 0 {
		c.Ranking.MaxPerCategory = def.Ranking.MaxPerCategory
	}
	if c.Ranking.MinPerCategory < 0 || c.Ranking.MinPerCategory > c.Ranking.MaxPerCategory {
		c.Ranking.MinPerCategory = min(def.Ranking.MinPerCategory, c.Ranking.MaxPerCategory)
	}
	if c.AI.ChunkSize <= 0 {
		c.AI.ChunkSize = def.AI.ChunkSize
	}
	if c.AI.MaxAttempts <= 0 {
		c.AI.MaxAttempts = def.AI.MaxAttempts
	}
	if len(c.Categories) == 0 {
		c.Categories = def.Categories
	}
	c.applyProviderPreset()
}

// applyProviderPreset swaps the built-in endpoint and model chain for the
// selected provider's when they were left at the Gemini defaults.
func (c *Config) applyProviderPreset() {
	if c.AI.Provider == "" {
		c.AI.Provider = ProviderGemini
	}
	preset, ok := providerDefaults[c.AI.Provider]
	if !ok || c.AI.Provider == ProviderGemini {
		return
	}
	gemini := providerDefaults[ProviderGemini]
	if c.AI.Endpoint == gemini.endpoint {
		c.AI.Endpoint = preset.endpoint
	}
	if slices.Equal(c.AI.Models, gemini.models) {
		c.AI.Models = slices.Clone(preset.models)
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if len(override.Accounts) > 0 {
		base.Accounts = override.Accounts
	}
	if len(override.Categories) > 0 {
		base.Categories = override.Categories
	}

	if override.Collector.WindowHours > 0 {
		base.Collector.WindowHours = override.Collector.WindowHours
	}
	if len(override.Collector.Instances) > 0 {
		base.Collector.Instances = override.Collector.Instances
	}
	if override.Collector.Timeout > 0 {
		base.Collector.Timeout = override.Collector.Timeout
	}
	if override.Collector.AccountDelay > 0 {
		base.Collector.AccountDelay = override.Collector.AccountDelay
	}
	if override.Collector.Workers > 0 {
		base.Collector.Workers = override.Collector.Workers
	}
	if override.Collector.CanonicalDomain != "" {
		base.Collector.CanonicalDomain = override.Collector.CanonicalDomain
	}

	if override.AI.Provider != "" {
		base.AI.Provider = override.AI.Provider
	}
	if override.AI.Endpoint != "" {
		base.AI.Endpoint = override.AI.Endpoint
	}
	if override.AI.APIKey != "" {
		base.AI.APIKey = override.AI.APIKey
	}
	if len(override.AI.Models) > 0 {
		base.AI.Models = override.AI.Models
	}
	if override.AI.ModelOverride != "" {
		base.AI.ModelOverride = override.AI.ModelOverride
	}
	if override.AI.Timeout > 0 {
		base.AI.Timeout = override.AI.Timeout
	}
	if override.AI.TranslateTimeout > 0 {
		base.AI.TranslateTimeout = override.AI.TranslateTimeout
	}
	if override.AI.ChunkSize > 0 {
		base.AI.ChunkSize = override.AI.ChunkSize
	}
	if override.AI.ChunkDelay > 0 {
		base.AI.ChunkDelay = override.AI.ChunkDelay
	}
	if override.AI.BackoffBase > 0 {
		base.AI.BackoffBase = override.AI.BackoffBase
	}
	if override.AI.MaxAttempts > 0 {
		base.AI.MaxAttempts = override.AI.MaxAttempts
	}
	if override.AI.Temperature > 0 {
		base.AI.Temperature = override.AI.Temperature
	}
	if override.AI.MaxTokens > 0 {
		base.AI.MaxTokens = override.AI.MaxTokens
	}

	if override.Ranking.MaxPerCategory > 0 {
		base.Ranking.MaxPerCategory = override.Ranking.MaxPerCategory
	}
	if override.Ranking.MinPerCategory > 0 {
		base.Ranking.MinPerCategory = override.Ranking.MinPerCategory
	}
	base.Ranking.Weights = mergeWeights(base.Ranking.Weights, override.Ranking.Weights)

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Queue.RedisURL != "" {
		base.Queue.RedisURL = override.Queue.RedisURL
	}
	if override.Queue.Key != "" {
		base.Queue.Key = override.Queue.Key
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func mergeWeights(base, override WeightsConfig) WeightsConfig {
	if override.OverlapMultiplier > 0 {
		base.OverlapMultiplier = override.OverlapMultiplier
	}
	if override.OverlapCap > 0 {
		base.OverlapCap = override.OverlapCap
	}
	if override.ImportanceWeight > 0 {
		base.ImportanceWeight = override.ImportanceWeight
	}
	if override.RecencyMax > 0 {
		base.RecencyMax = override.RecencyMax
	}
	if override.RecencyHorizonHours > 0 {
		base.RecencyHorizonHours = override.RecencyHorizonHours
	}
	if override.EngagementDivisor > 0 {
		base.EngagementDivisor = override.EngagementDivisor
	}
	if override.EngagementCap > 0 {
		base.EngagementCap = override.EngagementCap
	}
	return base
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: invalid %s=%q: %v (ignored)", key, v, err)
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("config: invalid %s=%q: %v (ignored)", key, v, err)
		return
	}
	*dst = f
}

// envDuration accepts Go durations ("1500ms") or plain seconds ("1.5").
func envDuration(key string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q (ignored)", key, v)
		return
	}
	*dst = time.Duration(secs * float64(time.Second))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
