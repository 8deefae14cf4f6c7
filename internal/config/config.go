package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"lifeorganizer/internal/models"
)

// Config holds all application configuration
type Config struct {
	Port string

	// Telegram transport
	TelegramBotToken string

	// Access control: empty list means allow everyone (single-user deployments
	// are expected to set this)
	AllowedUserIDs []int64

	// Rate limiting (sliding window, per user)
	RateLimitWindowSeconds int
	RateLimitMaxRequests   int

	// Classification / matching service (OpenAI-compatible endpoint)
	LLMBaseURL     string
	LLMAPIKey      string
	ClassifyModel  string
	VisionModel    string
	WhisperBaseURL string
	WhisperAPIKey  string
	WhisperModel   string

	// Item store (Notion-compatible API)
	StoreBaseURL   string
	StoreToken     string
	LifeAreasDBID  string
	BrainDumpDBID  string
	ProgressDBID   string
	HabitsDBID     string

	// Scheduler
	SchedulerTimezone string
	MorningCron       string
	EveningCron       string
	NudgeCron         string

	// Default habit seeds file (YAML); empty disables seeding
	HabitSeedsFile string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "3001"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AllowedUserIDs:   parseIDList(getEnv("ALLOWED_USER_IDS", "")),

		RateLimitWindowSeconds: getIntEnv("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxRequests:   getIntEnv("RATE_LIMIT_MAX_REQUESTS", 20),

		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		ClassifyModel:  getEnv("CLASSIFY_MODEL", "llama-3.3-70b-versatile"),
		VisionModel:    getEnv("VISION_MODEL", "llama-3.2-90b-vision-preview"),
		WhisperBaseURL: getEnv("WHISPER_BASE_URL", "https://api.groq.com/openai/v1"),
		WhisperAPIKey:  getEnv("WHISPER_API_KEY", os.Getenv("LLM_API_KEY")),
		WhisperModel:   getEnv("WHISPER_MODEL", "whisper-large-v3"),

		StoreBaseURL:  getEnv("STORE_BASE_URL", "https://api.notion.com/v1"),
		StoreToken:    getEnv("NOTION_TOKEN", ""),
		LifeAreasDBID: getEnv("LIFE_AREAS_DB_ID", ""),
		BrainDumpDBID: getEnv("BRAIN_DUMP_DB_ID", ""),
		ProgressDBID:  getEnv("PROGRESS_DB_ID", ""),
		HabitsDBID:    getEnv("HABITS_DB_ID", ""),

		SchedulerTimezone: getEnv("SCHEDULER_TIMEZONE", "UTC"),
		MorningCron:       getEnv("MORNING_REMINDER_CRON", "0 8 * * *"),
		EveningCron:       getEnv("EVENING_CHECKIN_CRON", "0 20 * * *"),
		NudgeCron:         getEnv("NUDGE_CRON", "0 14 * * *"),

		HabitSeedsFile: getEnv("HABIT_SEEDS_FILE", ""),
	}
}

// HabitSeed is one default habit definition from the seeds file.
type HabitSeed struct {
	Name      string   `yaml:"name"`
	Frequency string   `yaml:"frequency"`
	Times     []string `yaml:"times"`
	Category  string   `yaml:"category"`
	XPReward  int      `yaml:"xp_reward"`
}

// LoadHabitSeeds parses the YAML habit seeds file into specs ready for the
// habit service.
func LoadHabitSeeds(filePath string) ([]models.HabitSpec, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read habit seeds file: %w", err)
	}

	var raw struct {
		Habits []HabitSeed `yaml:"habits"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse habit seeds YAML: %w", err)
	}

	specs := make([]models.HabitSpec, 0, len(raw.Habits))
	for _, h := range raw.Habits {
		if strings.TrimSpace(h.Name) == "" {
			continue
		}
		spec := models.HabitSpec{
			Name:      h.Name,
			Frequency: models.ParseFrequency(h.Frequency),
			Category:  models.ParseCategory(h.Category),
			XPReward:  h.XPReward,
		}
		for _, t := range h.Times {
			spec.Times = append(spec.Times, models.ParseTimeOfDay(t))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseIDList(value string) []int64 {
	if value == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
