package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	Scraper   ScraperConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogFile        string
	AllowedOrigins []string
}

type CacheConfig struct {
	DBPath string
	TTL    time.Duration
}

type ScraperConfig struct {
	GroqAPIKey    string
	FetchTimeout  time.Duration
	ProbeTimeout  time.Duration
	Parallelism   int
	RenderedFetch bool
}

type SchedulerConfig struct {
	TrackSchedule string
}

// Load reads .env from the working directory when present; environment variables take precedence.
func Load() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "9090")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CACHE_DB_PATH", "./cache.db")
	v.SetDefault("CACHE_TTL_MINUTES", 1440)
	v.SetDefault("FETCH_TIMEOUT_SECONDS", 30)
	v.SetDefault("PROBE_TIMEOUT_SECONDS", 5)
	v.SetDefault("SEARCH_PARALLELISM", 3)
	v.SetDefault("RENDERED_FETCH", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("TRACK_SCHEDULE", "0 0 */12 * * *")

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogFile:        v.GetString("LOG_FILE"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Cache: CacheConfig{
			DBPath: v.GetString("CACHE_DB_PATH"),
			TTL:    time.Duration(v.GetInt("CACHE_TTL_MINUTES")) * time.Minute,
		},
		Scraper: ScraperConfig{
			GroqAPIKey:    v.GetString("GROQ_API_KEY"),
			FetchTimeout:  time.Duration(v.GetInt("FETCH_TIMEOUT_SECONDS")) * time.Second,
			ProbeTimeout:  time.Duration(v.GetInt("PROBE_TIMEOUT_SECONDS")) * time.Second,
			Parallelism:   v.GetInt("SEARCH_PARALLELISM"),
			RenderedFetch: v.GetBool("RENDERED_FETCH"),
		},
		Scheduler: SchedulerConfig{
			TrackSchedule: v.GetString("TRACK_SCHEDULE"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
