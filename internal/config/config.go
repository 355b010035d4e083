package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ConsoleURL    string
	AuthFile      string
	DataDir       string
	Days          int
	Headless      bool
	BrowserBin    string
	SelectorsFile string
	Port          int
	LogLevel      string
	DatabaseURL   string
	NatsURL       string
	NatsToken     string
	SlackBotToken string
	SlackChannel  string
	RowTimeout    time.Duration
	RiskAnalysis  bool
}

func Load() Config {
	return Config{
		ConsoleURL:    envStr("SCRIBE_URL", "https://im.jinritemai.com/pc_seller_v2/main/data/historyConversation"),
		AuthFile:      envStr("SCRIBE_AUTH_FILE", "auth.json"),
		DataDir:       envStr("SCRIBE_DATA_DIR", "./data"),
		Days:          envInt("SCRIBE_DAYS", 7),
		Headless:      envBool("SCRIBE_HEADLESS", true),
		BrowserBin:    envStr("SCRIBE_BROWSER_BIN", ""),
		SelectorsFile: envStr("SCRIBE_SELECTORS_FILE", ""),
		Port:          envInt("SCRIBE_PORT", 8760),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_SCRIBE_CHANNEL", ""),
		RowTimeout:    envDuration("SCRIBE_ROW_TIMEOUT", 2*time.Minute),
		RiskAnalysis:  envBool("SCRIBE_RISK_ANALYSIS", true),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
