package config

import "time"

type Config struct {
	ChatModel          string
	TitleModel         string
	MaxGenerationSteps int
	GenerationTimeout  time.Duration
	EntitlementWindow  time.Duration
	ResumeStaleness    time.Duration
}

func NewConfig() *Config {
	return &Config{
		ChatModel:          "gemini-1.5-flash",
		TitleModel:         "gemini-1.5-flash",
		MaxGenerationSteps: 10,
		GenerationTimeout:  60 * time.Second,
		EntitlementWindow:  24 * time.Hour,
		ResumeStaleness:    15 * time.Second,
	}
}
