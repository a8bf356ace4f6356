package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	MLService struct {
		URL            string `yaml:"url"`
		Enabled        bool   `yaml:"enabled"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"ml_service"`

	Groq struct {
		APIKey         string `yaml:"api_key"`
		ModelName      string `yaml:"model_name"`
		MaxRetries     int    `yaml:"max_retries"`
		RetryDelaySecs int64  `yaml:"retry_delay_seconds"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"groq"`

	OCRService struct {
		URL     string `yaml:"url"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"ocr_service"`

	// Blend exposes the scoring constants so they are named configuration
	// rather than numbers buried in the blender.
	Blend struct {
		LocalWeight   float64 `yaml:"local_weight"`
		RemoteWeight  float64 `yaml:"remote_weight"`
		ScamThreshold float64 `yaml:"scam_threshold"`
	} `yaml:"blend"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Defaults
	if config.Server.Port == "" {
		config.Server.Port = "8000"
	}
	if config.Database.Path == "" {
		config.Database.Path = "./data/scamshield.db"
	}
	if config.MLService.TimeoutSeconds == 0 {
		config.MLService.TimeoutSeconds = 2
	}
	if config.Groq.ModelName == "" {
		config.Groq.ModelName = "llama-3.1-8b-instant"
	}
	if config.Groq.MaxRetries == 0 {
		config.Groq.MaxRetries = 3
	}
	if config.Groq.RetryDelaySecs == 0 {
		config.Groq.RetryDelaySecs = 2
	}
	if config.Groq.TimeoutSeconds == 0 {
		config.Groq.TimeoutSeconds = 30
	}
	if config.Blend.LocalWeight == 0 && config.Blend.RemoteWeight == 0 {
		config.Blend.LocalWeight = 0.4
		config.Blend.RemoteWeight = 0.6
	}
	if config.Blend.ScamThreshold == 0 {
		config.Blend.ScamThreshold = 0.5
	}

	// Expand environment variables in the API key
	config.Groq.APIKey = os.ExpandEnv(config.Groq.APIKey)

	return config, nil
}
