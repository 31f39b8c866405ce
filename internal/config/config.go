package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transport  TransportConfig  `yaml:"transport"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
	Generation GenerationConfig `yaml:"generation"`
	Redis      RedisConfig      `yaml:"redis"`
	Editor     EditorConfig     `yaml:"editor"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Token, when set, is the bearer token required on HTTP requests.
	Token string `yaml:"token"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GenerationConfig struct {
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Endpoint          string        `yaml:"endpoint"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// RedisConfig selects the change notifier. An empty URL keeps change
// notifications in process.
type RedisConfig struct {
	URL string `yaml:"url"`
}

type EditorConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: ModeStdio,
		},
		DB: DBConfig{
			Path: "pagesmith.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Generation: GenerationConfig{
			RequestsPerMinute: 10,
			Timeout:           60 * time.Second,
		},
		Editor: EditorConfig{
			WriteTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}

	if path := os.Getenv("PAGESMITH_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("PAGESMITH_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PAGESMITH_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAGESMITH_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if token := os.Getenv("PAGESMITH_SERVER_TOKEN"); token != "" {
		cfg.Server.Token = token
	}
	if mode := os.Getenv("PAGESMITH_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("PAGESMITH_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("PAGESMITH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Generation.APIKey = key
	}
	if key := os.Getenv("PAGESMITH_GENERATION_API_KEY"); key != "" {
		cfg.Generation.APIKey = key
	}
	if model := os.Getenv("PAGESMITH_GENERATION_MODEL"); model != "" {
		cfg.Generation.Model = model
	}
	if endpoint := os.Getenv("PAGESMITH_GENERATION_ENDPOINT"); endpoint != "" {
		cfg.Generation.Endpoint = endpoint
	}
	if rpm := os.Getenv("PAGESMITH_GENERATION_REQUESTS_PER_MINUTE"); rpm != "" {
		n, err := strconv.Atoi(rpm)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAGESMITH_GENERATION_REQUESTS_PER_MINUTE: %w", err)
		}
		cfg.Generation.RequestsPerMinute = n
	}
	if timeout := os.Getenv("PAGESMITH_GENERATION_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAGESMITH_GENERATION_TIMEOUT: %w", err)
		}
		cfg.Generation.Timeout = d
	}

	if url := os.Getenv("PAGESMITH_REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if timeout := os.Getenv("PAGESMITH_EDITOR_WRITE_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAGESMITH_EDITOR_WRITE_TIMEOUT: %w", err)
		}
		cfg.Editor.WriteTimeout = d
	}
	if enabled := os.Getenv("PAGESMITH_METRICS_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAGESMITH_METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = b
	}

	if cfg.Transport.Mode != ModeStdio && cfg.Transport.Mode != ModeHTTP {
		return Config{}, fmt.Errorf("invalid transport mode %q", cfg.Transport.Mode)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
