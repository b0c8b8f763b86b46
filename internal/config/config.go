package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	API       APIConfig       `yaml:"api"`
	LogLevel  string          `yaml:"log_level"`
}

// RabbitMQConfig configures ingestion events. An empty URL disables them.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// DatabaseConfig fields can be overridden with the DB_* environment
// variables.
type DatabaseConfig struct {
	Host         string `yaml:"host" envconfig:"DB_HOST"`
	Port         int    `yaml:"port" envconfig:"DB_PORT"`
	User         string `yaml:"user" envconfig:"DB_USER"`
	Password     string `yaml:"password" envconfig:"DB_PASSWORD"`
	DBName       string `yaml:"dbname" envconfig:"DB_NAME"`
	SSLMode      string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	Schema       string `yaml:"schema" envconfig:"DB_SCHEMA"`
	MaxOpenConns int    `yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
}

func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.Schema != "" {
		dsn += " search_path=" + d.Schema
	}
	return dsn
}

type FeedsConfig struct {
	// TemplateBase is the topic URL prefix; the topic code is appended.
	TemplateBase      string        `yaml:"template_base"`
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	PriorityCountries []string      `yaml:"priority_countries"`
}

type IngestConfig struct {
	// MaxConsecutiveExisting ends a feed after that many known items in a
	// row. Zero selects the default of 10; a negative value disables it.
	MaxConsecutiveExisting int `yaml:"max_consecutive_existing"`
}

type GeocodingConfig struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	MinDelay    time.Duration `yaml:"min_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type ScheduleConfig struct {
	Cron     string        `yaml:"cron"`
	Timezone string        `yaml:"timezone"`
	Timeout  time.Duration `yaml:"timeout"`
	// MetricsAddr, when set, exposes /metrics from the scheduler process.
	MetricsAddr string `yaml:"metrics_addr"`
}

type APIConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, fmt.Errorf("database env overrides: %w", err)
	}

	cfg.setDefaults()

	for i, code := range cfg.Feeds.PriorityCountries {
		cfg.Feeds.PriorityCountries[i] = strings.ToUpper(strings.TrimSpace(code))
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 1
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "maptimes"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "articles"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "new_articles"
	}
	if c.Feeds.TemplateBase == "" {
		c.Feeds.TemplateBase = "https://news.google.com/rss/topics/"
	}
	if c.Feeds.Timeout == 0 {
		c.Feeds.Timeout = 10 * time.Second
	}
	if c.Feeds.UserAgent == "" {
		c.Feeds.UserAgent = "maptimes/1.0"
	}
	if len(c.Feeds.PriorityCountries) == 0 {
		c.Feeds.PriorityCountries = []string{"DE", "US"}
	}
	if c.Ingest.MaxConsecutiveExisting == 0 {
		c.Ingest.MaxConsecutiveExisting = 10
	}
	if c.Geocoding.BaseURL == "" {
		c.Geocoding.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoding.UserAgent == "" {
		c.Geocoding.UserAgent = "maptimes/1.0"
	}
	if c.Geocoding.Timeout == 0 {
		c.Geocoding.Timeout = 2 * time.Second
	}
	if c.Geocoding.MinDelay == 0 {
		// Nominatim usage policy: at most one request per second.
		c.Geocoding.MinDelay = 1 * time.Second
	}
	if c.Geocoding.MaxAttempts == 0 {
		c.Geocoding.MaxAttempts = 1
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 * * * *"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Schedule.Timeout == 0 {
		c.Schedule.Timeout = 2 * time.Hour
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8000"
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 60 * time.Second
	}
	if c.API.DefaultPageSize == 0 {
		c.API.DefaultPageSize = 200
	}
	if c.API.MaxPageSize == 0 {
		c.API.MaxPageSize = 1000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
