package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string                    `yaml:"listen_addr"`
	Database   DatabaseConfig            `yaml:"database"`
	RabbitMQ   RabbitMQConfig            `yaml:"rabbitmq"`
	Sync       SyncConfig                `yaml:"sync"`
	Platforms  map[string]PlatformConfig `yaml:"platforms"`
	LogLevel   string                    `yaml:"log_level"`
}

// PlatformConfig carries the ambient session material for one platform.
// The cookie string is the session exported from a logged-in browser; an
// empty value means the platform runs without seeded credentials and relies
// on whatever the login probe and harvesters can recover.
type PlatformConfig struct {
	Cookie string `yaml:"cookie"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// Enabled reports whether an event broker is configured at all.
func (r RabbitMQConfig) Enabled() bool { return r.URL != "" }

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether run history should be persisted.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type SyncConfig struct {
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
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

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Enabled() {
		if c.RabbitMQ.Exchange == "" {
			c.RabbitMQ.Exchange = "oneclick"
		}
		if c.RabbitMQ.RoutingKey == "" {
			c.RabbitMQ.RoutingKey = "sync_results"
		}
		if c.RabbitMQ.QueueName == "" {
			c.RabbitMQ.QueueName = "oneclick_sync_results"
		}
	}
	if c.Sync.DispatchTimeout == 0 {
		c.Sync.DispatchTimeout = 30 * time.Second
	}
	if c.Sync.ProbeTimeout == 0 {
		c.Sync.ProbeTimeout = 10 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
