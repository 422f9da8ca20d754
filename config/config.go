package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
	Mail      MailConfig      `yaml:"mail"`
	Company   CompanyConfig   `yaml:"company"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Log       LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

// MessagingConfig selects the event transport. Backend is "kafka", "mqtt" or "none".
type MessagingConfig struct {
	Backend             string        `yaml:"backend"`
	Kafka               KafkaConfig   `yaml:"kafka"`
	MQTT                MQTTConfig    `yaml:"mqtt"`
	EventsTopic         string        `yaml:"events_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// CompanyConfig is printed in the header of every generated PDF.
type CompanyConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
}

type LifecycleConfig struct {
	LockTTL          time.Duration `yaml:"lock_ttl"`
	ScheduleHorizon  time.Duration `yaml:"schedule_horizon"`
	RepairFollowUp   time.Duration `yaml:"repair_follow_up"`
	InspectionPeriod time.Duration `yaml:"inspection_period"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "gasflow.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "gasflow",
				User:     "gasflow",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8090,
			SessionSecret: "change-me-in-production",
		},
		Messaging: MessagingConfig{
			Backend: "none",
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
			},
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "gasflow",
			},
			EventsTopic:         "gasflow.events",
			OutboxDrainInterval: 5 * time.Second,
		},
		Mail: MailConfig{
			Host: "localhost",
			Port: 25,
			From: "noreply@gasflow.local",
		},
		Company: CompanyConfig{
			Name: "GasFlow Distribution",
		},
		Lifecycle: LifecycleConfig{
			LockTTL:          30 * time.Second,
			ScheduleHorizon:  90 * 24 * time.Hour,
			RepairFollowUp:   24 * time.Hour,
			InspectionPeriod: 365 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over Defaults, then applies environment
// overrides (optionally sourced from a .env file next to the process).
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	godotenv.Load()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("GASFLOW_DB_DRIVER", &c.Database.Driver)
	setString("GASFLOW_DB_PATH", &c.Database.SQLite.Path)
	setString("GASFLOW_PG_HOST", &c.Database.Postgres.Host)
	setString("GASFLOW_PG_PASSWORD", &c.Database.Postgres.Password)
	setString("GASFLOW_SESSION_SECRET", &c.Web.SessionSecret)
	setString("GASFLOW_SMTP_PASSWORD", &c.Mail.Password)
	setString("GASFLOW_REDIS_ADDRESS", &c.Redis.Address)
	setString("GASFLOW_MESSAGING_BACKEND", &c.Messaging.Backend)
	if v := os.Getenv("GASFLOW_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Web.Port = port
		}
	}
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()   { c.mu.Lock() }
func (c *Config) Unlock() { c.mu.Unlock() }
