package router

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gopkg.in/yaml.v3"
)

// Config defines the router's broker endpoint, mailbox topology and
// connection behavior.
type Config struct {
	// URL wins over the Host/VHost/credential fields when set.
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	VHost    string `yaml:"vhost"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// InputQueue is the mailbox this process consumes; OutputQueue is the
	// default destination for auto-routed publishes.
	InputQueue  string `yaml:"input_queue"`
	OutputQueue string `yaml:"output_queue"`

	Prefetch int `yaml:"prefetch"`

	// TempQueueTTL bounds the lifetime of ephemeral reply mailboxes created
	// by the invocation facade.
	TempQueueTTL time.Duration `yaml:"temp_queue_ttl"`

	DialAttempts int           `yaml:"dial_attempts"`
	DialDelay    time.Duration `yaml:"dial_delay"`

	// Dialer overrides broker dialing, mainly for tests.
	Dialer func(ctx context.Context, url string) (*amqp.Connection, error) `yaml:"-"`
}

func (c *Config) applyDefaults() {
	if c.OutputQueue == "" {
		c.OutputQueue = "dialog-router"
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 1
	}
	if c.TempQueueTTL <= 0 {
		c.TempQueueTTL = 2 * time.Minute
	}
	if c.DialAttempts <= 0 {
		c.DialAttempts = 5
	}
	if c.DialDelay <= 0 {
		c.DialDelay = time.Second
	}
}

func (c Config) brokerURL() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "amqp",
		Host:   c.Host,
		Path:   "/" + c.VHost,
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}
