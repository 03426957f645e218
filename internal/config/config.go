package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Feed    FeedConfig    `yaml:"feed"`
	Console ConsoleConfig `yaml:"console"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the remote mail service client.
type APIConfig struct {
	Origin  string `yaml:"origin"`  // base URL, e.g. http://localhost:9000
	Token   string `yaml:"token"`   // session bearer token, provided by the surrounding app
	Timeout int    `yaml:"timeout"` // per-request timeout in seconds
}

// FeedConfig configures the push-event feed transport.
type FeedConfig struct {
	Provider string `yaml:"provider"` // websocket, nats, memory
	URL      string `yaml:"url"`      // websocket endpoint or NATS server URL
	Stream   string `yaml:"stream"`   // stream name for the pubsub providers
	BufSize  int    `yaml:"buf_size"` // event channel buffer
}

// ConsoleConfig configures the console's own HTTP surface.
type ConsoleConfig struct {
	Listen     string `yaml:"listen"`      // address for the view handler
	PageSize   int    `yaml:"page_size"`   // default rows per page
	BranchCode string `yaml:"branch_code"` // branch this console instance serves
}

// LoadConfig loads configuration from files and environment variables.
// Order: defaults -> config.yml -> config.local.yml -> env overrides -> Validate
func LoadConfig() *Config {
	cfg := DefaultConfig()

	loadFile("config/config.yml", cfg)
	loadFile("config/config.local.yml", cfg)

	cfg.ApplyDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	return cfg
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Origin:  "http://localhost:9000",
			Timeout: 30,
		},
		Feed: FeedConfig{
			Provider: "websocket",
			URL:      "ws://localhost:9000/feed",
			Stream:   "MAILTRACK",
			BufSize:  100,
		},
		Console: ConsoleConfig{
			Listen:   ":8080",
			PageSize: 10,
		},
		Logging: DefaultLoggingConfig(),
	}
}

// ApplyDefaults fills in missing values with defaults
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.API.Origin == "" {
		c.API.Origin = d.API.Origin
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.Feed.Provider == "" {
		c.Feed.Provider = d.Feed.Provider
	}
	if c.Feed.URL == "" {
		c.Feed.URL = d.Feed.URL
	}
	if c.Feed.Stream == "" {
		c.Feed.Stream = d.Feed.Stream
	}
	if c.Feed.BufSize <= 0 {
		c.Feed.BufSize = d.Feed.BufSize
	}
	if c.Console.Listen == "" {
		c.Console.Listen = d.Console.Listen
	}
	if c.Console.PageSize <= 0 {
		c.Console.PageSize = d.Console.PageSize
	}
	c.Logging.ApplyDefaults()
}

// ApplyEnvOverrides applies environment variable overrides
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MAILTRACK_API_ORIGIN"); v != "" {
		c.API.Origin = v
	}
	if v := os.Getenv("MAILTRACK_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("MAILTRACK_FEED_PROVIDER"); v != "" {
		c.Feed.Provider = v
	}
	if v := os.Getenv("MAILTRACK_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("MAILTRACK_LISTEN"); v != "" {
		c.Console.Listen = v
	}
	if v := os.Getenv("MAILTRACK_BRANCH_CODE"); v != "" {
		c.Console.BranchCode = v
	}
	if v := os.Getenv("MAILTRACK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Feed.Provider {
	case "websocket", "nats", "memory":
	default:
		return fmt.Errorf("invalid feed provider: %s (must be websocket, nats, or memory)", c.Feed.Provider)
	}

	if c.API.Origin == "" {
		return fmt.Errorf("api origin cannot be empty")
	}

	return c.Logging.Validate()
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}
