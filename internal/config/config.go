package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	IMAPHost     string `env:"IMAP_HOST" envDefault:"imap.gmail.com"`
	IMAPPort     int    `env:"IMAP_PORT" envDefault:"993"`
	EmailAccount string `env:"EMAIL_ACCOUNT"`
	IMAPPassword string `env:"IMAP_PASSWORD"`
	EmailFolder  string `env:"EMAIL_FOLDER"`
	OutPath      string `env:"OUT_PATH"`
	BaseURL      string `env:"BASE_URL"`
	FeedTitle    string `env:"FEED_TITLE" envDefault:"My Newsletters"`
	HTTPTimeout  int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"10"`
}

// Load reads configuration from the environment, after merging an optional
// .env file. The .env file is a convenience for local runs; a missing file
// is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// ValidateScan checks the variables required for mailbox scan mode.
func (c *Config) ValidateScan() error {
	if err := c.ValidateOutput(); err != nil {
		return err
	}
	if c.EmailAccount == "" {
		return fmt.Errorf("EMAIL_ACCOUNT is required")
	}
	if c.IMAPPassword == "" {
		return fmt.Errorf("IMAP_PASSWORD is required")
	}
	if c.EmailFolder == "" {
		return fmt.Errorf("EMAIL_FOLDER is required")
	}
	return nil
}

// ValidateOutput checks the variables every mode needs to write the archive.
func (c *Config) ValidateOutput() error {
	if c.OutPath == "" {
		return fmt.Errorf("OUT_PATH is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	return nil
}

func (c *Config) IMAPAddr() string {
	return fmt.Sprintf("%s:%d", c.IMAPHost, c.IMAPPort)
}
