package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OUT_PATH", "/tmp/out")
	t.Setenv("BASE_URL", "https://example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "imap.gmail.com", cfg.IMAPHost)
	assert.Equal(t, 993, cfg.IMAPPort)
	assert.Equal(t, "My Newsletters", cfg.FeedTitle)
	assert.Equal(t, 10, cfg.HTTPTimeout)
	assert.Equal(t, "imap.gmail.com:993", cfg.IMAPAddr())
}

func TestValidateScanRequiresCredentials(t *testing.T) {
	cfg := &Config{OutPath: "/tmp/out", BaseURL: "https://example.com"}

	err := cfg.ValidateScan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_ACCOUNT")

	cfg.EmailAccount = "me@example.com"
	cfg.IMAPPassword = "secret"
	cfg.EmailFolder = "Newsletters"
	assert.NoError(t, cfg.ValidateScan())
}

func TestValidateOutput(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateOutput())

	cfg.OutPath = "/tmp/out"
	assert.Error(t, cfg.ValidateOutput())

	cfg.BaseURL = "https://example.com"
	assert.NoError(t, cfg.ValidateOutput())
}
