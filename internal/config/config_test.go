package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://www.linkedin.com/login", cfg.LinkedIn.LoginURL)
	assert.Equal(t, "linkedin.com", cfg.LinkedIn.RequiredDomain)
	assert.Equal(t, "chromedp", cfg.Browser.Backend)
	assert.Equal(t, 10, cfg.Scraper.Scrolls)
	assert.Equal(t, 50, cfg.Scraper.MaxPosts)
	assert.Equal(t, 2*time.Second, cfg.Scraper.ScrollPause)
	assert.True(t, cfg.Scraper.ClipboardPermalinks)
	assert.True(t, cfg.Media.Download)
	assert.Equal(t, 60*time.Second, cfg.Media.RequestTimeout)
	assert.EqualValues(t, 100, cfg.Media.MinBytes)
	assert.Equal(t, "linkedin_posts", cfg.Storage.Dir)
	assert.Equal(t, "8000", cfg.API.Port)
	assert.Zero(t, cfg.Auth.ChallengeWait)
	assert.False(t, cfg.Database.Enabled)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
browser:
  backend: selenium
  webdriver_port: 4444
scraper:
  scrolls: 3
  scroll_pause: 750ms
  clipboard_permalinks: false
media:
  download: false
auth:
  challenge_wait: 2m
storage:
  dir: out
`))
	require.NoError(t, err)

	assert.Equal(t, "selenium", cfg.Browser.Backend)
	assert.Equal(t, 4444, cfg.Browser.WebDriverPort)
	assert.Equal(t, 3, cfg.Scraper.Scrolls)
	assert.Equal(t, 50, cfg.Scraper.MaxPosts)
	assert.Equal(t, 750*time.Millisecond, cfg.Scraper.ScrollPause)
	assert.False(t, cfg.Scraper.ClipboardPermalinks)
	assert.False(t, cfg.Media.Download)
	assert.Equal(t, 2*time.Minute, cfg.Auth.ChallengeWait)
	assert.Equal(t, "out", cfg.Storage.Dir)
}

func TestParseEnvironmentOverrides(t *testing.T) {
	t.Setenv("LINKEDIN_EMAIL", "env@example.com")
	t.Setenv("LINKEDIN_PASSWORD", "from-env")
	t.Setenv("API_PORT", "9090")
	t.Setenv("STORAGE_DIR", "/tmp/posts")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Parse([]byte(`
api:
  port: "8000"
storage:
  dir: linkedin_posts
`))
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", cfg.LinkedIn.Email)
	assert.Equal(t, "from-env", cfg.LinkedIn.Password)
	assert.Equal(t, "9090", cfg.API.Port)
	assert.Equal(t, "/tmp/posts", cfg.Storage.Dir)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 6543, cfg.Database.Port)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("scraper: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scraper:\n  max_posts: 7\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scraper.MaxPosts)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestSampleConfigParses(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ChallengeWait)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
}
