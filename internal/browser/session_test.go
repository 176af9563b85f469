package browser

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"linkedin-scraper/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestOpenUnknownBackend(t *testing.T) {
	launcher := NewLauncher(config.BrowserConfig{Backend: "firefox"}, testLogger())

	session, err := launcher.Open(context.Background(), Options{Headless: true})

	assert.ErrorIs(t, err, ErrBrowserLaunch)
	assert.Nil(t, session)
}

func TestOpenSeleniumWithoutDriver(t *testing.T) {
	launcher := NewLauncher(config.BrowserConfig{
		Backend:       "selenium",
		WebDriverPath: filepath.Join(t.TempDir(), "chromedriver"),
		WebDriverPort: 9599,
	}, testLogger())

	session, err := launcher.Open(context.Background(), Options{Headless: true})

	assert.ErrorIs(t, err, ErrBrowserLaunch)
	assert.Nil(t, session)
}
