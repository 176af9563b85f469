package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/config"
)

var (
	ErrBrowserLaunch = errors.New("browser launch failed")
	ErrTimeout       = errors.New("timed out waiting for element")
)

// Session is one live browser tab. Calls are not safe for concurrent use;
// a run drives its session serially.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitReady waits until selector matches an element in the DOM.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// WaitVisible waits until selector matches a displayed element.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Type clears the matched input and sends text to it.
	Type(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	// Evaluate runs a JavaScript expression, awaits it if it yields a
	// promise, and decodes the JSON result into out (which may be nil).
	Evaluate(ctx context.Context, script string, out interface{}) error
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close() error
}

type Options struct {
	Headless bool
}

// Launcher opens sessions on the configured backend.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *logrus.Logger
}

func NewLauncher(cfg config.BrowserConfig, logger *logrus.Logger) *Launcher {
	return &Launcher{cfg: cfg, logger: logger}
}

func (l *Launcher) Open(ctx context.Context, opts Options) (Session, error) {
	l.logger.Infof("Opening %s browser session", l.cfg.Backend)

	switch l.cfg.Backend {
	case "", "chromedp":
		session, err := openChromeSession(ctx, l.cfg, opts, l.logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	case "selenium":
		session, err := openSeleniumSession(l.cfg, opts, l.logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrBrowserLaunch, l.cfg.Backend)
	}
}

// webdriverOverride hides the automation flag from page scripts.
const webdriverOverride = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--no-sandbox",
	"--disable-dev-shm-usage",
}
