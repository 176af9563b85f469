package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"

	"linkedin-scraper/internal/config"
)

// asyncWrapper resolves an expression (or promise) and hands its JSON
// encoding to the WebDriver async callback.
const asyncWrapper = `var done = arguments[arguments.length - 1];
Promise.resolve((%s)).then(
  function (v) { done(JSON.stringify(v === undefined ? null : v)); },
  function (e) { done(JSON.stringify({"__error": String(e)})); }
);`

const asyncScriptTimeout = 30 * time.Second

type seleniumSession struct {
	driver  selenium.WebDriver
	service *selenium.Service
	logger  *logrus.Logger
}

func openSeleniumSession(cfg config.BrowserConfig, opts Options, logger *logrus.Logger) (*seleniumSession, error) {
	args := append([]string{}, launchArgs...)
	if opts.Headless {
		args = append(args, "--headless=new")
	} else {
		args = append(args, "--start-maximized")
	}
	if cfg.UserAgent != "" {
		args = append(args, "--user-agent="+cfg.UserAgent)
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{
		Args:            args,
		ExcludeSwitches: []string{"enable-automation"},
		Path:            cfg.ExecPath,
	})

	selenium.SetDebug(false)
	service, err := selenium.NewChromeDriverService(cfg.WebDriverPath, cfg.WebDriverPort)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start ChromeDriver service: %v", ErrBrowserLaunch, err)
	}

	driver, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d", cfg.WebDriverPort))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("%w: failed to open session: %v", ErrBrowserLaunch, err)
	}

	if !opts.Headless {
		if err := driver.MaximizeWindow(""); err != nil {
			logger.Warnf("Failed to maximize window: %v", err)
		}
	}
	if err := driver.SetAsyncScriptTimeout(asyncScriptTimeout); err != nil {
		logger.Warnf("Failed to set async script timeout: %v", err)
	}
	if _, err := driver.ExecuteScript(webdriverOverride, nil); err != nil {
		logger.Warnf("Failed to apply webdriver override: %v", err)
	}

	logger.Infof("Selenium session started on port %d (headless=%v)", cfg.WebDriverPort, opts.Headless)
	return &seleniumSession{
		driver:  driver,
		service: service,
		logger:  logger,
	}, nil
}

func (s *seleniumSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.driver.Get(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	// WebDriver has no init-script hook, so the override is reapplied per page.
	if _, err := s.driver.ExecuteScript(webdriverOverride, nil); err != nil {
		s.logger.Debugf("Failed to apply webdriver override: %v", err)
	}
	return nil
}

func (s *seleniumSession) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return s.waitFor(ctx, selector, timeout, false)
}

func (s *seleniumSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.waitFor(ctx, selector, timeout, true)
}

func (s *seleniumSession) waitFor(ctx context.Context, selector string, timeout time.Duration, visible bool) error {
	condition := func(wd selenium.WebDriver) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		elem, err := wd.FindElement(selenium.ByCSSSelector, selector)
		if err != nil {
			return false, nil
		}
		if !visible {
			return true, nil
		}
		displayed, err := elem.IsDisplayed()
		return err == nil && displayed, nil
	}

	if err := s.driver.WaitWithTimeout(condition, timeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return nil
}

func (s *seleniumSession) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	elem, err := s.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", selector, err)
	}
	if err := elem.Clear(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", selector, err)
	}
	if err := elem.SendKeys(text); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

func (s *seleniumSession) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	elem, err := s.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", selector, err)
	}
	return elem.Click()
}

func (s *seleniumSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.driver.ExecuteScriptAsync(fmt.Sprintf(asyncWrapper, script), nil)
	if err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	encoded, ok := result.(string)
	if !ok {
		return fmt.Errorf("unexpected script result type %T", result)
	}

	var failure struct {
		Error string `json:"__error"`
	}
	if json.Unmarshal([]byte(encoded), &failure) == nil && failure.Error != "" {
		return fmt.Errorf("failed to evaluate script: %w", errors.New(failure.Error))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

func (s *seleniumSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cookies, err := s.driver.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	result := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		result = append(result, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	return result, nil
}

func (s *seleniumSession) Close() error {
	var errs []error
	if s.driver != nil {
		if err := s.driver.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("failed to quit driver: %w", err))
		}
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop driver service: %w", err))
		}
	}
	return errors.Join(errs...)
}
