package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
)

var scriptNamePattern = regexp.MustCompile(`^/\* scrape:([a-z-]+) \*/`)

type scriptHandler func(args map[string]interface{}) (interface{}, error)

// fakeSession answers in-page scripts by name and records interactions.
type fakeSession struct {
	mu sync.Mutex

	scripts      map[string]scriptHandler
	waitErrs     map[string]error
	navigateErrs map[string]error
	cookies      []*http.Cookie

	navigated []string
	typed     map[string]string
	clicked   []string
	calls     map[string]int
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		scripts:      make(map[string]scriptHandler),
		waitErrs:     make(map[string]error),
		navigateErrs: make(map[string]error),
		typed:        make(map[string]string),
		calls:        make(map[string]int),
	}
}

func (f *fakeSession) on(name string, handler scriptHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[name] = handler
}

func (f *fakeSession) returns(name string, value interface{}) {
	f.on(name, func(map[string]interface{}) (interface{}, error) { return value, nil })
}

func (f *fakeSession) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func parseScript(script string) (string, map[string]interface{}, error) {
	m := scriptNamePattern.FindStringSubmatch(script)
	if m == nil {
		return "", nil, fmt.Errorf("unnamed script")
	}
	last := script[strings.LastIndex(script, "\n")+1:]
	start := strings.LastIndex(last, "})(")
	if start < 0 || !strings.HasSuffix(last, ")") {
		return "", nil, fmt.Errorf("script %s has no argument call", m[1])
	}
	args := map[string]interface{}{}
	if err := json.Unmarshal([]byte(last[start+3:len(last)-1]), &args); err != nil {
		return "", nil, fmt.Errorf("script %s arguments: %w", m[1], err)
	}
	return m[1], args, nil
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	for marker, err := range f.navigateErrs {
		if strings.Contains(url, marker) {
			return err
		}
	}
	return nil
}

func (f *fakeSession) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitErrs[selector]
}

func (f *fakeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return f.WaitReady(ctx, selector, timeout)
}

func (f *fakeSession) Type(ctx context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed[selector] = text
	return nil
}

func (f *fakeSession) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicked = append(f.clicked, selector)
	return nil
}

func (f *fakeSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	name, args, err := parseScript(script)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.calls[name]++
	handler := f.scripts[name]
	f.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("no handler for script %s", name)
	}
	value, err := handler(args)
	if err != nil || out == nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cookies, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeOpener struct {
	session *fakeSession
	err     error
	opts    []browser.Options
}

func (o *fakeOpener) Open(ctx context.Context, opts browser.Options) (browser.Session, error) {
	o.opts = append(o.opts, opts)
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testConfig returns defaults with every pause removed.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scraper.ScrollPause = 0
	cfg.Scraper.MenuOpenPause = 0
	cfg.Scraper.CopyLinkPause = 0
	cfg.RateLimit.DelayBetweenRequests = 0
	cfg.RateLimit.RequestsPerMinute = 0
	return cfg
}
