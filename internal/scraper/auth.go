// internal/scraper/auth.go
package scraper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
)

type LoginState string

const (
	LoginStateLoggedOut         LoginState = "logged-out"
	LoginStateLoggedIn          LoginState = "logged-in"
	LoginStateAwaitingChallenge LoginState = "awaiting-challenge"
	LoginStateVerifiedManually  LoginState = "verified-manually"
)

var (
	ErrLoginFormNotFound   = errors.New("login form not found")
	ErrChallengeUnresolved = errors.New("verification challenge not resolved")
)

// ChallengeHandler suspends a login until an operator has completed a
// captcha or two-factor challenge in the browser.
type ChallengeHandler interface {
	AwaitVerification(ctx context.Context, runID string) error
}

type Authenticator struct {
	loginURL   string
	cfg        config.ScraperConfig
	challenges ChallengeHandler
	logger     *logrus.Logger
}

func NewAuthenticator(loginURL string, cfg config.ScraperConfig, challenges ChallengeHandler, logger *logrus.Logger) *Authenticator {
	return &Authenticator{
		loginURL:   loginURL,
		cfg:        cfg,
		challenges: challenges,
		logger:     logger,
	}
}

// Login signs in once per session. A missing logged-in marker after submit
// is treated as a verification challenge, not a failure.
func (a *Authenticator) Login(ctx context.Context, session browser.Session, runID, identity, secret string) (LoginState, error) {
	log := a.logger.WithField("run_id", runID)
	log.Info("Logging in to LinkedIn...")

	if err := session.Navigate(ctx, a.loginURL); err != nil {
		return LoginStateLoggedOut, fmt.Errorf("failed to open login page: %w", err)
	}

	if err := session.WaitVisible(ctx, usernameSelector, a.cfg.LoginFormTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return LoginStateLoggedOut, fmt.Errorf("%w: %v", ErrLoginFormNotFound, err)
		}
		return LoginStateLoggedOut, err
	}

	if err := session.Type(ctx, usernameSelector, identity); err != nil {
		return LoginStateLoggedOut, fmt.Errorf("failed to enter email: %w", err)
	}
	if err := session.Type(ctx, passwordSelector, secret); err != nil {
		return LoginStateLoggedOut, fmt.Errorf("failed to enter password: %w", err)
	}

	if err := a.submit(ctx, session); err != nil {
		return LoginStateLoggedOut, err
	}

	err := session.WaitReady(ctx, loggedInSelector, a.cfg.LoginSuccessTimeout)
	if err == nil {
		log.Info("Login successful")
		return LoginStateLoggedIn, nil
	}
	if !errors.Is(err, browser.ErrTimeout) {
		return LoginStateLoggedOut, fmt.Errorf("failed waiting for login result: %w", err)
	}

	log.Warn("Login may require additional verification")
	if a.challenges == nil {
		return LoginStateAwaitingChallenge, ErrChallengeUnresolved
	}
	if err := a.challenges.AwaitVerification(ctx, runID); err != nil {
		return LoginStateAwaitingChallenge, err
	}

	log.Info("Verification confirmed by operator")
	return LoginStateVerifiedManually, nil
}

func (a *Authenticator) submit(ctx context.Context, session browser.Session) error {
	err := session.WaitVisible(ctx, submitSelector, a.cfg.SubmitTimeout)
	if err == nil {
		if err = session.Click(ctx, submitSelector); err == nil {
			return nil
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	a.logger.Debugf("Submit button lookup failed (%v), trying text match", err)

	var clicked bool
	if err := session.Evaluate(ctx, submitByTextScript(submitText), &clicked); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}
	if !clicked {
		return fmt.Errorf("failed to submit login form: %w", ErrLoginFormNotFound)
	}
	return nil
}

// ConsolePrompt waits for the operator to press Enter.
type ConsolePrompt struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsolePrompt(in io.Reader, out io.Writer) *ConsolePrompt {
	return &ConsolePrompt{in: bufio.NewReader(in), out: out}
}

func (p *ConsolePrompt) AwaitVerification(ctx context.Context, runID string) error {
	fmt.Fprintln(p.out, "Verification required. Complete the challenge in the browser window.")
	fmt.Fprint(p.out, "Press Enter after completing verification...")

	done := make(chan error, 1)
	go func() {
		_, err := p.in.ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type PendingChallenge struct {
	RunID string    `json:"run_id"`
	Since time.Time `json:"since"`
}

type pendingChallenge struct {
	since    time.Time
	resolved chan struct{}
}

// ChallengeBroker parks API runs that hit a verification challenge until
// an operator resolves them or the wait elapses.
type ChallengeBroker struct {
	mu      sync.Mutex
	pending map[string]*pendingChallenge
	wait    time.Duration
	logger  *logrus.Logger
}

func NewChallengeBroker(wait time.Duration, logger *logrus.Logger) *ChallengeBroker {
	return &ChallengeBroker{
		pending: make(map[string]*pendingChallenge),
		wait:    wait,
		logger:  logger,
	}
}

func (b *ChallengeBroker) AwaitVerification(ctx context.Context, runID string) error {
	if b.wait <= 0 {
		return fmt.Errorf("%w: run %s", ErrChallengeUnresolved, runID)
	}

	challenge := &pendingChallenge{since: time.Now(), resolved: make(chan struct{})}
	b.mu.Lock()
	b.pending[runID] = challenge
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.pending[runID] == challenge {
			delete(b.pending, runID)
		}
		b.mu.Unlock()
	}()

	b.logger.Warnf("Run %s is awaiting verification; resolve within %s", runID, b.wait)

	timer := time.NewTimer(b.wait)
	defer timer.Stop()

	select {
	case <-challenge.resolved:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: run %s timed out after %s", ErrChallengeUnresolved, runID, b.wait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve releases a parked run. It reports false if none is pending.
func (b *ChallengeBroker) Resolve(runID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	challenge, ok := b.pending[runID]
	if !ok {
		return false
	}
	close(challenge.resolved)
	delete(b.pending, runID)
	return true
}

func (b *ChallengeBroker) Pending() []PendingChallenge {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]PendingChallenge, 0, len(b.pending))
	for runID, challenge := range b.pending {
		result = append(result, PendingChallenge{RunID: runID, Since: challenge.since})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Since.Before(result[j].Since) })
	return result
}
