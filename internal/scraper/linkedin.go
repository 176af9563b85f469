package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
	"linkedin-scraper/internal/utils"
	"linkedin-scraper/pkg/types"
)

// Opener starts browser sessions.
type Opener interface {
	Open(ctx context.Context, opts browser.Options) (browser.Session, error)
}

// Recorder receives run outcomes, e.g. the metrics monitor.
type Recorder interface {
	RecordProfile(profileURL string, posts int, duration time.Duration, err error)
	RecordRun(runID string, profiles, failures, posts int, duration time.Duration)
}

type RunRequest struct {
	RunID         string
	Email         string
	Password      string
	ProfileURLs   []string
	Scrolls       int
	MaxPosts      int
	Headless      bool
	DownloadMedia bool
}

type RunResult struct {
	Session    *types.ScrapeSession
	LoginState LoginState
}

// Runner drives one browser session through login and every requested
// profile.
type Runner struct {
	cfg      *config.Config
	opener   Opener
	auth     *Authenticator
	recorder Recorder
	logger   *logrus.Logger
}

func NewRunner(cfg *config.Config, opener Opener, auth *Authenticator, recorder Recorder, logger *logrus.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		opener:   opener,
		auth:     auth,
		recorder: recorder,
		logger:   logger,
	}
}

// ConstructPostsURL maps a profile URL to its all-activity feed.
func ConstructPostsURL(profileURL string) string {
	base := strings.TrimRight(profileURL, "/")
	base, _, _ = strings.Cut(base, "/recent-activity")
	return base + "/recent-activity/all/"
}

// Run opens a browser, logs in once and scrapes each profile in order.
// Profile failures are logged and skipped; setup failures abort the run.
// The browser is always closed before Run returns.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	started := time.Now()
	log := r.logger.WithField("run_id", req.RunID)
	result := &RunResult{LoginState: LoginStateLoggedOut}

	session, err := r.opener.Open(ctx, browser.Options{Headless: req.Headless})
	if err != nil {
		return result, fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warnf("Failed to close browser: %v", err)
		}
	}()

	state, err := r.auth.Login(ctx, session, req.RunID, req.Email, req.Password)
	result.LoginState = state
	if err != nil {
		return result, fmt.Errorf("login failed: %w", err)
	}

	var fetcher *MediaFetcher
	if req.DownloadMedia {
		fetcher = NewMediaFetcher(r.cfg.Storage.Dir, strings.TrimRight(r.cfg.LinkedIn.BaseURL, "/")+"/", r.cfg.Media, r.cfg.RateLimit, r.logger)
	}
	extractor := NewExtractor(r.cfg.Scraper, fetcher, r.logger)

	posts := []types.Post{}
	profiles := []string{}
	failures := 0
	delay := time.Duration(r.cfg.RateLimit.DelayBetweenRequests) * time.Second

	for i, profileURL := range req.ProfileURLs {
		if i > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return result, err
			}
		}

		profileStart := time.Now()
		profilePosts, err := r.ScrapeProfile(ctx, session, extractor, profileURL, req.RunID, req.Scrolls, req.MaxPosts)
		if r.recorder != nil {
			r.recorder.RecordProfile(profileURL, len(profilePosts), time.Since(profileStart), err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			failures++
			log.Errorf("Failed to scrape profile %s: %v", profileURL, err)
			continue
		}

		log.Infof("Scraped %d posts from %s", len(profilePosts), profileURL)
		posts = append(posts, profilePosts...)
		profiles = append(profiles, profileURL)
	}

	SortByTimestamp(posts)

	result.Session = &types.ScrapeSession{
		SessionID:       req.RunID,
		Timestamp:       utils.ISOTimestamp(time.Now()),
		ProfilesScraped: profiles,
		TotalPosts:      len(posts),
		Posts:           posts,
	}

	if r.recorder != nil {
		r.recorder.RecordRun(req.RunID, len(req.ProfileURLs), failures, len(posts), time.Since(started))
	}
	log.Infof("Run finished: %d posts from %d/%d profiles in %s", len(posts), len(profiles), len(req.ProfileURLs), time.Since(started).Round(time.Second))
	return result, nil
}

// ScrapeProfile loads the activity feed of one profile, scrolls to load
// more posts and extracts up to maxPosts of them. An empty or unloaded
// feed yields no posts and no error.
func (r *Runner) ScrapeProfile(ctx context.Context, session browser.Session, extractor *Extractor, profileURL, runID string, scrolls, maxPosts int) ([]types.Post, error) {
	log := r.logger.WithFields(logrus.Fields{"run_id": runID, "profile": profileURL})
	postsURL := ConstructPostsURL(profileURL)
	log.Infof("Navigating to %s", postsURL)

	if err := session.Navigate(ctx, postsURL); err != nil {
		return nil, err
	}

	if err := session.WaitReady(ctx, feedReadySelector, r.cfg.Scraper.PageLoadTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			log.Warn("No posts found or page didn't load")
			return []types.Post{}, nil
		}
		return nil, fmt.Errorf("failed waiting for activity feed: %w", err)
	}

	var empty bool
	if err := session.Evaluate(ctx, emptyStateScript(), &empty); err != nil {
		log.Debugf("Empty-state check failed: %v", err)
	}
	if empty {
		log.Info("Profile has no activity")
		return []types.Post{}, nil
	}

	for i := 0; i < scrolls; i++ {
		if err := session.Evaluate(ctx, scrollScript(), nil); err != nil {
			log.Warnf("Failed to scroll (%d/%d): %v", i+1, scrolls, err)
		}
		if err := sleepContext(ctx, r.cfg.Scraper.ScrollPause); err != nil {
			return nil, err
		}
	}

	var collected collectResult
	if err := session.Evaluate(ctx, collectPostsScript(postContainerSelectors, maxPosts), &collected); err != nil {
		return nil, fmt.Errorf("failed to collect post elements: %w", err)
	}
	if len(collected.HTML) == 0 {
		log.Warn("No post containers matched")
		return []types.Post{}, nil
	}
	log.Infof("Found %d post elements using %s", len(collected.HTML), collected.Selector)

	extracted := make([]*types.Post, 0, len(collected.HTML))
	for i, html := range collected.HTML {
		el := PostElement{Ordinal: i + 1, HTML: html}
		post, err := extractor.Extract(ctx, session, el, profileURL, runID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warnf("Skipping post %d: %v", el.Ordinal, err)
			continue
		}
		extracted = append(extracted, post)
	}

	retained, stats := RetainPosts(extracted)
	log.Infof("Filter results: %s", stats.String())

	posts := make([]types.Post, 0, len(retained))
	for _, post := range retained {
		posts = append(posts, *post)
	}
	return posts, nil
}
