package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/config"
	"linkedin-scraper/internal/monitoring"
	"linkedin-scraper/internal/scraper"
	"linkedin-scraper/internal/store"
	"linkedin-scraper/pkg/types"
)

const (
	version            = "1.0.0"
	defaultStaticMount = "linkedin_posts"
)

// ScrapeRunner executes one scrape job.
type ScrapeRunner interface {
	Run(ctx context.Context, req scraper.RunRequest) (*scraper.RunResult, error)
}

// Archiver mirrors persisted sessions elsewhere, e.g. PostgreSQL.
type Archiver interface {
	SaveSession(ctx context.Context, session *types.ScrapeSession) error
}

type Server struct {
	cfg        *config.Config
	runner     ScrapeRunner
	sessions   *store.Store
	archive    Archiver
	monitor    *monitoring.Monitor
	challenges *scraper.ChallengeBroker
	validate   *validator.Validate
	logger     *logrus.Logger

	httpServer *http.Server
	persisting sync.WaitGroup
	now        func() time.Time
}

type Option func(*Server)

func WithArchive(archive Archiver) Option {
	return func(s *Server) { s.archive = archive }
}

func WithMonitor(monitor *monitoring.Monitor) Option {
	return func(s *Server) { s.monitor = monitor }
}

func WithChallenges(challenges *scraper.ChallengeBroker) Option {
	return func(s *Server) { s.challenges = challenges }
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Count   int         `json:"count,omitempty"`
}

type ScrapeRequest struct {
	Email         string   `json:"email" validate:"required"`
	Password      string   `json:"password" validate:"required"`
	ProfileURLs   []string `json:"profile_urls" validate:"required,dive,required,profile_url"`
	Scrolls       int      `json:"scrolls" validate:"gte=0"`
	MaxPosts      int      `json:"max_posts" validate:"gte=0"`
	DownloadMedia *bool    `json:"download_media,omitempty"`
}

type ScrapeResponse struct {
	Success         bool         `json:"success"`
	Posts           []types.Post `json:"posts"`
	TotalPosts      int          `json:"total_posts"`
	ProfilesScraped []string     `json:"profiles_scraped"`
	SessionID       string       `json:"session_id,omitempty"`
	State           string       `json:"state,omitempty"`
	Error           string       `json:"error,omitempty"`
}

type SessionsResponse struct {
	Sessions []types.SessionSummary `json:"sessions"`
}

type SessionResponse struct {
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

func NewServer(cfg *config.Config, runner ScrapeRunner, sessions *store.Store, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	domain := cfg.LinkedIn.RequiredDomain
	if err := s.validate.RegisterValidation("profile_url", func(fl validator.FieldLevel) bool {
		return strings.Contains(fl.Field().String(), domain)
	}); err != nil {
		logger.Errorf("Failed to register profile_url validation: %v", err)
	}

	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.cfg.API.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Infof("Starting API server on port %s", s.cfg.API.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for pending session writes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.Wait()
	return err
}

// Wait blocks until every background session write has finished.
func (s *Server) Wait() {
	s.persisting.Wait()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /scrape", s.handleScrape)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("GET /session/{id}", s.handleSession)
	mux.HandleFunc("GET /media/{session}/{filename}", s.handleMedia)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /challenges", s.handleChallenges)
	mux.HandleFunc("POST /challenges/{run_id}/resolve", s.handleResolveChallenge)

	static := staticPrefix(s.cfg.Storage.Dir)
	mux.Handle("GET "+static, http.StripPrefix(static, http.FileServer(http.Dir(s.sessions.Dir()))))

	return s.recoverMiddleware(s.requestIDMiddleware(s.corsMiddleware(mux)))
}

// staticPrefix mounts the storage directory under its base name, so
// ./linkedin_posts and /var/lib/scraper/linkedin_posts both serve at
// /linkedin_posts/.
func staticPrefix(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.ContainsAny(base, "{} \t") {
		base = defaultStaticMount
	}
	return "/" + base + "/"
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "LinkedIn Scraper API",
		"version": version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
		"archive":   s.archive != nil,
	}
	if s.monitor != nil {
		data["scraper"] = s.monitor.GetHealthStatus()
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, s.logger)

	req := ScrapeRequest{
		Scrolls:  s.cfg.Scraper.Scrolls,
		MaxPosts: s.cfg.Scraper.MaxPosts,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, validationMessage(err), http.StatusUnprocessableEntity)
		return
	}

	download := s.cfg.Media.Download
	if req.DownloadMedia != nil {
		download = *req.DownloadMedia
	}

	runID := store.NewSessionID(s.now())
	log.Infof("Starting scrape %s for %d profiles", runID, len(req.ProfileURLs))

	// The job runs to completion even if the client disconnects.
	ctx := context.WithoutCancel(r.Context())
	result, err := s.runner.Run(ctx, scraper.RunRequest{
		RunID:         runID,
		Email:         req.Email,
		Password:      req.Password,
		ProfileURLs:   req.ProfileURLs,
		Scrolls:       req.Scrolls,
		MaxPosts:      req.MaxPosts,
		Headless:      s.cfg.Browser.Headless,
		DownloadMedia: download,
	})

	if err != nil || result == nil || result.Session == nil {
		if err == nil {
			err = errors.New("scrape produced no session")
		}
		log.Errorf("Scrape %s failed: %v", runID, err)
		resp := ScrapeResponse{
			Success:         false,
			Posts:           []types.Post{},
			ProfilesScraped: []string{},
			SessionID:       runID,
			Error:           err.Error(),
		}
		if result != nil {
			resp.State = string(result.LoginState)
		}
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	session := result.Session
	s.writeJSON(w, http.StatusOK, ScrapeResponse{
		Success:         true,
		Posts:           session.Posts,
		TotalPosts:      session.TotalPosts,
		ProfilesScraped: session.ProfilesScraped,
		SessionID:       session.SessionID,
		State:           string(result.LoginState),
	})

	s.persist(session)
}

// persist writes the session in the background once the response is out.
func (s *Server) persist(session *types.ScrapeSession) {
	s.persisting.Add(1)
	go func() {
		defer s.persisting.Done()

		if _, err := s.sessions.Save(session); err != nil {
			s.logger.Errorf("Failed to save session %s: %v", session.SessionID, err)
			return
		}
		if s.archive == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.archive.SaveSession(ctx, session); err != nil {
			s.logger.Errorf("Failed to archive session %s: %v", session.SessionID, err)
		}
	}()
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List()
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to list sessions: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.sessions.Load(id)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to load session: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Data: data})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	path, err := s.sessions.MediaPath(r.PathValue("session"), r.PathValue("filename"))
	if err != nil {
		s.writeError(w, "Media file not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		s.writeError(w, "Monitoring is disabled", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.monitor.GetMetrics()})
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	pending := []scraper.PendingChallenge{}
	if s.challenges != nil {
		pending = s.challenges.Pending()
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: pending, Count: len(pending)})
}

func (s *Server) handleResolveChallenge(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if s.challenges == nil || !s.challenges.Resolve(runID) {
		s.writeError(w, "No pending challenge for run", http.StatusNotFound)
		return
	}
	requestLogger(r, s.logger).Infof("Challenge for run %s resolved", runID)
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]string{"run_id": runID}})
}

func validationMessage(err error) string {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err.Error()
	}
	messages := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		switch fe.Tag() {
		case "profile_url":
			messages = append(messages, "All URLs must be LinkedIn profile URLs")
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", jsonFieldName(fe.StructField())))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", jsonFieldName(fe.StructField()), fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

func jsonFieldName(field string) string {
	switch {
	case strings.HasPrefix(field, "ProfileURLs"):
		return "profile_urls"
	case field == "MaxPosts":
		return "max_posts"
	default:
		return strings.ToLower(field)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warnf("Failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}
