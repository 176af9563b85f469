package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/utils"
	"linkedin-scraper/pkg/types"
)

const (
	sessionPrefix = "linkedin_posts_"
	sessionExt    = ".json"
	mediaPrefix   = "media_"

	// SessionIDLayout yields ids like 20240102_150405. Two runs started in
	// the same second share an id.
	SessionIDLayout = "20060102_150405"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMediaNotFound   = errors.New("media not found")
	ErrInvalidName     = errors.New("invalid name")
)

func NewSessionID(t time.Time) string {
	return t.Format(SessionIDLayout)
}

// SessionFilename is the file a session with the given id is written to.
func SessionFilename(id string) string {
	return sessionPrefix + id + sessionExt
}

// Store keeps sessions as immutable JSON files in one directory, with media
// in media_<id>/ subdirectories.
type Store struct {
	dir    string
	logger *logrus.Logger
}

func New(dir string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes the session envelope atomically and returns its path.
func (s *Store) Save(session *types.ScrapeSession) (string, error) {
	if err := validateName(session.SessionID); err != nil {
		return "", err
	}
	if session.Posts == nil {
		session.Posts = []types.Post{}
	}
	if session.ProfilesScraped == nil {
		session.ProfilesScraped = []string{}
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	target := filepath.Join(s.dir, SessionFilename(session.SessionID))
	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move session into place: %w", err)
	}

	s.logger.Infof("Saved session %s with %d posts to %s", session.SessionID, session.TotalPosts, target)
	return target, nil
}

// List returns every stored session file, newest first. Ids are the file
// name without the linkedin_posts_ prefix and .json suffix, so legacy files
// list under an id Load accepts.
func (s *Store) List() ([]types.SessionSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	type listed struct {
		summary types.SessionSummary
		modTime time.Time
	}
	var found []listed
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warnf("Failed to stat %s: %v", name, err)
			continue
		}
		found = append(found, listed{
			summary: types.SessionSummary{
				SessionID: strings.TrimSuffix(strings.TrimPrefix(name, sessionPrefix), sessionExt),
				Filename:  name,
				Timestamp: utils.ISOTimestamp(info.ModTime()),
			},
			modTime: info.ModTime(),
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].modTime.After(found[j].modTime) })

	sessions := make([]types.SessionSummary, 0, len(found))
	for _, f := range found {
		sessions = append(sessions, f.summary)
	}
	return sessions, nil
}

// Load reads a session by id. It tries the current file name and the legacy
// <id>.json and session_<id>.json names; an unreadable file is skipped.
// A legacy file holding a bare list of posts is returned wrapped as
// {posts, total_posts, profiles_scraped}.
func (s *Store) Load(id string) (json.RawMessage, error) {
	if err := validateName(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	candidates := []string{
		SessionFilename(id),
		id + sessionExt,
		"session_" + id + sessionExt,
	}
	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			s.logger.Warnf("Failed to read session file %s: %v", name, err)
			continue
		}
		raw, err := normalizeSession(data)
		if err != nil {
			s.logger.Warnf("Skipping session file %s: %v", name, err)
			continue
		}
		return raw, nil
	}
	return nil, ErrSessionNotFound
}

// LoadSession decodes a session into the current envelope type.
func (s *Store) LoadSession(id string) (*types.ScrapeSession, error) {
	data, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	session := &types.ScrapeSession{SessionID: id}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	if session.SessionID == "" {
		session.SessionID = id
	}
	return session, nil
}

func normalizeSession(data []byte) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "[") {
		if !json.Valid(data) {
			return nil, errors.New("session file is not valid JSON")
		}
		return json.RawMessage(data), nil
	}

	var posts []json.RawMessage
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("failed to parse legacy session: %w", err)
	}
	wrapped, err := json.Marshal(map[string]interface{}{
		"posts":            posts,
		"total_posts":      len(posts),
		"profiles_scraped": []string{},
	})
	if err != nil {
		return nil, err
	}
	return wrapped, nil
}

// MediaPath resolves a media file of a session, rejecting names that would
// escape the session's media directory.
func (s *Store) MediaPath(sessionID, filename string) (string, error) {
	if err := validateName(sessionID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaNotFound, err)
	}
	if err := validateName(filename); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaNotFound, err)
	}

	path := filepath.Join(s.dir, mediaPrefix+sessionID, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrMediaNotFound
	}
	return path, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
