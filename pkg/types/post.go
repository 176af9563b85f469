package types

import (
	"fmt"
	"strings"
)

type PostType string

const (
	PostTypeText    PostType = "text"
	PostTypeImage   PostType = "image"
	PostTypeVideo   PostType = "video"
	PostTypeArticle PostType = "article"
)

// PermalinkSource records how a post URL was obtained. Clipboard-derived
// links depend on browser clipboard state and may belong to another post.
type PermalinkSource string

const (
	PermalinkFromURN       PermalinkSource = "urn"
	PermalinkFromClipboard PermalinkSource = "clipboard"
)

// Post is one scraped activity entry from a profile feed.
type Post struct {
	PostNumber      int               `json:"post_number"`
	Content         string            `json:"content"`
	Timestamp       string            `json:"timestamp"`
	Engagement      map[string]string `json:"engagement"`
	PostType        PostType          `json:"post_type"`
	MediaURLs       []string          `json:"media_urls"`
	LocalMediaPaths []string          `json:"local_media_paths"`
	PostURL         *string           `json:"post_url"`
	PermalinkSource PermalinkSource   `json:"permalink_source,omitempty"`
	ProfileURL      string            `json:"profile_url"`
	AuthorName      *string           `json:"author_name"`
	AuthorAvatar    *string           `json:"author_avatar"`
}

// NewPost returns a record with empty, non-nil collections.
func NewPost(number int, profileURL string) *Post {
	return &Post{
		PostNumber:      number,
		Engagement:      map[string]string{},
		PostType:        PostTypeText,
		MediaURLs:       []string{},
		LocalMediaPaths: []string{},
		ProfileURL:      profileURL,
	}
}

// HasBody reports whether the post carries any non-whitespace text.
func (p *Post) HasBody() bool {
	return strings.TrimSpace(p.Content) != ""
}

// ScrapeSession is the persisted envelope of one run. Timestamp stays a
// string so files written by older tools still decode.
type ScrapeSession struct {
	SessionID       string   `json:"session_id"`
	Timestamp       string   `json:"timestamp"`
	ProfilesScraped []string `json:"profiles_scraped"`
	TotalPosts      int      `json:"total_posts"`
	Posts           []Post   `json:"posts"`
}

// SessionSummary describes one stored session file.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
}

type FilterStats struct {
	TotalPosts    int `json:"total_posts"`
	RetainedPosts int `json:"retained_posts"`
	EmptyDropped  int `json:"empty_dropped"`
	WithMedia     int `json:"with_media"`
	VideoPosts    int `json:"video_posts"`
}

func (fs FilterStats) String() string {
	return fmt.Sprintf("Total: %d, Retained: %d, Empty: %d, With media: %d, Video: %d",
		fs.TotalPosts, fs.RetainedPosts, fs.EmptyDropped, fs.WithMedia, fs.VideoPosts)
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
