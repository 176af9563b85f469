package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Session struct {
	SessionID       string      `json:"session_id" db:"session_id"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	ProfilesScraped StringArray `json:"profiles_scraped" db:"profiles_scraped"`
	TotalPosts      int         `json:"total_posts" db:"total_posts"`
	ArchivedAt      time.Time   `json:"archived_at" db:"archived_at"`
}

type Post struct {
	ID              int64       `json:"id" db:"id"`
	SessionID       string      `json:"session_id" db:"session_id"`
	PostNumber      int         `json:"post_number" db:"post_number"`
	ProfileURL      string      `json:"profile_url" db:"profile_url"`
	AuthorName      *string     `json:"author_name" db:"author_name"`
	AuthorAvatar    *string     `json:"author_avatar" db:"author_avatar"`
	Content         string      `json:"content" db:"content"`
	Timestamp       string      `json:"timestamp" db:"timestamp"`
	PostType        string      `json:"post_type" db:"post_type"`
	PostURL         *string     `json:"post_url" db:"post_url"`
	PermalinkSource string      `json:"permalink_source" db:"permalink_source"`
	Engagement      StringMap   `json:"engagement" db:"engagement"`
	MediaURLs       StringArray `json:"media_urls" db:"media_urls"`
	LocalMediaPaths StringArray `json:"local_media_paths" db:"local_media_paths"`
	ReactionCount   int         `json:"reaction_count" db:"reaction_count"`
	CommentCount    int         `json:"comment_count" db:"comment_count"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// StringArray for handling JSON arrays in PostgreSQL
type StringArray []string

func (sa StringArray) Value() (driver.Value, error) {
	if len(sa) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(sa)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (sa *StringArray) Scan(value interface{}) error {
	if value == nil {
		*sa = StringArray{}
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, sa)
}

// StringMap stores sparse counters such as engagement as a JSON object.
type StringMap map[string]string

func (sm StringMap) Value() (driver.Value, error) {
	if len(sm) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(sm)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (sm *StringMap) Scan(value interface{}) error {
	if value == nil {
		*sm = StringMap{}
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, sm)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion to []byte failed")
	}
}
