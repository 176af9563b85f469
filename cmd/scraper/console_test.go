package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin-scraper/internal/config"
	"linkedin-scraper/pkg/types"
)

func testConsole(input string) (*console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &console{in: bufio.NewReader(strings.NewReader(input)), out: out}, out
}

func TestCollect(t *testing.T) {
	cfg := config.Default()

	c, out := testConsole("me@example.com\nsecret\nhttps://www.linkedin.com/in/someone/\n\n5\n")
	input, err := c.collect(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "me@example.com", input.email)
	assert.Equal(t, "secret", input.password)
	assert.Equal(t, "https://www.linkedin.com/in/someone/", input.profileURL)
	assert.Equal(t, cfg.Scraper.Scrolls, input.scrolls)
	assert.Equal(t, 5, input.maxPosts)
	assert.Contains(t, out.String(), "LinkedIn Password: ")
}

func TestCollectUsesEnvironmentCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.LinkedIn.Email = "env@example.com"
	cfg.LinkedIn.Password = "from-env"

	c, out := testConsole("\nhttps://www.linkedin.com/in/someone\n\n\n")
	input, err := c.collect(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", input.email)
	assert.Equal(t, "from-env", input.password)
	assert.NotContains(t, out.String(), "LinkedIn Password")
}

func TestCollectRejectsForeignProfile(t *testing.T) {
	c, _ := testConsole("me@example.com\nsecret\nhttps://example.com/in/someone\n")
	_, err := c.collect(config.Default(), nil)
	assert.ErrorContains(t, err, "linkedin.com")
}

func TestPromptIntRejectsGarbage(t *testing.T) {
	c, _ := testConsole("ten\n")
	_, err := c.promptInt("Number of scrolls", 10)
	assert.Error(t, err)
}

func TestDisplayPosts(t *testing.T) {
	post := types.NewPost(1, "https://www.linkedin.com/in/someone")
	post.Content = "Hello world"
	post.Timestamp = "2024-05-01T10:00:00Z"
	post.PostURL = types.StringPtr("https://www.linkedin.com/feed/update/urn:li:activity:1/")
	post.PermalinkSource = types.PermalinkFromClipboard
	post.Engagement["reactions"] = "12"

	buf := &bytes.Buffer{}
	displayPosts(buf, []types.Post{*post})

	output := buf.String()
	assert.Contains(t, output, "EXTRACTED POSTS (1 total)")
	assert.Contains(t, output, "Post #1 (text)")
	assert.Contains(t, output, "verify before use")
	assert.Contains(t, output, "reactions: 12")
	assert.NotContains(t, output, "comments:")
}

func TestPrintSummary(t *testing.T) {
	video := types.NewPost(1, "p")
	video.PostType = types.PostTypeVideo
	video.LocalMediaPaths = []string{"media_x/a.mp4", "media_x/b.jpg"}

	buf := &bytes.Buffer{}
	printSummary(buf, []types.Post{*video, *types.NewPost(2, "p")}, true)

	assert.Contains(t, buf.String(), "Total posts: 2")
	assert.Contains(t, buf.String(), "Video posts: 1")
	assert.Contains(t, buf.String(), "Media files downloaded: 2")
}
