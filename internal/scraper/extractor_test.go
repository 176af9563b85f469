package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin-scraper/pkg/types"
)

const testProfileURL = "https://www.linkedin.com/in/jane-doe/"

const imagePostHTML = `<div class="feed-shared-update-v2" data-urn="urn:li:activity:7123456789">
  <div class="update-components-actor">
    <span class="update-components-actor__name"><span aria-hidden="true">Jane Doe</span><span class="visually-hidden">Jane Doe</span></span>
    <div class="update-components-actor__image"><img src="https://media.licdn.com/dms/image/avatar-small.jpg"></div>
  </div>
  <time datetime="2024-05-01T10:00:00Z">1w</time>
  <span class="break-words">Hello<br>world</span>
  <img src="https://media.licdn.com/dms/image/feedshare-shrink_800/photo.jpg" width="800">
  <img src="https://static.licdn.com/icons/like-icon.svg" width="16">
  <span class="social-counts-reactions__count">42</span>
  <span class="social-counts-comments">3 comments</span>
</div>`

func TestExtractImagePost(t *testing.T) {
	session := newFakeSession()
	extractor := NewExtractor(testConfig().Scraper, nil, testLogger())

	post, err := extractor.Extract(context.Background(), session, PostElement{Ordinal: 1, HTML: imagePostHTML}, testProfileURL, "")
	require.NoError(t, err)

	assert.Equal(t, 1, post.PostNumber)
	assert.Equal(t, testProfileURL, post.ProfileURL)
	assert.Equal(t, "Jane Doe", types.Deref(post.AuthorName))
	assert.Equal(t, "https://media.licdn.com/dms/image/avatar-small.jpg", types.Deref(post.AuthorAvatar))
	assert.Contains(t, post.Content, "Hello")
	assert.Contains(t, post.Content, "world")
	assert.Equal(t, "2024-05-01T10:00:00Z", post.Timestamp)
	assert.Equal(t, map[string]string{"reactions": "42", "comments": "3 comments"}, post.Engagement)
	assert.Equal(t, []string{"https://media.licdn.com/dms/image/feedshare-shrink_800/photo.jpg"}, post.MediaURLs)
	assert.Equal(t, types.PostTypeImage, post.PostType)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:7123456789", types.Deref(post.PostURL))
	assert.Equal(t, types.PermalinkFromURN, post.PermalinkSource)
	assert.Empty(t, post.LocalMediaPaths)

	assert.Zero(t, session.callCount("author-fallback"))
	assert.Zero(t, session.callCount("open-post-menu"))
}

func TestExtractUsesInPageMediaScan(t *testing.T) {
	session := newFakeSession()
	session.on("media-scan", func(args map[string]interface{}) (interface{}, error) {
		assert.Equal(t, float64(2), args["ordinal"])
		return []mediaRef{
			{URL: "https://dms.licdn.com/playlist/vid/clip.mp4", Kind: "video"},
			{URL: "https://dms.licdn.com/playlist/vid/clip.mp4", Kind: "video"},
		}, nil
	})
	extractor := NewExtractor(testConfig().Scraper, nil, testLogger())

	post, err := extractor.Extract(context.Background(), session, PostElement{Ordinal: 2, HTML: imagePostHTML}, testProfileURL, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://dms.licdn.com/playlist/vid/clip.mp4"}, post.MediaURLs)
	assert.Equal(t, types.PostTypeVideo, post.PostType)
}

func TestExtractAuthorFallback(t *testing.T) {
	html := `<div class="feed-shared-update-v2" data-urn="urn:li:activity:1">
  <span class="update-components-actor__name">LinkedIn Member</span>
  <span class="break-words">Text only</span>
</div>`

	session := newFakeSession()
	session.returns("author-fallback", authorFallbackResult{Name: "Jane Doe", Avatar: "https://media.licdn.com/jane.jpg"})
	extractor := NewExtractor(testConfig().Scraper, nil, testLogger())

	post, err := extractor.Extract(context.Background(), session, PostElement{Ordinal: 1, HTML: html}, testProfileURL, "")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", types.Deref(post.AuthorName))
	assert.Equal(t, "https://media.licdn.com/jane.jpg", types.Deref(post.AuthorAvatar))
	assert.Equal(t, types.PostTypeText, post.PostType)
	assert.Empty(t, post.MediaURLs)
}

func TestExtractAttributeFailuresKeepDefaults(t *testing.T) {
	html := `<div class="feed-shared-update-v2"><p>nothing recognizable</p></div>`

	session := newFakeSession()
	session.on("author-fallback", func(map[string]interface{}) (interface{}, error) {
		return nil, errors.New("element detached")
	})
	cfg := testConfig().Scraper
	cfg.ClipboardPermalinks = false
	extractor := NewExtractor(cfg, nil, testLogger())

	post, err := extractor.Extract(context.Background(), session, PostElement{Ordinal: 1, HTML: html}, testProfileURL, "")
	require.NoError(t, err)

	assert.Nil(t, post.AuthorName)
	assert.Nil(t, post.AuthorAvatar)
	assert.Nil(t, post.PostURL)
	assert.Empty(t, post.Content)
	assert.Empty(t, post.Timestamp)
	assert.NotNil(t, post.Engagement)
	assert.NotNil(t, post.MediaURLs)
	assert.Equal(t, types.PostTypeText, post.PostType)
}

func TestExtractArticlePost(t *testing.T) {
	html := `<div class="feed-shared-update-v2" data-urn="urn:li:activity:5">
  <span class="break-words">Read my article</span>
  <div class="update-components-article"><a href="https://example.com/a">Article</a></div>
</div>`

	post, err := NewExtractor(testConfig().Scraper, nil, testLogger()).
		Extract(context.Background(), newFakeSession(), PostElement{Ordinal: 1, HTML: html}, testProfileURL, "")
	require.NoError(t, err)

	assert.Equal(t, types.PostTypeArticle, post.PostType)
}

func TestExtractClipboardPermalink(t *testing.T) {
	html := `<div class="feed-shared-update-v2"><span class="break-words">No urn here</span></div>`

	session := newFakeSession()
	session.returns("open-post-menu", true)
	session.returns("click-copy-link", true)
	session.returns("read-clipboard", "https://www.linkedin.com/posts/jane-doe_activity-42\n")
	extractor := NewExtractor(testConfig().Scraper, nil, testLogger())

	first, err := extractor.Extract(context.Background(), session, PostElement{Ordinal: 1, HTML: html}, testProfileURL, "")
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/posts/jane-doe_activity-42", types.Deref(first.PostURL))
	assert.Equal(t, types.PermalinkFromClipboard, first.PermalinkSource)

	// The clipboard did not change, so the value belongs to the previous post.
	second, err := extractor.Extract(context.Background(), session, PostElement{Ordinal: 2, HTML: html}, testProfileURL, "")
	require.NoError(t, err)
	assert.Nil(t, second.PostURL)
	assert.Empty(t, second.PermalinkSource)
}

func TestExtractClipboardIgnoresForeignText(t *testing.T) {
	html := `<div class="feed-shared-update-v2"><span class="break-words">No urn here</span></div>`

	session := newFakeSession()
	session.returns("open-post-menu", true)
	session.returns("click-copy-link", true)
	session.returns("read-clipboard", "some unrelated text")

	post, err := NewExtractor(testConfig().Scraper, nil, testLogger()).
		Extract(context.Background(), session, PostElement{Ordinal: 1, HTML: html}, testProfileURL, "")
	require.NoError(t, err)
	assert.Nil(t, post.PostURL)
}

func TestExtractRejectsEmptyMarkup(t *testing.T) {
	_, err := NewExtractor(testConfig().Scraper, nil, testLogger()).
		Extract(context.Background(), newFakeSession(), PostElement{Ordinal: 1, HTML: "   "}, testProfileURL, "")
	assert.Error(t, err)
}

func TestIsAuthorName(t *testing.T) {
	assert.True(t, isAuthorName("Jane Doe"))
	assert.False(t, isAuthorName(""))
	assert.False(t, isAuthorName("LinkedIn Member"))
	assert.False(t, isAuthorName("Feed post"))
}
