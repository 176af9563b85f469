package scraper

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin-scraper/internal/config"
)

func testMediaConfig() config.MediaConfig {
	cfg := config.Default().Media
	cfg.RequestTimeout = 5 * time.Second
	cfg.BlobCaptureBudget = 2 * time.Second
	cfg.BlobScriptTimeout = time.Second
	return cfg
}

func newTestFetcher(t *testing.T, cfg config.MediaConfig) (*MediaFetcher, string) {
	t.Helper()
	dir := t.TempDir()
	return NewMediaFetcher(dir, "https://www.linkedin.com/", cfg, config.RateLimitConfig{}, testLogger()), dir
}

func mediaFiles(t *testing.T, dir, runID string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, MediaDirName(runID)))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestFetchReplaysBrowserIdentity(t *testing.T) {
	payload := bytes.Repeat([]byte{0x89}, 256)
	var gotCookie, gotAgent, gotReferer string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("li_at"); err == nil {
			gotCookie = c.Value
		}
		gotAgent = r.UserAgent()
		gotReferer = r.Referer()
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer server.Close()

	session := newFakeSession()
	session.cookies = []*http.Cookie{{Name: "li_at", Value: "token", Domain: ".linkedin.com"}}
	session.returns("user-agent", "TestBrowser/1.0")

	fetcher, dir := newTestFetcher(t, testMediaConfig())
	url := server.URL + "/dms/image/photo"

	localPath, ok := fetcher.Fetch(context.Background(), session, url, "run1", 2, 1)
	require.True(t, ok)

	assert.Equal(t, "media_run1/post_2_media_1_"+urlHash(url)+".png", localPath)
	assert.Equal(t, "token", gotCookie)
	assert.Equal(t, "TestBrowser/1.0", gotAgent)
	assert.Equal(t, "https://www.linkedin.com/", gotReferer)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(localPath)))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchNonOKIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher, dir := newTestFetcher(t, testMediaConfig())

	_, ok := fetcher.Fetch(context.Background(), newFakeSession(), server.URL+"/missing.jpg", "run1", 1, 1)
	assert.False(t, ok)
	assert.Empty(t, mediaFiles(t, dir, "run1"))
}

func TestFetchDiscardsUndersizedMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("tiny"))
	}))
	defer server.Close()

	fetcher, dir := newTestFetcher(t, testMediaConfig())

	_, ok := fetcher.Fetch(context.Background(), newFakeSession(), server.URL+"/pixel.jpg", "run1", 1, 1)
	assert.False(t, ok)
	assert.Empty(t, mediaFiles(t, dir, "run1"))
}

func TestFetchTransportErrorIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/gone.jpg"
	server.Close()

	fetcher, dir := newTestFetcher(t, testMediaConfig())

	_, ok := fetcher.Fetch(context.Background(), newFakeSession(), url, "run1", 1, 1)
	assert.False(t, ok)
	assert.Empty(t, mediaFiles(t, dir, "run1"))
}

func TestFetchFailureLeavesNoMediaDir(t *testing.T) {
	payload := bytes.Repeat([]byte{0xff}, 256)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing.jpg") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer server.Close()

	fetcher, dir := newTestFetcher(t, testMediaConfig())
	session := newFakeSession()

	_, ok := fetcher.Fetch(context.Background(), session, server.URL+"/missing.jpg", "run1", 1, 1)
	require.False(t, ok)
	_, err := os.Stat(filepath.Join(dir, MediaDirName("run1")))
	assert.True(t, os.IsNotExist(err))

	_, ok = fetcher.Fetch(context.Background(), session, server.URL+"/photo.jpg", "run2", 1, 1)
	require.True(t, ok)
	_, ok = fetcher.Fetch(context.Background(), session, server.URL+"/missing.jpg", "run2", 1, 2)
	require.False(t, ok)
	assert.Len(t, mediaFiles(t, dir, "run2"), 1)
}

func TestTruncateStringKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "héllo...", truncateString("héllo wörld", 5))
	assert.Equal(t, "日本...", truncateString("日本語のテキスト", 2))
}

func TestFetchCapturesBlobAfterRetry(t *testing.T) {
	frame := bytes.Repeat([]byte{0xff}, 300)
	var attempts int32

	session := newFakeSession()
	session.on("blob-capture", func(args map[string]interface{}) (interface{}, error) {
		assert.Equal(t, "blob:https://www.linkedin.com/abc", args["url"])
		if atomic.AddInt32(&attempts, 1) < 2 {
			return blobCaptureResult{Ready: false, Kind: "video"}, nil
		}
		return blobCaptureResult{
			Ready: true,
			Kind:  "video",
			Data:  "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame),
		}, nil
	})

	fetcher, dir := newTestFetcher(t, testMediaConfig())
	url := "blob:https://www.linkedin.com/abc"

	localPath, ok := fetcher.Fetch(context.Background(), session, url, "run1", 4, 2)
	require.True(t, ok)

	assert.Equal(t, "media_run1/post_4_video_frame_2_"+urlHash(url)+".jpg", localPath)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(localPath)))
	require.NoError(t, err)
	assert.Equal(t, frame, data)
}

func TestFetchBlobGivesUpWithinBudget(t *testing.T) {
	cfg := testMediaConfig()
	cfg.BlobCaptureBudget = time.Second

	session := newFakeSession()
	session.returns("blob-capture", blobCaptureResult{Ready: false, Kind: "image"})

	fetcher, dir := newTestFetcher(t, cfg)

	started := time.Now()
	_, ok := fetcher.Fetch(context.Background(), session, "blob:https://www.linkedin.com/never", "run1", 1, 1)

	assert.False(t, ok)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Greater(t, session.callCount("blob-capture"), 1)
	assert.Empty(t, mediaFiles(t, dir, "run1"))
}

func TestFetchBlobStopsOnElementError(t *testing.T) {
	session := newFakeSession()
	session.returns("blob-capture", blobCaptureResult{Error: "no element bound to blob url"})

	fetcher, _ := newTestFetcher(t, testMediaConfig())

	_, ok := fetcher.Fetch(context.Background(), session, "blob:https://www.linkedin.com/x", "run1", 1, 1)
	assert.False(t, ok)
	assert.Equal(t, 1, session.callCount("blob-capture"))
}

func TestExtractorDownloadsMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(bytes.Repeat([]byte{1}, 500))
	}))
	defer server.Close()

	html := strings.Replace(imagePostHTML,
		"https://media.licdn.com/dms/image/feedshare-shrink_800/photo.jpg",
		server.URL+"/dms/image/feedshare/photo.jpg", 1)

	fetcher, dir := newTestFetcher(t, testMediaConfig())
	extractor := NewExtractor(testConfig().Scraper, fetcher, testLogger())

	post, err := extractor.Extract(context.Background(), newFakeSession(), PostElement{Ordinal: 1, HTML: html}, testProfileURL, "run1")
	require.NoError(t, err)

	require.Len(t, post.LocalMediaPaths, 1)
	assert.True(t, strings.HasPrefix(post.LocalMediaPaths[0], "media_run1/post_1_media_1_"))
	assert.Len(t, mediaFiles(t, dir, "run1"), 1)
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        string
	}{
		{"video/mp4", "https://x/a", "mp4"},
		{"image/jpeg; charset=binary", "https://x/a", "jpg"},
		{"image/png", "https://x/a.jpg", "png"},
		{"image/webp", "https://x/a", "webp"},
		{"application/octet-stream", "https://x/a.gif?v=1", "gif"},
		{"", "https://x/playlist/video/123", "mp4"},
		{"", "https://x/image/123", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType+" "+tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, extensionFor(tt.contentType, tt.url))
		})
	}
}

func TestDecodeDataURL(t *testing.T) {
	data, err := decodeDataURL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("frame")))
	require.NoError(t, err)
	assert.Equal(t, []byte("frame"), data)

	_, err = decodeDataURL("data:,")
	assert.Error(t, err)
	_, err = decodeDataURL("data:image/jpeg;base64,!!!")
	assert.Error(t, err)
}
