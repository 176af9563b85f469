package scraper

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
)

var errMediaTooSmall = errors.New("media below minimum size")

var extensionsByContentType = map[string]string{
	"video/mp4":  "mp4",
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var knownExtensions = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
	".mp4":  "mp4",
}

// MediaDirName is the per-run media directory under the storage root.
func MediaDirName(runID string) string {
	return "media_" + runID
}

// MediaFetcher saves post media under <baseDir>/media_<runID>/. Failures
// are logged and reported as absent; no partial file is left behind.
type MediaFetcher struct {
	baseDir string
	referer string
	client  *http.Client
	limiter *rate.Limiter
	cfg     config.MediaConfig
	logger  *logrus.Logger
}

func NewMediaFetcher(baseDir, referer string, cfg config.MediaConfig, limits config.RateLimitConfig, logger *logrus.Logger) *MediaFetcher {
	limit := rate.Inf
	if limits.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(limits.RequestsPerMinute))
	}

	return &MediaFetcher{
		baseDir: baseDir,
		referer: referer,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		logger:  logger,
	}
}

// Fetch downloads or captures one media item and returns its path relative
// to the storage root.
func (f *MediaFetcher) Fetch(ctx context.Context, session browser.Session, url, runID string, ordinal, index int) (string, bool) {
	log := f.logger.WithFields(logrus.Fields{"run_id": runID, "post": ordinal, "index": index})

	dir := filepath.Join(f.baseDir, MediaDirName(runID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warnf("Failed to create media directory: %v", err)
		return "", false
	}

	var (
		filename string
		err      error
	)
	if strings.HasPrefix(url, "blob:") {
		filename, err = f.captureBlob(ctx, session, dir, url, ordinal, index)
	} else {
		filename, err = f.download(ctx, session, dir, url, ordinal, index)
	}
	if err != nil {
		log.Warnf("Media not saved for %s: %v", truncateString(url, 100), err)
		// Only succeeds while nothing has been saved for this run.
		os.Remove(dir)
		return "", false
	}

	log.Debugf("Saved media %s", filename)
	return path.Join(MediaDirName(runID), filename), true
}

func (f *MediaFetcher) download(ctx context.Context, session browser.Session, dir, url string, ordinal, index int) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	var userAgent string
	if err := session.Evaluate(ctx, userAgentScript(), &userAgent); err != nil {
		f.logger.Debugf("Failed to read user agent: %v", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Referer", f.referer)
	req.Header.Set("Accept", "*/*")

	cookies, err := session.Cookies(ctx)
	if err != nil {
		f.logger.Debugf("Downloading without browser cookies: %v", err)
	}
	for _, cookie := range cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	ext := extensionFor(resp.Header.Get("Content-Type"), url)
	filename := fmt.Sprintf("post_%d_media_%d_%s.%s", ordinal, index, urlHash(url), ext)
	if err := f.writeFile(dir, filename, resp.Body); err != nil {
		return "", err
	}
	return filename, nil
}

func (f *MediaFetcher) captureBlob(ctx context.Context, session browser.Session, dir, url string, ordinal, index int) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = f.cfg.BlobCaptureBudget
	bo.Reset()

	capture := func() (blobCaptureResult, error) {
		scriptCtx, cancel := context.WithTimeout(ctx, f.cfg.BlobScriptTimeout)
		defer cancel()

		var result blobCaptureResult
		if err := session.Evaluate(scriptCtx, blobCaptureScript(ordinal, url), &result); err != nil {
			if ctx.Err() != nil {
				return result, backoff.Permanent(ctx.Err())
			}
			return result, err
		}
		if result.Ready {
			return result, nil
		}
		if result.Error != "" {
			return result, backoff.Permanent(errors.New(result.Error))
		}
		return result, fmt.Errorf("%s element not ready", result.Kind)
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Debugf("Blob capture for post %d retrying in %s: %v", ordinal, wait.Round(time.Millisecond), err)
	}

	result, err := backoff.RetryNotifyWithData(capture, backoff.WithContext(bo, ctx), notify)
	if err != nil {
		return "", fmt.Errorf("failed to capture blob: %w", err)
	}

	data, err := decodeDataURL(result.Data)
	if err != nil {
		return "", err
	}

	kind := "image"
	if result.Kind == "video" {
		kind = "video_frame"
	}
	filename := fmt.Sprintf("post_%d_%s_%d_%s.jpg", ordinal, kind, index, urlHash(url))
	if err := f.writeFile(dir, filename, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return filename, nil
}

// writeFile streams r into dir/name through a temp file so readers never
// observe a partial or undersized file.
func (f *MediaFetcher) writeFile(dir, name string, r io.Reader) error {
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write media: %w", err)
	}
	if written < f.cfg.MinBytes {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %d bytes", errMediaTooSmall, written)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move media into place: %w", err)
	}
	return nil
}

func decodeDataURL(dataURL string) ([]byte, error) {
	_, payload, ok := strings.Cut(dataURL, ",")
	if !ok || payload == "" {
		return nil, errors.New("capture returned no image data")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode captured image: %w", err)
	}
	return data, nil
}

func extensionFor(contentType, url string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := extensionsByContentType[strings.ToLower(mediaType)]; ok {
			return ext
		}
	}

	clean := url
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if ext, ok := knownExtensions[strings.ToLower(path.Ext(clean))]; ok {
		return ext
	}

	if looksLikeVideo(url) {
		return "mp4"
	}
	return "jpg"
}

func urlHash(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:8]
}

func looksLikeVideo(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "video") || strings.Contains(lower, "mp4")
}

func truncateString(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
