package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
	"linkedin-scraper/pkg/types"
)

var activityIDPattern = regexp.MustCompile(`activity:(\d+)`)

// PostElement is a post container captured from the live page. Ordinal is
// 1-based and also marks the element in the DOM for in-page scripts.
type PostElement struct {
	Ordinal int
	HTML    string
}

type mediaRef struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// Extractor turns post elements into records. Every attribute is looked up
// independently; a failed lookup leaves the field at its default.
type Extractor struct {
	cfg    config.ScraperConfig
	media  *MediaFetcher
	logger *logrus.Logger

	lastClipboard string
}

// NewExtractor returns an extractor for one run. A nil fetcher disables
// media downloads.
func NewExtractor(cfg config.ScraperConfig, media *MediaFetcher, logger *logrus.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		media:  media,
		logger: logger,
	}
}

// Extract builds the record for one post. Media is saved under runID when
// runID is non-empty and downloads are enabled.
func (e *Extractor) Extract(ctx context.Context, session browser.Session, el PostElement, profileURL, runID string) (*types.Post, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(el.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse post %d: %w", el.Ordinal, err)
	}
	root := doc.Find("body").Children().First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("post %d has no element content", el.Ordinal)
	}

	log := e.logger.WithFields(logrus.Fields{"post": el.Ordinal, "profile": profileURL})
	post := types.NewPost(el.Ordinal, profileURL)

	e.extractAuthor(ctx, session, root, el.Ordinal, post, log)
	post.Content = extractContent(root)
	post.Timestamp = extractTimestamp(root)
	extractEngagement(root, post)

	refs := e.extractMedia(ctx, session, root, el.Ordinal, log)
	for _, ref := range refs {
		post.MediaURLs = append(post.MediaURLs, ref.URL)
	}
	post.PostType = classifyPost(refs, root)

	e.extractPermalink(ctx, session, root, el.Ordinal, post, log)

	if e.media != nil && runID != "" {
		for i, ref := range refs {
			if localPath, ok := e.media.Fetch(ctx, session, ref.URL, runID, el.Ordinal, i+1); ok {
				post.LocalMediaPaths = append(post.LocalMediaPaths, localPath)
			}
		}
	}

	log.Debugf("Extracted post: type=%s media=%d content=%q", post.PostType, len(post.MediaURLs), truncateString(post.Content, 50))
	return post, nil
}

func (e *Extractor) extractAuthor(ctx context.Context, session browser.Session, root *goquery.Selection, ordinal int, post *types.Post, log *logrus.Entry) {
	name, selector, found := FirstMatch(authorNameSelectors, func(sel string) (string, bool) {
		match := root.Find(sel).First()
		if match.Length() == 0 {
			return "", false
		}
		name := firstLine(selectionText(match))
		return name, isAuthorName(name)
	})
	if found {
		log.Debugf("Author name matched %s", selector)
		post.AuthorName = types.StringPtr(name)
	}

	avatar, _, found := FirstMatch(authorAvatarSelectors, func(sel string) (string, bool) {
		src := imageSource(root.Find(sel).First())
		return src, src != "" && !strings.HasPrefix(src, "data:image")
	})
	if found {
		post.AuthorAvatar = types.StringPtr(avatar)
	}

	if post.AuthorName != nil && post.AuthorAvatar != nil {
		return
	}

	var fallback authorFallbackResult
	if err := session.Evaluate(ctx, authorFallbackScript(ordinal), &fallback); err != nil {
		log.Debugf("Author fallback script failed: %v", err)
		return
	}
	if post.AuthorName == nil && isAuthorName(fallback.Name) {
		post.AuthorName = types.StringPtr(fallback.Name)
	}
	if post.AuthorAvatar == nil && fallback.Avatar != "" && !strings.HasPrefix(fallback.Avatar, "data:image") {
		post.AuthorAvatar = types.StringPtr(fallback.Avatar)
	}
}

func extractContent(root *goquery.Selection) string {
	content, _, _ := FirstMatch(contentSelectors, func(sel string) (string, bool) {
		match := root.Find(sel).First()
		if match.Length() == 0 {
			return "", false
		}
		text := selectionText(match)
		return text, text != ""
	})
	return content
}

func extractTimestamp(root *goquery.Selection) string {
	timeEl := root.Find(timeSelector).First()
	if timeEl.Length() == 0 {
		return ""
	}
	if datetime, ok := timeEl.Attr("datetime"); ok && strings.TrimSpace(datetime) != "" {
		return strings.TrimSpace(datetime)
	}
	return strings.TrimSpace(timeEl.Text())
}

func extractEngagement(root *goquery.Selection, post *types.Post) {
	counters := map[string]string{
		"reactions": reactionsSelector,
		"comments":  commentsSelector,
	}
	for name, selector := range counters {
		match := root.Find(selector).First()
		if match.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(match.Text()); text != "" {
			post.Engagement[name] = text
		}
	}
}

func (e *Extractor) extractMedia(ctx context.Context, session browser.Session, root *goquery.Selection, ordinal int, log *logrus.Entry) []mediaRef {
	var refs []mediaRef
	err := session.Evaluate(ctx, mediaScanScript(ordinal), &refs)
	if err != nil {
		log.Debugf("Media scan script failed, scanning markup: %v", err)
	}
	if err != nil || len(refs) == 0 {
		refs = staticMediaScan(root)
	}
	return dedupeMedia(refs)
}

// staticMediaScan applies the in-page media rules to the captured markup.
func staticMediaScan(root *goquery.Selection) []mediaRef {
	var refs []mediaRef

	root.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		class, _ := img.Attr("class")
		alt, _ := img.Attr("alt")
		if isExcludedMedia(src) || isExcludedMedia(class) || isExcludedMedia(alt) {
			return
		}
		if width, err := strconv.Atoi(img.AttrOr("width", "")); err == nil && width > 0 && width < mediaMinSize {
			return
		}
		refs = append(refs, mediaRef{URL: src, Kind: "image"})
	})

	root.Find("video").Each(func(_ int, video *goquery.Selection) {
		src := video.AttrOr("src", "")
		if src == "" {
			src = video.Find("source[src]").First().AttrOr("src", "")
		}
		if src != "" {
			refs = append(refs, mediaRef{URL: src, Kind: "video"})
		}
	})

	return refs
}

func dedupeMedia(refs []mediaRef) []mediaRef {
	seen := make(map[string]bool, len(refs))
	result := make([]mediaRef, 0, len(refs))
	for _, ref := range refs {
		if ref.URL == "" || seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		result = append(result, ref)
	}
	return result
}

func classifyPost(refs []mediaRef, root *goquery.Selection) types.PostType {
	for _, ref := range refs {
		if ref.Kind == "video" || looksLikeVideo(ref.URL) {
			return types.PostTypeVideo
		}
	}
	if len(refs) > 0 {
		return types.PostTypeImage
	}
	if root.Is(articleSelector) || root.Find(articleSelector).Length() > 0 {
		return types.PostTypeArticle
	}
	return types.PostTypeText
}

func (e *Extractor) extractPermalink(ctx context.Context, session browser.Session, root *goquery.Selection, ordinal int, post *types.Post, log *logrus.Entry) {
	if id := activityID(root); id != "" {
		post.PostURL = types.StringPtr(fmt.Sprintf(activityURLTemplate, id))
		post.PermalinkSource = types.PermalinkFromURN
		return
	}
	if !e.cfg.ClipboardPermalinks {
		return
	}

	link, err := e.clipboardPermalink(ctx, session, ordinal)
	if err != nil {
		log.Debugf("Copy-link permalink failed: %v", err)
		return
	}
	if link != "" {
		post.PostURL = types.StringPtr(link)
		post.PermalinkSource = types.PermalinkFromClipboard
	}
}

func activityID(root *goquery.Selection) string {
	candidates := []string{root.AttrOr("data-urn", "")}
	root.Find(activityURNSelector).Each(func(_ int, s *goquery.Selection) {
		candidates = append(candidates, s.AttrOr("data-urn", ""))
	})
	for _, urn := range candidates {
		if m := activityIDPattern.FindStringSubmatch(urn); m != nil {
			return m[1]
		}
	}
	return ""
}

// clipboardPermalink opens the post menu, clicks "Copy link" and reads the
// clipboard. A value equal to the previous read is treated as stale.
func (e *Extractor) clipboardPermalink(ctx context.Context, session browser.Session, ordinal int) (string, error) {
	var opened bool
	if err := session.Evaluate(ctx, openPostMenuScript(ordinal), &opened); err != nil {
		return "", err
	}
	if !opened {
		return "", nil
	}
	if err := sleepContext(ctx, e.cfg.MenuOpenPause); err != nil {
		return "", err
	}

	var clicked bool
	if err := session.Evaluate(ctx, clickCopyLinkScript(), &clicked); err != nil {
		return "", err
	}
	if !clicked {
		return "", nil
	}
	if err := sleepContext(ctx, e.cfg.CopyLinkPause); err != nil {
		return "", err
	}

	var text string
	if err := session.Evaluate(ctx, readClipboardScript(), &text); err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if !strings.Contains(text, permalinkHostMarker) || text == e.lastClipboard {
		return "", nil
	}
	e.lastClipboard = text
	return text, nil
}

// selectionText returns rendered-ish text: line breaks kept, screen-reader
// duplicates dropped unless the selection is itself screen-reader text.
func selectionText(s *goquery.Selection) string {
	clone := s.Clone()
	if !clone.Is(visuallyHiddenMarker) {
		clone.Find(visuallyHiddenMarker).Remove()
	}
	clone.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(clone.Text())
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(line)
}

func isAuthorName(name string) bool {
	if name == "" || len(name) > 100 {
		return false
	}
	lower := strings.ToLower(name)
	for _, placeholder := range placeholderNames {
		if lower == placeholder {
			return false
		}
	}
	return true
}

func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-delayed-url", "data-src"} {
		if value := strings.TrimSpace(img.AttrOr(attr, "")); value != "" {
			return value
		}
	}
	return ""
}

func isExcludedMedia(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range mediaExclusions {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
