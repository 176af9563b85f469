package scraper

// Selector lists are ordered by priority; the first accepted match wins.
var (
	postContainerSelectors = []string{
		"div.feed-shared-update-v2",
		`div[data-urn*="activity"]`,
		".update-components-actor",
	}

	authorNameSelectors = []string{
		".update-components-actor__name",
		".feed-shared-actor__name",
		".update-components-actor__title",
		`button[aria-label*="View"][aria-label*="profile"] span.visually-hidden`,
		".feed-shared-actor__title",
	}

	authorAvatarSelectors = []string{
		".update-components-actor__image img",
		".feed-shared-actor__avatar img",
		".ivm-image-view-model img.presence-entity__image",
		"img.feed-shared-actor__avatar-image",
		"img.EntityPhoto-circle-3",
		"img.EntityPhoto-circle-4",
		`img[alt*="profile"]`,
	}

	contentSelectors = []string{
		"span.break-words",
		".feed-shared-text",
		".update-components-text",
		".attributed-text-segment-list__content",
		"[data-attributed-text]",
	}

	// mediaExclusions are matched against src, class and alt of media
	// candidates to drop avatars and UI chrome.
	mediaExclusions = []string{
		"avatar",
		"profile",
		"entity-photo",
		"presence-entity",
		"actor",
		"icon",
		"reaction",
		"logo",
		"emoji",
	}

	avatarClassHints = []string{"actor", "avatar", "presence-entity", "entityphoto", "profile"}
	avatarAltHints   = []string{"profile", "photo", "view"}

	// Placeholder author names rendered before the actor block hydrates.
	placeholderNames = []string{"linkedin member", "feed post", "view profile"}
)

const (
	feedReadySelector    = "div.feed-shared-update-v2, .artdeco-empty-state"
	emptyStateSelector   = ".artdeco-empty-state"
	reactionsSelector    = ".social-counts-reactions__count"
	commentsSelector     = ".social-counts-comments"
	articleSelector      = ".update-components-article"
	timeSelector         = "time"
	activityURNSelector  = `[data-urn*="activity"]`
	postMenuSelector     = `button[aria-label*="menu"]`
	copyLinkXPath        = `//span[contains(text(), 'Copy link')]/ancestor::button`
	usernameSelector     = "#username"
	passwordSelector     = "#password"
	submitSelector       = `button[type="submit"]`
	submitText           = "Sign in"
	loggedInSelector     = "div.feed-container-theme, main#main-content"
	activityURLTemplate  = "https://www.linkedin.com/feed/update/urn:li:activity:%s"
	permalinkHostMarker  = "linkedin.com"
	visuallyHiddenMarker = ".visually-hidden"

	mediaMinSize  = 100
	avatarMaxSize = 200
)

// FirstMatch returns the first value lookup accepts, trying selectors in
// order, along with the selector that produced it.
func FirstMatch[T any](selectors []string, lookup func(selector string) (T, bool)) (T, string, bool) {
	for _, selector := range selectors {
		if value, ok := lookup(selector); ok {
			return value, selector, true
		}
	}
	var zero T
	return zero, "", false
}
