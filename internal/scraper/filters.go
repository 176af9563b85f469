package scraper

import (
	"sort"

	"linkedin-scraper/internal/utils"
	"linkedin-scraper/pkg/types"
)

// IsRetained reports whether a post carries text or media.
func IsRetained(post *types.Post) bool {
	return post.HasBody() || len(post.MediaURLs) > 0
}

// RetainPosts drops empty posts and returns statistics over the input.
func RetainPosts(posts []*types.Post) ([]*types.Post, types.FilterStats) {
	stats := types.FilterStats{TotalPosts: len(posts)}
	retained := make([]*types.Post, 0, len(posts))

	for _, post := range posts {
		if !IsRetained(post) {
			stats.EmptyDropped++
			continue
		}
		if len(post.MediaURLs) > 0 {
			stats.WithMedia++
		}
		if post.PostType == types.PostTypeVideo {
			stats.VideoPosts++
		}
		retained = append(retained, post)
	}

	stats.RetainedPosts = len(retained)
	return retained, stats
}

// SortByTimestamp orders posts newest first. Posts whose timestamp does not
// parse sort as the earliest; ties keep their input order.
func SortByTimestamp(posts []types.Post) {
	keys := make([]int64, len(posts))
	valid := make([]bool, len(posts))
	for i := range posts {
		if t, ok := utils.ParseTimestamp(posts[i].Timestamp); ok {
			keys[i] = t.UnixNano()
			valid[i] = true
		}
	}

	index := make([]int, len(posts))
	for i := range index {
		index[i] = i
	}
	sort.SliceStable(index, func(a, b int) bool {
		ia, ib := index[a], index[b]
		if valid[ia] != valid[ib] {
			return valid[ia]
		}
		return keys[ia] > keys[ib]
	})

	sorted := make([]types.Post, len(posts))
	for i, idx := range index {
		sorted[i] = posts[idx]
	}
	copy(posts, sorted)
}

// CountVideoPosts and CountMedia back the console summary.
func CountVideoPosts(posts []types.Post) int {
	count := 0
	for _, post := range posts {
		if post.PostType == types.PostTypeVideo {
			count++
		}
	}
	return count
}

func CountMedia(posts []types.Post) int {
	count := 0
	for _, post := range posts {
		count += len(post.LocalMediaPaths)
	}
	return count
}
