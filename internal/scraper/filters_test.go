package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkedin-scraper/pkg/types"
)

func postWith(number int, content, timestamp string, media ...string) *types.Post {
	post := types.NewPost(number, testProfileURL)
	post.Content = content
	post.Timestamp = timestamp
	post.MediaURLs = append(post.MediaURLs, media...)
	if len(media) > 0 {
		post.PostType = types.PostTypeImage
	}
	return post
}

func TestIsRetained(t *testing.T) {
	tests := []struct {
		name string
		post *types.Post
		want bool
	}{
		{"text", postWith(1, "hello", ""), true},
		{"whitespace only", postWith(2, "  \n\t", ""), false},
		{"media without text", postWith(3, "", "", "https://media.licdn.com/a.jpg"), true},
		{"empty", postWith(4, "", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetained(tt.post))
		})
	}
}

func TestRetainPosts(t *testing.T) {
	video := postWith(3, "", "", "https://dms.licdn.com/clip.mp4")
	video.PostType = types.PostTypeVideo

	retained, stats := RetainPosts([]*types.Post{
		postWith(1, "hello", ""),
		postWith(2, " ", ""),
		video,
		postWith(4, "caption", "", "https://media.licdn.com/a.jpg"),
	})

	assert.Len(t, retained, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{retained[0].PostNumber, retained[1].PostNumber, retained[2].PostNumber})
	assert.Equal(t, types.FilterStats{
		TotalPosts:    4,
		RetainedPosts: 3,
		EmptyDropped:  1,
		WithMedia:     2,
		VideoPosts:    1,
	}, stats)
}

func TestSortByTimestamp(t *testing.T) {
	posts := []types.Post{
		*postWith(1, "a", "2024-01-01T10:00:00Z"),
		*postWith(2, "b", "3 days ago"),
		*postWith(3, "c", "2024-03-01"),
		*postWith(4, "d", ""),
		*postWith(5, "e", "2024-02-01T08:30:00.123456"),
	}

	SortByTimestamp(posts)

	order := make([]int, len(posts))
	for i, post := range posts {
		order[i] = post.PostNumber
	}
	// Unparseable timestamps sort last and keep their relative order.
	assert.Equal(t, []int{3, 5, 1, 2, 4}, order)
}

func TestCountHelpers(t *testing.T) {
	video := postWith(1, "", "", "https://dms.licdn.com/clip.mp4")
	video.PostType = types.PostTypeVideo
	video.LocalMediaPaths = []string{"media_x/post_1_media_1_abcd1234.mp4"}

	image := postWith(2, "pic", "", "https://media.licdn.com/a.jpg", "https://media.licdn.com/b.jpg")
	image.LocalMediaPaths = []string{"media_x/a.jpg", "media_x/b.jpg"}

	posts := []types.Post{*video, *image, *postWith(3, "text", "")}
	assert.Equal(t, 1, CountVideoPosts(posts))
	assert.Equal(t, 3, CountMedia(posts))
}
