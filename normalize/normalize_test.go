package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaflow-hub/listing-aggregator/client"
)

func galleryPost() client.RawPost {
	return client.RawPost{
		ID:        "g1",
		Title:     "three cats",
		Channel:   "cats",
		IsGallery: true,
		GalleryData: &client.GalleryData{Items: []client.GalleryItem{
			{MediaID: "m1"},
			{MediaID: "m2"},
			{MediaID: "m3"},
		}},
		MediaMetadata: map[string]client.MediaMetadata{
			"m1": {Previews: []client.MetaSource{
				{URL: "https://img.example/m1-small.jpg?w=320&amp;s=aa", Width: 320},
				{URL: "https://img.example/m1-large.jpg?w=1280&amp;s=bb", Width: 1280},
			}},
			"m2": {Source: &client.MetaSource{URL: "https://img.example/m2-source.jpg"}},
			"m3": {Source: &client.MetaSource{GIF: "https://img.example/m3.gif"}},
		},
	}
}

func TestNormalizeGalleryPreservesOrderAndPicksLargestPreview(t *testing.T) {
	post, ok := Normalize(galleryPost())
	require.True(t, ok)

	assert.Equal(t, []string{
		"https://img.example/m1-large.jpg?w=1280&s=bb",
		"https://img.example/m2-source.jpg",
		"https://img.example/m3.gif",
	}, post.MediaURLs)
	assert.False(t, post.IsUnplayableVideo)
	assert.Equal(t, "g1", post.PostID)
	assert.Equal(t, "cats", post.Channel)
}

func TestNormalizeNativeVideoPlayableFile(t *testing.T) {
	raw := client.RawPost{
		ID:      "v1",
		IsVideo: true,
		Media: &client.Media{RedditVideo: &client.RedditVideo{
			FallbackURL: "https://v.example/v1/DASH_720.mp4?source=fallback",
		}},
		Preview: &client.Preview{Images: []client.PreviewImage{
			{Source: &client.ImageSource{URL: "https://img.example/v1-preview.jpg"}},
		}},
	}

	post, ok := Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, []string{"https://v.example/v1/DASH_720.mp4?source=fallback"}, post.MediaURLs)
	assert.False(t, post.IsUnplayableVideo, "a playable file is not an unplayable video")
}

func TestNormalizeManifestOnlyVideoFallsBackToPreview(t *testing.T) {
	raw := client.RawPost{
		ID:      "v2",
		IsVideo: true,
		Media: &client.Media{RedditVideo: &client.RedditVideo{
			FallbackURL: "https://v.example/v2/HLSPlaylist.m3u8",
		}},
		Preview: &client.Preview{Images: []client.PreviewImage{
			{Source: &client.ImageSource{URL: "https://img.example/v2-preview.jpg"}},
		}},
	}

	post, ok := Normalize(raw)
	require.True(t, ok)
	require.Len(t, post.MediaURLs, 1)
	assert.Equal(t, "https://img.example/v2-preview.jpg", post.MediaURLs[0])
	assert.True(t, post.IsUnplayableVideo, "manifest-only video must be flagged unplayable")
}

func TestNormalizeVideoPreviewRendition(t *testing.T) {
	raw := client.RawPost{
		ID:      "v3",
		IsVideo: true,
		Preview: &client.Preview{
			RedditVideoPreview: &client.RedditVideo{FallbackURL: "https://v.example/v3/preview.mp4"},
		},
	}

	post, ok := Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, []string{"https://v.example/v3/preview.mp4"}, post.MediaURLs)
	assert.True(t, post.IsUnplayableVideo, "preview rendition is not the native playable step")
}

func TestNormalizeDirectImageLink(t *testing.T) {
	raw := client.RawPost{
		ID:                  "i1",
		URLOverriddenByDest: "https://img.example/direct.png",
	}

	post, ok := Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, []string{"https://img.example/direct.png"}, post.MediaURLs)
}

func TestNormalizeEmbedThumbnail(t *testing.T) {
	raw := client.RawPost{
		ID:                  "e1",
		URLOverriddenByDest: "https://videos.example/watch?v=abc",
		SecureMedia: &client.Media{OEmbed: &client.OEmbed{
			ThumbnailURL: "https://thumbs.example/abc.jpg",
			ProviderName: "videos.example",
		}},
	}

	post, ok := Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, []string{"https://thumbs.example/abc.jpg"}, post.MediaURLs)
}

func TestNormalizePreviewImageLastResort(t *testing.T) {
	raw := client.RawPost{
		ID:                  "p1",
		URLOverriddenByDest: "https://blog.example/article",
		Preview: &client.Preview{Images: []client.PreviewImage{
			{Source: &client.ImageSource{URL: "https://img.example/p1.jpg"}},
		}},
	}

	post, ok := Normalize(raw)
	require.True(t, ok, "any populated preview image must prevent a drop")
	assert.Equal(t, []string{"https://img.example/p1.jpg"}, post.MediaURLs)
}

func TestNormalizeRecursesIntoCrosspostParent(t *testing.T) {
	raw := client.RawPost{
		ID:                  "x1",
		Title:               "crossposted cats",
		Channel:             "aww",
		URLOverriddenByDest: "https://content.example/r/cats/comments/abc",
		CrosspostParentList: []client.RawPost{galleryPost()},
	}

	post, ok := Normalize(raw)
	require.True(t, ok)
	// Identity stays with the crosspost, media comes from the parent.
	assert.Equal(t, "x1", post.PostID)
	assert.Equal(t, "aww", post.Channel)
	assert.Len(t, post.MediaURLs, 3)
}

func TestNormalizeDropsPostWithoutMedia(t *testing.T) {
	raw := client.RawPost{
		ID:                  "t1",
		Title:               "text only",
		URLOverriddenByDest: "https://content.example/r/cats/comments/t1",
	}

	_, ok := Normalize(raw)
	assert.False(t, ok)
}

func TestNormalizeMediaURLsNeverEmpty(t *testing.T) {
	posts := []client.RawPost{
		galleryPost(),
		{ID: "a", URLOverriddenByDest: "https://img.example/a.webp"},
		{ID: "b", Preview: &client.Preview{Images: []client.PreviewImage{{Source: &client.ImageSource{URL: "https://img.example/b.jpg"}}}}},
		{ID: "c"},
	}

	for _, raw := range posts {
		post, ok := Normalize(raw)
		if ok {
			assert.NotEmpty(t, post.MediaURLs, "post %s", raw.ID)
		}
	}
}

func TestNormalizeUnplayableImpliesSingleNonVideoURL(t *testing.T) {
	raw := client.RawPost{
		ID:      "v4",
		IsVideo: true,
		Media: &client.Media{RedditVideo: &client.RedditVideo{
			FallbackURL: "https://v.example/v4/HLSPlaylist.m3u8",
		}},
		Preview: &client.Preview{Images: []client.PreviewImage{
			{Source: &client.ImageSource{URL: "https://img.example/v4.jpg"}},
		}},
	}

	post, ok := Normalize(raw)
	require.True(t, ok)
	require.True(t, post.IsUnplayableVideo)
	require.Len(t, post.MediaURLs, 1)
	assert.NotContains(t, post.MediaURLs[0], ".mp4")
}
