// Package client talks to the upstream listing API and exposes the raw,
// loosely-shaped post payloads the normalizer works over. Upstream posts
// come in many shapes (galleries, native video, link posts, embeds,
// crossposts); the types here model only the fields the extraction chain
// reads, by optional presence.
package client

// RawListing is the upstream listing envelope: a page of posts plus the
// pagination anchor for the next page.
type RawListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string  `json:"kind"`
			Data RawPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RawPost is one upstream post as delivered. Every media-bearing field is
// optional; absence drives the normalizer's fallback chain.
type RawPost struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Channel string `json:"subreddit"`
	IsVideo bool   `json:"is_video"`

	// URL is the post's resolved destination link.
	URL                 string `json:"url"`
	URLOverriddenByDest string `json:"url_overridden_by_dest"`

	IsGallery     bool                     `json:"is_gallery"`
	GalleryData   *GalleryData             `json:"gallery_data"`
	MediaMetadata map[string]MediaMetadata `json:"media_metadata"`

	Media       *Media   `json:"media"`
	SecureMedia *Media   `json:"secure_media"`
	Preview     *Preview `json:"preview"`

	// CrosspostParentList carries the reposted-from parent items, richest
	// first. When the post itself yields no media the chain recurses here.
	CrosspostParentList []RawPost `json:"crosspost_parent_list"`
}

// DestinationURL returns the post's resolved destination, preferring the
// canonical overridden form.
func (p RawPost) DestinationURL() string {
	if p.URLOverriddenByDest != "" {
		return p.URLOverriddenByDest
	}
	return p.URL
}

// GalleryData lists gallery items in display order.
type GalleryData struct {
	Items []GalleryItem `json:"items"`
}

// GalleryItem references one gallery entry in the media-metadata map.
type GalleryItem struct {
	MediaID string `json:"media_id"`
}

// MediaMetadata describes one gallery item's available representations.
type MediaMetadata struct {
	Status   string       `json:"status"`
	Previews []MetaSource `json:"p"`
	Source   *MetaSource  `json:"s"`
}

// MetaSource is a single representation inside media metadata. URLs here
// arrive HTML-entity escaped.
type MetaSource struct {
	URL    string `json:"u"`
	GIF    string `json:"gif"`
	MP4    string `json:"mp4"`
	Width  int    `json:"x"`
	Height int    `json:"y"`
}

// Media is the post's attached media object.
type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
	OEmbed      *OEmbed      `json:"oembed"`
}

// RedditVideo describes a hosted video. FallbackURL may point at a
// playable file or at a streaming manifest.
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	IsGIF       bool   `json:"is_gif"`
}

// OEmbed is an externally-embedded media description.
type OEmbed struct {
	ThumbnailURL string `json:"thumbnail_url"`
	ProviderName string `json:"provider_name"`
}

// Preview holds static preview imagery and, for some videos, a preview
// rendition with its own fallback URL.
type Preview struct {
	Images             []PreviewImage `json:"images"`
	RedditVideoPreview *RedditVideo   `json:"reddit_video_preview"`
}

// PreviewImage is one preview image with its source representation.
type PreviewImage struct {
	Source      *ImageSource  `json:"source"`
	Resolutions []ImageSource `json:"resolutions"`
}

// ImageSource is a plain URL-plus-dimensions representation.
type ImageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
