// Package normalize turns raw upstream posts into NormalizedPost records.
// Extraction is a pure, order-sensitive fallback chain: galleries first,
// then native video, video previews, direct image links, embed thumbnails,
// and finally any preview image. Posts that yield no URL after recursing
// into their crosspost parents are dropped.
package normalize

import (
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/mediaflow-hub/listing-aggregator/client"
	"github.com/mediaflow-hub/listing-aggregator/model"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Normalize produces a NormalizedPost from one raw upstream post, or
// ok=false when no media URL can be extracted. A post flagged as video
// whose surviving URL did not come from the native-video step is marked
// IsUnplayableVideo: its single URL is a static preview, not playable
// media.
func Normalize(raw client.RawPost) (model.NormalizedPost, bool) {
	urls, playable := extract(raw)
	if len(urls) == 0 {
		return model.NormalizedPost{}, false
	}
	return model.NormalizedPost{
		Title:             raw.Title,
		PostID:            raw.ID,
		Channel:           raw.Channel,
		MediaURLs:         urls,
		IsUnplayableVideo: raw.IsVideo && !playable,
	}, true
}

// extract runs the fallback chain and reports whether the URLs came from
// the native playable-video step.
func extract(raw client.RawPost) ([]string, bool) {
	if urls := galleryURLs(raw); len(urls) > 0 {
		return urls, false
	}
	if u := nativeVideoURL(raw); u != "" {
		return []string{u}, true
	}
	if u := videoPreviewURL(raw); u != "" {
		return []string{u}, false
	}
	if u := directImageURL(raw); u != "" {
		return []string{u}, false
	}
	if u := embedThumbnailURL(raw); u != "" {
		return []string{u}, false
	}
	if u := previewImageURL(raw); u != "" {
		return []string{u}, false
	}
	for _, parent := range raw.CrosspostParentList {
		if urls, playable := extract(parent); len(urls) > 0 {
			return urls, playable
		}
	}
	return nil, false
}

// galleryURLs collects one URL per gallery item in listed order, taking
// the highest-resolution preview and falling back to the source
// representation.
func galleryURLs(raw client.RawPost) []string {
	if !raw.IsGallery || raw.GalleryData == nil || len(raw.MediaMetadata) == 0 {
		return nil
	}

	urls := make([]string, 0, len(raw.GalleryData.Items))
	for _, item := range raw.GalleryData.Items {
		meta, ok := raw.MediaMetadata[item.MediaID]
		if !ok {
			continue
		}
		if u := bestMetaURL(meta); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func bestMetaURL(meta client.MediaMetadata) string {
	var best string
	var bestWidth int
	for _, p := range meta.Previews {
		if p.URL != "" && p.Width >= bestWidth {
			best = p.URL
			bestWidth = p.Width
		}
	}
	if best == "" && meta.Source != nil {
		switch {
		case meta.Source.URL != "":
			best = meta.Source.URL
		case meta.Source.GIF != "":
			best = meta.Source.GIF
		case meta.Source.MP4 != "":
			best = meta.Source.MP4
		}
	}
	return html.UnescapeString(best)
}

// nativeVideoURL returns the direct video fallback URL only when it
// references a playable video file rather than a streaming manifest.
func nativeVideoURL(raw client.RawPost) string {
	for _, media := range []*client.Media{raw.Media, raw.SecureMedia} {
		if media == nil || media.RedditVideo == nil {
			continue
		}
		u := media.RedditVideo.FallbackURL
		if u != "" && isPlayableVideoURL(u) {
			return html.UnescapeString(u)
		}
	}
	return ""
}

func videoPreviewURL(raw client.RawPost) string {
	if raw.Preview == nil || raw.Preview.RedditVideoPreview == nil {
		return ""
	}
	return html.UnescapeString(raw.Preview.RedditVideoPreview.FallbackURL)
}

func directImageURL(raw client.RawPost) string {
	dest := raw.DestinationURL()
	if dest != "" && hasImageExtension(dest) {
		return html.UnescapeString(dest)
	}
	return ""
}

func embedThumbnailURL(raw client.RawPost) string {
	for _, media := range []*client.Media{raw.SecureMedia, raw.Media} {
		if media == nil || media.OEmbed == nil {
			continue
		}
		thumb := media.OEmbed.ThumbnailURL
		if thumb != "" && hasImageExtension(thumb) {
			return html.UnescapeString(thumb)
		}
	}
	return ""
}

// previewImageURL is the last resort: any preview source guarantees a
// visual representation for otherwise-unextractable items, notably
// manifest-only video streams.
func previewImageURL(raw client.RawPost) string {
	if raw.Preview == nil {
		return ""
	}
	for _, img := range raw.Preview.Images {
		if img.Source != nil && img.Source.URL != "" {
			return html.UnescapeString(img.Source.URL)
		}
	}
	return ""
}

// isPlayableVideoURL reports whether the URL points at a video file the
// consumer can play directly, as opposed to an HLS/DASH manifest.
func isPlayableVideoURL(raw string) bool {
	u, err := url.Parse(html.UnescapeString(raw))
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".mp4")
}

func hasImageExtension(raw string) bool {
	u, err := url.Parse(html.UnescapeString(raw))
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
