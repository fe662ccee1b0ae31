package admin

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// VideoProvider names the platform a video is embedded from.
type VideoProvider string

const (
	ProviderYouTube    VideoProvider = "youtube"
	ProviderVimeo      VideoProvider = "vimeo"
	ProviderSoundCloud VideoProvider = "soundcloud"
)

// VideoRef is the canonical form of a video link.
type VideoRef struct {
	Provider VideoProvider `json:"provider"`
	ID       string        `json:"id"`
	EmbedURL string        `json:"embed_url"`
}

var (
	youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoID   = regexp.MustCompile(`^[0-9]{6,12}$`)
)

// ExtractVideo accepts a full YouTube, Vimeo or SoundCloud link, or a bare
// YouTube id, and returns the embeddable reference.
func ExtractVideo(raw string) (VideoRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return VideoRef{}, fmt.Errorf("%w: empty", ErrInvalidVideoURL)
	}
	if youtubeID.MatchString(raw) {
		return youtubeRef(raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if !strings.Contains(raw, "://") && !strings.ContainsAny(raw, " \t") {
			u, err = url.Parse("https://" + raw)
		}
		if err != nil || u == nil || u.Host == "" {
			return VideoRef{}, fmt.Errorf("%w: %q", ErrInvalidVideoURL, raw)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return VideoRef{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidVideoURL, u.Scheme)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtu.be":
		if id := segments[0]; youtubeID.MatchString(id) {
			return youtubeRef(id), nil
		}
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if id := u.Query().Get("v"); youtubeID.MatchString(id) {
			return youtubeRef(id), nil
		}
		if len(segments) >= 2 {
			switch segments[0] {
			case "embed", "shorts", "live", "v":
				if youtubeID.MatchString(segments[1]) {
					return youtubeRef(segments[1]), nil
				}
			}
		}
	case "vimeo.com":
		if id := segments[len(segments)-1]; vimeoID.MatchString(id) {
			return vimeoRef(id), nil
		}
	case "player.vimeo.com":
		if len(segments) == 2 && segments[0] == "video" && vimeoID.MatchString(segments[1]) {
			return vimeoRef(segments[1]), nil
		}
	case "w.soundcloud.com":
		if target := u.Query().Get("url"); target != "" {
			return VideoRef{Provider: ProviderSoundCloud, ID: target, EmbedURL: u.String()}, nil
		}
	case "soundcloud.com":
		if len(segments) >= 2 && segments[0] != "" {
			track := "https://soundcloud.com/" + strings.Join(segments, "/")
			return VideoRef{
				Provider: ProviderSoundCloud,
				ID:       track,
				EmbedURL: "https://w.soundcloud.com/player/?url=" + url.QueryEscape(track) + "&visual=true",
			}, nil
		}
	}
	return VideoRef{}, fmt.Errorf("%w: %q", ErrInvalidVideoURL, raw)
}

func youtubeRef(id string) VideoRef {
	return VideoRef{Provider: ProviderYouTube, ID: id, EmbedURL: "https://www.youtube.com/embed/" + id}
}

func vimeoRef(id string) VideoRef {
	return VideoRef{Provider: ProviderVimeo, ID: id, EmbedURL: "https://player.vimeo.com/video/" + id}
}

// ValidateSocialURL accepts absolute http(s) URLs with a host and mailto
// addresses. It returns the trimmed URL.
func ValidateSocialURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Hostname() == "" {
			return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
		}
	case "mailto":
		if at := strings.Index(u.Opaque, "@"); at <= 0 || at == len(u.Opaque)-1 {
			return "", fmt.Errorf("%w: %q is not an email address", ErrInvalidURL, raw)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return raw, nil
}
