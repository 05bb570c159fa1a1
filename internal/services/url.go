package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
)

var (
	spotifyPlaylistID = regexp.MustCompile(`playlist/([a-zA-Z0-9]+)`)
	applePlaylistID   = regexp.MustCompile(`(pl\.[a-zA-Z0-9.\-]+)$`)
)

// ParsePlaylistURL identifies the platform and playlist id of a share link.
//
//	https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc -> spotify, 37i9dQZF1DXcBWIGoYBM5M
//	https://music.apple.com/us/playlist/road-trip/pl.u-abc123       -> apple, pl.u-abc123
func ParsePlaylistURL(raw string) (models.Platform, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: not a playlist url: %q", shared.ErrInvalidInput, raw)
	}
	host := strings.ToLower(u.Hostname())
	path := strings.TrimRight(u.Path, "/")

	switch {
	case onDomain(host, "spotify.com"):
		if m := spotifyPlaylistID.FindStringSubmatch(path); m != nil {
			return models.PlatformSpotify, m[1], nil
		}
	case onDomain(host, "music.apple.com"):
		if m := applePlaylistID.FindStringSubmatch(path); m != nil {
			return models.PlatformApple, m[1], nil
		}
	default:
		return "", "", fmt.Errorf("%w: unsupported host %q", shared.ErrInvalidInput, u.Host)
	}

	return "", "", fmt.Errorf("%w: no playlist id in %q", shared.ErrInvalidInput, raw)
}

// onDomain reports whether host is domain or one of its subdomains.
func onDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
