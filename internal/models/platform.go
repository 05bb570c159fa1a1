package models

import "fmt"

// Platform identifies a streaming service.
type Platform string

const (
	PlatformSpotify    Platform = "spotify"
	PlatformApple      Platform = "apple"
	PlatformYouTube    Platform = "youtube"
	PlatformDeezer     Platform = "deezer"
	PlatformTidal      Platform = "tidal"
	PlatformAmazon     Platform = "amazon"
	PlatformSoundCloud Platform = "soundcloud"
)

// Platforms lists every platform the tool knows about, supported or stubbed.
var Platforms = []Platform{
	PlatformSpotify, PlatformApple, PlatformYouTube, PlatformDeezer, PlatformTidal, PlatformAmazon, PlatformSoundCloud,
}

// ParsePlatform accepts a platform name or a common alias.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "spotify", "spot":
		return PlatformSpotify, nil
	case "apple", "applemusic", "apple-music", "am":
		return PlatformApple, nil
	case "youtube", "ytmusic", "yt":
		return PlatformYouTube, nil
	}
	for _, p := range Platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// DisplayName returns the human-readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformSpotify:
		return "Spotify"
	case PlatformApple:
		return "Apple Music"
	case PlatformYouTube:
		return "YouTube Music"
	case PlatformDeezer:
		return "Deezer"
	case PlatformTidal:
		return "Tidal"
	case PlatformAmazon:
		return "Amazon Music"
	case PlatformSoundCloud:
		return "SoundCloud"
	default:
		return string(p)
	}
}
