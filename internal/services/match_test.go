package services

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
)

func TestMatchesArtist(t *testing.T) {
	tests := []struct {
		candidate string
		source    string
		want      bool
	}{
		{"Beyoncé", "Beyoncé", true},
		{"BEYONCÉ", "beyoncé", true},
		{"Beyoncé feat. Jay-Z", "beyoncé", true},
		{"Jay-Z", "Beyoncé", false},
		{"Arthur Beatrice", "Art", true},
		{"Anyone", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate+"/"+tt.source, func(t *testing.T) {
			if got := MatchesArtist(tt.candidate, tt.source); got != tt.want {
				t.Errorf("MatchesArtist(%q, %q) = %v, want %v", tt.candidate, tt.source, got, tt.want)
			}
		})
	}
}

func TestTruncateDescription(t *testing.T) {
	t.Run("Short Strings Are Unchanged", func(t *testing.T) {
		if got := TruncateDescription("road trip", 300); got != "road trip" {
			t.Errorf("unexpected %q", got)
		}
	})

	t.Run("Exact Length Is Unchanged", func(t *testing.T) {
		s := strings.Repeat("a", 255)
		if got := TruncateDescription(s, 255); got != s {
			t.Error("expected string at the limit to be unchanged")
		}
	})

	t.Run("Long Strings End With Ellipsis", func(t *testing.T) {
		s := strings.Repeat("x", 350)
		got := TruncateDescription(s, 300)
		if len(got) != 300 {
			t.Errorf("expected 300 chars, got %d", len(got))
		}
		if got != strings.Repeat("x", 297)+"..." {
			t.Error("expected first 297 characters followed by ...")
		}
	})

	t.Run("Counts Runes", func(t *testing.T) {
		s := strings.Repeat("é", 20)
		got := TruncateDescription(s, 10)
		if utf8.RuneCountInString(got) != 10 {
			t.Errorf("expected 10 runes, got %d", utf8.RuneCountInString(got))
		}
		if !utf8.ValidString(got) {
			t.Error("expected valid utf-8")
		}
	})

	t.Run("Never Exceeds Limit", func(t *testing.T) {
		for limit := 0; limit < 8; limit++ {
			got := TruncateDescription("abcdefghij", limit)
			if utf8.RuneCountInString(got) > limit {
				t.Errorf("limit %d: got %q", limit, got)
			}
		}
	})
}

func TestQueries(t *testing.T) {
	if got := SpotifyQuery("Halo ", " Beyoncé"); got != "track:Halo artist:Beyoncé" {
		t.Errorf("unexpected spotify query %q", got)
	}
	if got := SearchTerm("Don't Stop Me Now!", "Queen"); got != "Don t Stop Me Now Queen" {
		t.Errorf("unexpected search term %q", got)
	}
}

func TestParsePlaylistURL(t *testing.T) {
	tests := []struct {
		url      string
		platform models.Platform
		id       string
		wantErr  bool
	}{
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", models.PlatformSpotify, "37i9dQZF1DXcBWIGoYBM5M", false},
		{"https://open.spotify.com/user/someone/playlist/abc123/", models.PlatformSpotify, "abc123", false},
		{"https://music.apple.com/us/playlist/road-trip/pl.u-8aAVZAdsoZXVk", models.PlatformApple, "pl.u-8aAVZAdsoZXVk", false},
		{"https://music.apple.com/gb/playlist/todays-hits/pl.f4d106fed2bd41149aaacabb233eb5eb", models.PlatformApple, "pl.f4d106fed2bd41149aaacabb233eb5eb", false},
		{"https://open.spotify.com/album/123", "", "", true},
		{"https://www.deezer.com/playlist/1", "", "", true},
		{"https://spotify.com/playlist/abc123", models.PlatformSpotify, "abc123", false},
		{"https://notspotify.com/playlist/abc", "", "", true},
		{"https://open.spotify.com.evil.io/playlist/abc", "", "", true},
		{"https://fakemusic.apple.com/us/playlist/x/pl.u-abc", "", "", true},
		{"https://beta.music.apple.com/us/playlist/x/pl.u-abc", models.PlatformApple, "pl.u-abc", false},
		{"not a url", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			platform, id, err := ParsePlaylistURL(tt.url)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if platform != tt.platform || id != tt.id {
				t.Errorf("got (%s, %s), want (%s, %s)", platform, id, tt.platform, tt.id)
			}
		})
	}
}
