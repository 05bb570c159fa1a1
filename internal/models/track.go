package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/porter/internal/shared"
)

// Artist is a credited artist. ID is only set when the source platform provides one.
type Artist struct {
	Name string `json:"name" validate:"required"`
	ID   string `json:"id,omitempty"`
}

// Album carries the album name only; nothing else survives normalization.
type Album struct {
	Name string `json:"name"`
}

// Track is the normalized track record every platform loader produces.
//
// Artists always has at least one entry; the first one is the primary match key.
type Track struct {
	Name       string   `json:"name" validate:"required"`
	Artists    []Artist `json:"artists" validate:"required,min=1,dive"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms" validate:"gte=0"`
}

// NewTrack builds and validates a [Track].
func NewTrack(name string, artists []Artist, album string, durationMS int) (Track, error) {
	t := Track{
		Name:       name,
		Artists:    append([]Artist(nil), artists...),
		Album:      Album{Name: album},
		DurationMS: durationMS,
	}
	if err := t.Validate(); err != nil {
		return Track{}, err
	}
	return t, nil
}

// Validate enforces the non-empty name and artist list.
func (t Track) Validate() error {
	return validateStruct("track", t)
}

// PrimaryArtist returns the first credited artist's name.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// ArtistNames joins every artist name with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// FormattedDuration renders the duration as m:ss.
func (t Track) FormattedDuration() string {
	minutes := t.DurationMS / 60000
	seconds := (t.DurationMS % 60000) / 1000
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Key is the case-folded name/primary-artist pair used to cache match results.
func (t Track) Key() string {
	return shared.NormalizeTrackKey(t.Name, t.PrimaryArtist())
}
