package models

import (
	"fmt"
	"time"
)

// Playlist is a normalized source playlist. It is read-only once loaded.
type Playlist struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Tracks      []Track  `json:"tracks" validate:"dive"`
	Source      Platform `json:"source_platform" validate:"required"`
}

// TotalTracks returns the number of tracks.
func (p *Playlist) TotalTracks() int {
	return len(p.Tracks)
}

// Duration sums the track durations.
func (p *Playlist) Duration() time.Duration {
	var ms int
	for _, t := range p.Tracks {
		ms += t.DurationMS
	}
	return time.Duration(ms) * time.Millisecond
}

// Validate checks the playlist and every track in it.
func (p *Playlist) Validate() error {
	if p == nil {
		return fmt.Errorf("invalid playlist: nil")
	}
	return validateStruct("playlist", p)
}
