package models

import "time"

// PersistedMatch records that a source track key resolved to a destination track id on a platform.
type PersistedMatch struct {
	id            string
	platform      Platform
	trackKey      string
	destinationID string
	createdAt     time.Time
}

// NewPersistedMatch creates an unsaved match. The repository assigns the ID.
func NewPersistedMatch(platform Platform, trackKey, destinationID string) *PersistedMatch {
	return &PersistedMatch{
		platform:      platform,
		trackKey:      trackKey,
		destinationID: destinationID,
		createdAt:     time.Now().UTC(),
	}
}

// RestorePersistedMatch rebuilds a match read from storage.
func RestorePersistedMatch(id string, platform Platform, trackKey, destinationID string, createdAt time.Time) *PersistedMatch {
	return &PersistedMatch{id: id, platform: platform, trackKey: trackKey, destinationID: destinationID, createdAt: createdAt}
}

func (m *PersistedMatch) ID() string            { return m.id }
func (m *PersistedMatch) SetID(id string)       { m.id = id }
func (m *PersistedMatch) Platform() Platform    { return m.platform }
func (m *PersistedMatch) TrackKey() string      { return m.trackKey }
func (m *PersistedMatch) DestinationID() string { return m.destinationID }
func (m *PersistedMatch) CreatedAt() time.Time  { return m.createdAt }

// Validate requires a platform, key and destination id.
func (m *PersistedMatch) Validate() error {
	return validateStruct("match", struct {
		Platform      Platform `validate:"required"`
		TrackKey      string   `validate:"required"`
		DestinationID string   `validate:"required"`
	}{m.platform, m.trackKey, m.destinationID})
}
