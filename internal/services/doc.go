// Package services defines the [Adapter] interface for destination platforms and implements it for Spotify and Apple Music.
//
// # Adapter Interface
//
// The transfer engine only talks to a destination through CreatePlaylist, SearchTrack and AddTracksBatch,
// plus the platform limits BatchSize and DescriptionLimit. [NewAdapter] returns the adapter for a platform;
// platforms without an implementation return [shared.ErrNotImplemented].
//
// # Request Executor
//
// Every API call goes through [Executor.Do]. It fetches a bearer token from an [auth.Provider], applies a
// per-request timeout and classifies the response:
//   - 2xx: JSON body decoded into the caller's value
//   - 401, or 400/403 mentioning the token: one provider refresh and one retry
//   - network errors, timeouts, 429, 5xx: retried with exponential backoff, honoring Retry-After
//   - other 4xx: [*shared.APIError] returned immediately
//
// # Spotify Implementation
//
// [SpotifyAdapter] searches with a field-filtered query ("track:<name> artist:<artist>") and adds tracks by URI
// in batches of 100. Playlist descriptions are limited to 300 characters.
//
// # Apple Music Implementation
//
// [AppleAdapter] searches the storefront catalog with a free-text term and adds songs to a library playlist in
// batches of 20. The Authorization header carries the developer token; library calls also send Music-User-Token.
//
// # Matching
//
// Only the top search result is considered. It is accepted when the source track's primary artist appears,
// case-insensitively, in the candidate's artist name ([MatchesArtist]).
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAuthFailed] : token could not be obtained or was rejected after a refresh
//   - [shared.ErrTransient] : retries exhausted
//   - [shared.ErrAPIRequest] : non-retryable HTTP failure, see [shared.APIError]
//   - [shared.ErrPlaylistNotFound] : source playlist id not found
package services
