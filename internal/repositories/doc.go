// Package repositories implements SQLite persistence for the session match cache.
//
// [MatchRepository] implements models.Repository[*models.PersistedMatch] with an extra lookup by
// (platform, track key). [MatchCacheAdapter] wraps it as a tasks.MatchCacher so repeated tracks in a
// session skip the destination search.
//
// The database is opened at ":memory:" by default, so nothing outlives the process.
package repositories
