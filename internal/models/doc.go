// Package models defines the platform-agnostic shapes shared by every part of the transfer pipeline.
//
// The package contains two categories of types:
//
// 1. Normalized records produced by platform loaders and consumed by matching and transfer:
//   - [Track] : name, one or more artists, album and duration
//   - [Playlist] : name, description, ordered tracks and the platform it came from
//   - [Platform] : the known streaming platforms
//
// 2. Persistent Entities backing the session match cache:
//   - [PersistedMatch] : a source track key resolved to a destination track id
//
// Persistent entities implement [Model]; [Repository] defines the CRUD contract used by the repositories package.
package models
