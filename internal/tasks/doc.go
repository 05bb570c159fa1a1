// Package tasks orchestrates playlist transfers between music services with progress reporting.
//
// # Transfer
//
// [Engine.Transfer] recreates a normalized source playlist on a destination [services.Adapter]:
//
//  1. Creates the destination playlist, truncating the description to the platform limit
//  2. Searches every source track in order; a failed search only marks that track as not found
//  3. Adds matched ids in batches of the adapter's batch size, pausing between batches
//  4. Reports completion and returns a [TransferResult] with matched ids and unmatched tracks
//
// Playlist creation and batch failures abort the transfer with [shared.ErrTransferFailed].
// Nothing is rolled back.
//
// # Progress Reporting
//
// Progress is delivered to a [ProgressReporter] in order. Searching events run from 0 to 50 percent,
// adding events from 50 to 100, and the final event is always 100 with phase [Complete].
//
// [ReporterFunc] adapts a function; [ChannelReporter] forwards to a channel and drops updates when it is full.
//
// # Match Caching
//
// The optional [MatchCacher] interface lets repeated tracks skip the destination search.
//
// Cache errors are ignored so they never disrupt a transfer.
package tasks
