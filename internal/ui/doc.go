// Package ui draws transfer progress in the terminal with bubbletea.
//
// [RunProgress] shows a progress bar for a single transfer. [Run] adds a track preview and a confirmation step before
// the transfer and a summary after it:
//  1. [PreviewView] : Browse the loaded source tracks
//  2. [ConfirmView] : Confirm the destination
//  3. [TransferView] : Progress bar fed by [ProgressModel]
//  4. [ResultView] : Match rate and tracks that could not be found
//
// The transfer runs in its own goroutine and reports through a tasks.ChannelReporter. The model drains the channel
// one message at a time, so a slow terminal only drops intermediate updates and never blocks the transfer.
package ui
