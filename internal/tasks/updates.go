package tasks

import (
	"fmt"

	"github.com/desertthunder/porter/internal/models"
)

// ProgressUpdate represents a progress event during a transfer.
//
// Each update supersedes the previous one from the consumer's point of view.
type ProgressUpdate struct {
	Phase   Phase         // Transfer phase
	Status  string        // Human-readable message for display
	Percent float64       // Overall progress in [0, 100]
	Step    int           // Current step number within phase
	Total   int           // Total steps in this phase
	Track   *models.Track // Track being searched, nil outside the searching phase
}

// Transfer phase enumeration
type Phase int

const (
	Searching Phase = iota
	Adding
	Complete
)

func (p Phase) String() string {
	switch p {
	case Searching:
		return "searching"
	case Adding:
		return "adding"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// ProgressReporter receives progress updates synchronously and in order.
type ProgressReporter interface {
	Report(update ProgressUpdate)
}

// ReporterFunc adapts a function to [ProgressReporter].
type ReporterFunc func(update ProgressUpdate)

func (f ReporterFunc) Report(update ProgressUpdate) { f(update) }

// ChannelReporter forwards updates to a channel without blocking.
//
// Updates are dropped while the channel is full so reporting never stalls a transfer.
type ChannelReporter chan<- ProgressUpdate

func (c ChannelReporter) Report(update ProgressUpdate) {
	if c == nil {
		return
	}
	select {
	case c <- update:
	default:
	}
}

type nopReporter struct{}

func (nopReporter) Report(ProgressUpdate) {}

// NopReporter discards every update.
var NopReporter ProgressReporter = nopReporter{}

func searchingUpdate(i, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Searching,
		Status:  fmt.Sprintf("Searching for %s by %s...", tr.Name, tr.PrimaryArtist()),
		Percent: float64(i) / float64(total) * 50,
		Step:    i + 1,
		Total:   total,
		Track:   &tr,
	}
}

func addingUpdate(start, end, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Adding,
		Status:  fmt.Sprintf("Adding tracks %d-%d of %d...", start+1, end, total),
		Percent: 50 + float64(start)/float64(total)*50,
		Step:    end,
		Total:   total,
	}
}

func completeUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Status:  "Playlist conversion complete!",
		Percent: 100,
		Step:    total,
		Total:   total,
	}
}
