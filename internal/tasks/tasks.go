// package tasks implements the playlist transfer between music services.
//
// The core abstraction is Engine, which creates the destination playlist, matches every source track and adds the matches in batches.
// Progress is reported through a [ProgressReporter] so the CLI or UI layer can render it.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/services"
	"github.com/desertthunder/porter/internal/shared"
)

// DefaultBatchDelay is the pause between consecutive batch adds.
const DefaultBatchDelay = time.Second

// TrackMatch represents the result of attempting to match a single track.
type TrackMatch struct {
	Track         models.Track // Original track from source
	DestinationID string       // Destination id (empty if not found)
	Found         bool
	Cached        bool  // Match came from the session cache
	Err           error // Search error, counted as not found
}

// TransferResult contains all data from a transfer.
type TransferResult struct {
	Source       *models.Playlist
	Destination  models.Platform
	PlaylistID   string         // Created destination playlist
	PlaylistName string
	Description  string         // Description as sent, after truncation
	Matches      []TrackMatch   // Per-track results in source order
	MatchedIDs   []string       // Destination ids in source order
	NotFound     []models.Track // Tracks without a match
	TracksAdded  int
	Batches      int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Total returns the number of source tracks.
func (r *TransferResult) Total() int {
	return len(r.Matches)
}

// MatchPercentage returns the share of source tracks that were matched.
func (r *TransferResult) MatchPercentage() float64 {
	if len(r.Matches) == 0 {
		return 0
	}
	return float64(len(r.MatchedIDs)) / float64(len(r.Matches)) * 100
}

// Duration returns how long the transfer took.
func (r *TransferResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// MatchCacher defines optional match caching for transfers.
//
// Cache failures never affect a transfer.
type MatchCacher interface {
	LookupMatch(ctx context.Context, platform models.Platform, key string) (string, bool, error)
	StoreMatch(ctx context.Context, platform models.Platform, key, destinationID string) error
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	BatchDelay time.Duration
	Cache      MatchCacher
	Logger     *log.Logger
	// Sleep waits between batches; tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Engine runs playlist transfers.
type Engine struct {
	batchDelay time.Duration
	cache      MatchCacher
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// NewEngine creates a new [Engine].
func NewEngine(opts EngineOpts) *Engine {
	e := &Engine{
		batchDelay: opts.BatchDelay,
		cache:      opts.Cache,
		logger:     opts.Logger,
		sleep:      opts.Sleep,
		now:        opts.Now,
	}
	if e.batchDelay < 0 {
		e.batchDelay = 0
	}
	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.sleep == nil {
		e.sleep = shared.Sleep
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Transfer recreates src on dest.
//
// Playlist creation and batch-add failures abort the transfer with [shared.ErrTransferFailed]; anything already
// created or added is left in place. Search failures only affect the track being searched.
func (e *Engine) Transfer(ctx context.Context, src *models.Playlist, dest services.Adapter, reporter ProgressReporter) (*TransferResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source playlist is nil", shared.ErrInvalidInput)
	}
	if dest == nil {
		return nil, fmt.Errorf("%w: destination adapter", shared.ErrMissingArgument)
	}
	if reporter == nil {
		reporter = NopReporter
	}

	logger := shared.WithLogger(e.logger, "playlist", src.Name, "dest", dest.Platform())
	result := &TransferResult{
		Source:       src,
		Destination:  dest.Platform(),
		PlaylistName: src.Name,
		Description:  services.TruncateDescription(src.Description, dest.DescriptionLimit()),
		StartedAt:    e.now(),
	}

	playlistID, err := dest.CreatePlaylist(ctx, src.Name, result.Description)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist on %s: %w", shared.ErrTransferFailed, dest.Name(), err)
	}
	result.PlaylistID = playlistID
	logger.Info("created destination playlist", "id", playlistID)

	total := src.TotalTracks()
	result.Matches = make([]TrackMatch, 0, total)

	for i, track := range src.Tracks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		reporter.Report(searchingUpdate(i, total, track))

		m := e.match(ctx, dest, track)
		if m.Err != nil {
			logger.Warn("search failed", "track", track.Name, "artist", track.PrimaryArtist(), "err", m.Err)
		}

		result.Matches = append(result.Matches, m)
		if m.Found {
			result.MatchedIDs = append(result.MatchedIDs, m.DestinationID)
		} else {
			result.NotFound = append(result.NotFound, track)
		}
	}

	if err := e.addMatches(ctx, dest, result, reporter); err != nil {
		return result, err
	}

	for _, tr := range result.NotFound {
		logger.Warn("track not found", "track", tr.Name, "artist", tr.PrimaryArtist())
	}

	result.FinishedAt = e.now()
	reporter.Report(completeUpdate(total))
	logger.Info("transfer complete", "matched", len(result.MatchedIDs), "not_found", len(result.NotFound), "batches", result.Batches)
	return result, nil
}

func (e *Engine) addMatches(ctx context.Context, dest services.Adapter, result *TransferResult, reporter ProgressReporter) error {
	ids := result.MatchedIDs
	matched := len(ids)
	size := max(dest.BatchSize(), 1)

	for start := 0; start < matched; start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+size, matched)
		reporter.Report(addingUpdate(start, end, matched))

		if err := dest.AddTracksBatch(ctx, result.PlaylistID, ids[start:end]); err != nil {
			return fmt.Errorf("%w: add tracks %d-%d of %d: %w", shared.ErrTransferFailed, start+1, end, matched, err)
		}
		result.TracksAdded += end - start
		result.Batches++

		if end < matched {
			if err := e.sleep(ctx, e.batchDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// match consults the cache before searching the destination and records new hits.
func (e *Engine) match(ctx context.Context, dest services.Adapter, track models.Track) TrackMatch {
	m := TrackMatch{Track: track}
	key := track.Key()

	if e.cache != nil {
		if id, ok, err := e.cache.LookupMatch(ctx, dest.Platform(), key); err == nil && ok {
			m.DestinationID, m.Found, m.Cached = id, true, true
			return m
		}
	}

	id, found, err := dest.SearchTrack(ctx, track)
	if err != nil {
		m.Err = err
		return m
	}
	if !found {
		return m
	}

	m.DestinationID, m.Found = id, true
	if e.cache != nil {
		if err := e.cache.StoreMatch(ctx, dest.Platform(), key, id); err != nil {
			e.logger.Debug("match cache store failed", "err", err)
		}
	}
	return m
}
