// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/porter/internal/models"
)

// Call records one adapter invocation.
type Call struct {
	Method string
	Args   []string
}

// FakeAdapter is a test double for [services.Adapter].
//
// Matches maps a track name to its destination id; tracks missing from the map are not found.
// SearchErrs and BatchErrs inject failures per track name and per 1-based batch number.
type FakeAdapter struct {
	Dest        models.Platform
	Batch       int
	DescLimit   int
	Matches     map[string]string
	SearchErrs  map[string]error
	BatchErrs   map[int]error
	CreateErr   error
	PlaylistID  string
	mu          sync.Mutex
	Calls       []Call
	Batches     [][]string
	Description string
}

func (f *FakeAdapter) record(method string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: method, Args: args})
}

func (f *FakeAdapter) Name() string { return f.Platform().DisplayName() }

func (f *FakeAdapter) Platform() models.Platform {
	if f.Dest == "" {
		return models.PlatformSpotify
	}
	return f.Dest
}

func (f *FakeAdapter) BatchSize() int {
	if f.Batch == 0 {
		return 100
	}
	return f.Batch
}

func (f *FakeAdapter) DescriptionLimit() int {
	if f.DescLimit == 0 {
		return 300
	}
	return f.DescLimit
}

func (f *FakeAdapter) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	f.record("CreatePlaylist", name, description)
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.Description = description
	if f.PlaylistID == "" {
		return "fake-playlist", nil
	}
	return f.PlaylistID, nil
}

func (f *FakeAdapter) SearchTrack(ctx context.Context, track models.Track) (string, bool, error) {
	f.record("SearchTrack", track.Name, track.PrimaryArtist())
	if err, ok := f.SearchErrs[track.Name]; ok {
		return "", false, err
	}
	id, ok := f.Matches[track.Name]
	return id, ok, nil
}

func (f *FakeAdapter) AddTracksBatch(ctx context.Context, playlistID string, ids []string) error {
	f.record("AddTracksBatch", append([]string{playlistID}, ids...)...)

	f.mu.Lock()
	f.Batches = append(f.Batches, append([]string(nil), ids...))
	n := len(f.Batches)
	f.mu.Unlock()

	if err, ok := f.BatchErrs[n]; ok {
		return err
	}
	return nil
}

// CallCount returns how many times method was invoked.
func (f *FakeAdapter) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// MakeTracks builds n valid tracks named "T1".."Tn" by "Artist1".."Artistn".
func MakeTracks(t *testing.T, n int) []models.Track {
	t.Helper()
	tracks := make([]models.Track, n)
	for i := range n {
		tr, err := models.NewTrack(fmt.Sprintf("T%d", i+1), []models.Artist{{Name: fmt.Sprintf("Artist%d", i+1)}}, "", 180000)
		if err != nil {
			t.Fatalf("failed to build track: %v", err)
		}
		tracks[i] = tr
	}
	return tracks
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
