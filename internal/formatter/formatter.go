// package formatter renders transfer reports as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/porter/internal/shared"
	"github.com/desertthunder/porter/internal/tasks"
)

// Format is a report output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ReportToCSV writes one row per source track with columns:
// Status, Track, Artists, Album, Duration, DestinationID, Cached, Error
func ReportToCSV(result *tasks.TransferResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Status", "Track", "Artists", "Album", "Duration", "DestinationID", "Cached", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range result.Matches {
		errText := ""
		if m.Err != nil {
			errText = m.Err.Error()
		}
		record := []string{
			matchStatus(m),
			m.Track.Name,
			m.Track.ArtistNames(),
			m.Track.Album.Name,
			m.Track.FormattedDuration(),
			m.DestinationID,
			strconv.FormatBool(m.Cached),
			errText,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown renders a summary followed by matched and not-found track lists.
func ReportToMarkdown(result *tasks.TransferResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", result.PlaylistName)
	if result.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", result.Description)
	}

	fmt.Fprintf(&buf, "**Route**: %s → %s\n", sourceName(result), result.Destination.DisplayName())
	fmt.Fprintf(&buf, "**Playlist ID**: `%s`\n", result.PlaylistID)
	fmt.Fprintf(&buf, "**Matched**: %d/%d (%.1f%%)\n", len(result.MatchedIDs), result.Total(), result.MatchPercentage())
	fmt.Fprintf(&buf, "**Added**: %d in %d batches\n", result.TracksAdded, result.Batches)
	fmt.Fprintf(&buf, "**Duration**: %s\n\n", result.Duration().Round(time.Millisecond))

	buf.WriteString("## Matched\n\n")
	n := 0
	for _, m := range result.Matches {
		if !m.Found {
			continue
		}
		n++
		cached := ""
		if m.Cached {
			cached = " _(cached)_"
		}
		fmt.Fprintf(&buf, "%d. %s - %s [%s]%s\n", n, m.Track.ArtistNames(), m.Track.Name, m.Track.FormattedDuration(), cached)
	}
	if n == 0 {
		buf.WriteString("_None_\n")
	}

	if len(result.NotFound) > 0 {
		buf.WriteString("\n## Not Found\n\n")
		for _, t := range result.NotFound {
			albumPart := ""
			if t.Album.Name != "" {
				albumPart = fmt.Sprintf(" (%s)", t.Album.Name)
			}
			fmt.Fprintf(&buf, "- %s - %s%s\n", t.ArtistNames(), t.Name, albumPart)
		}
	}

	return buf.Bytes(), nil
}

// ReportToText renders the report as plain text.
func ReportToText(result *tasks.TransferResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", result.PlaylistName)
	fmt.Fprintf(&buf, "Route: %s -> %s\n", sourceName(result), result.Destination.DisplayName())
	fmt.Fprintf(&buf, "Playlist ID: %s\n", result.PlaylistID)
	fmt.Fprintf(&buf, "Matched: %d/%d (%.1f%%)\n\n", len(result.MatchedIDs), result.Total(), result.MatchPercentage())

	for i, m := range result.Matches {
		fmt.Fprintf(&buf, "%d. [%s] %s - %s\n", i+1, matchStatus(m), m.Track.ArtistNames(), m.Track.Name)
	}

	return buf.Bytes(), nil
}

type jsonTrack struct {
	Name          string `json:"name"`
	Artists       string `json:"artists"`
	Album         string `json:"album,omitempty"`
	DurationMS    int    `json:"duration_ms"`
	Status        string `json:"status"`
	DestinationID string `json:"destination_id,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
	Error         string `json:"error,omitempty"`
}

type jsonReport struct {
	Playlist        string      `json:"playlist"`
	Description     string      `json:"description,omitempty"`
	Source          string      `json:"source"`
	Destination     string      `json:"destination"`
	PlaylistID      string      `json:"playlist_id"`
	Total           int         `json:"total"`
	Matched         int         `json:"matched"`
	NotFound        int         `json:"not_found"`
	MatchPercentage float64     `json:"match_percentage"`
	TracksAdded     int         `json:"tracks_added"`
	Batches         int         `json:"batches"`
	StartedAt       time.Time   `json:"started_at"`
	FinishedAt      time.Time   `json:"finished_at"`
	Tracks          []jsonTrack `json:"tracks"`
}

// ReportToJSON renders the report as indented JSON.
func ReportToJSON(result *tasks.TransferResult) ([]byte, error) {
	report := jsonReport{
		Playlist:        result.PlaylistName,
		Description:     result.Description,
		Source:          sourceName(result),
		Destination:     string(result.Destination),
		PlaylistID:      result.PlaylistID,
		Total:           result.Total(),
		Matched:         len(result.MatchedIDs),
		NotFound:        len(result.NotFound),
		MatchPercentage: result.MatchPercentage(),
		TracksAdded:     result.TracksAdded,
		Batches:         result.Batches,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		Tracks:          make([]jsonTrack, 0, len(result.Matches)),
	}
	if result.Source != nil {
		report.Source = string(result.Source.Source)
	}

	for _, m := range result.Matches {
		t := jsonTrack{
			Name:          m.Track.Name,
			Artists:       m.Track.ArtistNames(),
			Album:         m.Track.Album.Name,
			DurationMS:    m.Track.DurationMS,
			Status:        matchStatus(m),
			DestinationID: m.DestinationID,
			Cached:        m.Cached,
		}
		if m.Err != nil {
			t.Error = m.Err.Error()
		}
		report.Tracks = append(report.Tracks, t)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// Render produces the report bytes for format.
func Render(format Format, result *tasks.TransferResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil transfer result", shared.ErrMissingArgument)
	}

	switch format {
	case FormatCSV:
		return ReportToCSV(result)
	case FormatMarkdown:
		return ReportToMarkdown(result)
	case FormatText:
		return ReportToText(result)
	case FormatJSON:
		return ReportToJSON(result)
	}
	return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
}

// WriteTo renders the report into w.
func WriteTo(w io.Writer, format Format, result *tasks.TransferResult) error {
	data, err := Render(format, result)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReport writes the report to path and returns the path written.
//
// An empty path defaults to {playlist name}_report.{ext} in the working directory.
func WriteReport(path string, format Format, result *tasks.TransferResult) (string, error) {
	data, err := Render(format, result)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = DefaultReportPath(result.PlaylistName, format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

// DefaultReportPath builds a filesystem-safe report filename from a playlist name.
func DefaultReportPath(name string, format Format) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if base == "" {
		base = "playlist"
	}
	return fmt.Sprintf("%s_report.%s", base, format.Extension())
}

func matchStatus(m tasks.TrackMatch) string {
	if m.Found {
		return "matched"
	}
	return "not_found"
}

func sourceName(result *tasks.TransferResult) string {
	if result.Source == nil {
		return "unknown"
	}
	return result.Source.Source.DisplayName()
}
