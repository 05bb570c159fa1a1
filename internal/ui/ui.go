package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PreviewView ViewState = iota
	ConfirmView
	TransferView
	ResultView
)

// maxNotFoundShown caps the unmatched tracks listed on the result view.
const maxNotFoundShown = 15

// Model walks a loaded playlist through preview, confirmation, transfer and result.
type Model struct {
	ctx         context.Context
	cancel      context.CancelFunc
	view        ViewState
	playlist    *models.Playlist
	destination models.Platform
	run         TransferFunc
	width       int
	height      int
	tracks      list.Model
	progress    ProgressModel
	result      *tasks.TransferResult
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates the TUI for transferring playlist to destination with run.
func NewModel(ctx context.Context, playlist *models.Playlist, destination models.Platform, run TransferFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)

	tracks := list.New(trackItems(playlist.Tracks), list.NewDefaultDelegate(), 0, 0)
	tracks.Title = fmt.Sprintf("%s (%d tracks)", playlist.Name, playlist.TotalTracks())
	tracks.SetShowHelp(false)

	return &Model{
		ctx:         ctx,
		cancel:      cancel,
		view:        PreviewView,
		playlist:    playlist,
		destination: destination,
		run:         run,
		tracks:      tracks,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init does nothing until the user confirms.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.tracks.SetSize(msg.Width-4, msg.Height-6)
		m.progress, _ = m.progress.Update(msg)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case TransferView:
			if key.Matches(msg, m.keys.quit) {
				m.cancel()
			}
			return m, nil
		case ResultView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		if m.progress.Done() {
			m.result, m.err = m.progress.Result()
			m.view = ResultView
			return m, nil
		}
		return m, cmd
	}

	return m, nil
}

// Result returns the transfer outcome, if the transfer ran.
func (m *Model) Result() (*tasks.TransferResult, error) {
	return m.result, m.err
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case TransferView:
		return m.progress.View() + "\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tracks.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		return m, m.startTransfer()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PreviewView
	}
	return m, nil
}

func (m *Model) startTransfer() tea.Cmd {
	m.view = TransferView

	updates, done := startTransfer(m.ctx, m.run)
	title := fmt.Sprintf("Transferring '%s' to %s", m.playlist.Name, m.destination.DisplayName())
	m.progress = NewProgressModel(title, updates, done)
	if m.width > 0 {
		m.progress, _ = m.progress.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	}
	return m.progress.Init()
}

func (m *Model) renderPreview() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.tracks.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Transfer '%s' to %s?", m.playlist.Name, m.destination.DisplayName()))
	info := fmt.Sprintf("Source: %s\nTracks: %d\nLength: %s\n",
		m.playlist.Source.DisplayName(), m.playlist.TotalTracks(), m.playlist.Duration())

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Transfer failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	var b strings.Builder
	b.WriteString(styles.ok.Render("✓ Transfer Complete!"))
	fmt.Fprintf(&b, "\n\nPlaylist: %s\nDestination: %s (%s)\nMatched: %d/%d (%.1f%%)\n",
		m.result.PlaylistName,
		m.result.Destination.DisplayName(),
		m.result.PlaylistID,
		len(m.result.MatchedIDs),
		m.result.Total(),
		m.result.MatchPercentage(),
	)

	if n := len(m.result.NotFound); n > 0 {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(fmt.Sprintf("Could not find %d tracks:", n)))
		for i, t := range m.result.NotFound {
			if i == maxNotFoundShown {
				fmt.Fprintf(&b, "\n  ... and %d more", n-maxNotFoundShown)
				break
			}
			fmt.Fprintf(&b, "\n  • %s - %s", t.PrimaryArtist(), t.Name)
		}
		b.WriteString("\n")
	}

	return fmt.Sprintf("%s\n%s", b.String(), helpView)
}

// Run shows the interactive transfer flow and returns the transfer outcome.
//
// A nil result with a nil error means the user quit before transferring.
func Run(ctx context.Context, playlist *models.Playlist, destination models.Platform, run TransferFunc, opts ...tea.ProgramOption) (*tasks.TransferResult, error) {
	m := NewModel(ctx, playlist, destination, run)
	defer m.cancel()

	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("TUI failed: %w", err)
	}
	return final.(*Model).Result()
}
