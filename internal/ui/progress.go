package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/porter/internal/tasks"
)

const (
	progressBuffer = 64
	maxBarWidth    = 72
)

// TransferFunc runs a transfer, reporting to reporter.
type TransferFunc func(ctx context.Context, reporter tasks.ProgressReporter) (*tasks.TransferResult, error)

// ProgressModel renders [tasks.ProgressUpdate]s read from a channel as a progress bar.
//
// It finishes when the channel closes and the outcome arrives on done.
type ProgressModel struct {
	title   string
	bar     progress.Model
	updates <-chan tasks.ProgressUpdate
	done    <-chan transferOutcome
	last    tasks.ProgressUpdate
	seen    int
	result  *tasks.TransferResult
	err     error
	over    bool
}

// NewProgressModel creates a model that drains updates and then waits on done.
func NewProgressModel(title string, updates <-chan tasks.ProgressUpdate, done <-chan transferOutcome) ProgressModel {
	return ProgressModel{
		title:   title,
		bar:     progress.New(progress.WithGradient(barStart, barEnd)),
		updates: updates,
		done:    done,
	}
}

// startTransfer runs fn in a goroutine and returns the channels a [ProgressModel] consumes.
//
// The outcome is buffered before updates is closed so the model always finds it.
func startTransfer(ctx context.Context, fn TransferFunc) (<-chan tasks.ProgressUpdate, <-chan transferOutcome) {
	updates := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan transferOutcome, 1)

	go func() {
		result, err := fn(ctx, tasks.ChannelReporter(updates))
		done <- transferOutcome{result: result, err: err}
		close(updates)
	}()

	return updates, done
}

// Init starts listening for updates.
func (m ProgressModel) Init() tea.Cmd {
	return m.wait()
}

// Update handles progress messages, window resizes and ctrl+c.
func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.last = msg.data.(tasks.ProgressUpdate)
			m.seen++
			return m, m.wait()
		case MsgTransferComplete:
			outcome := msg.data.(transferOutcome)
			m.result, m.err, m.over = outcome.result, outcome.err, true
			if m.err == nil && m.last.Phase != tasks.Complete {
				m.last = tasks.ProgressUpdate{Phase: tasks.Complete, Status: "Playlist conversion complete!", Percent: 100}
			}
			return m, nil
		}
	}
	return m, nil
}

// Done reports whether the transfer has finished.
func (m ProgressModel) Done() bool {
	return m.over
}

// Result returns the transfer outcome once [ProgressModel.Done] is true.
func (m ProgressModel) Result() (*tasks.TransferResult, error) {
	return m.result, m.err
}

// View renders the title, bar, status line and current track.
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.last.Percent / 100))
	b.WriteString("\n\n")

	status := m.last.Status
	if status == "" {
		status = "Starting..."
	}
	b.WriteString(phaseStyle(m.last.Phase).Render(status))

	if m.last.Phase == tasks.Searching && m.last.Total > 0 {
		b.WriteString(styles.help.Render(fmt.Sprintf("  (%d/%d)", m.last.Step, m.last.Total)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m ProgressModel) wait() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		if update, ok := <-updates; ok {
			return progressUpdateMsg(update)
		}
		outcome := <-done
		return transferCompleteMsg(outcome.result, outcome.err)
	}
}

// progressProgram wraps [ProgressModel] as a standalone [tea.Model].
type progressProgram struct {
	progress ProgressModel
	cancel   context.CancelFunc
}

func (p progressProgram) Init() tea.Cmd {
	return p.progress.Init()
}

func (p progressProgram) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		p.cancel()
		return p, nil
	}

	var cmd tea.Cmd
	p.progress, cmd = p.progress.Update(msg)
	if p.progress.Done() {
		return p, tea.Quit
	}
	return p, cmd
}

func (p progressProgram) View() string {
	return p.progress.View()
}

// RunProgress runs fn while drawing a progress bar, and returns its result.
//
// ctrl+c cancels ctx for fn; the view stays up until fn returns.
func RunProgress(ctx context.Context, title string, fn TransferFunc, opts ...tea.ProgramOption) (*tasks.TransferResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, done := startTransfer(ctx, fn)
	model := progressProgram{progress: NewProgressModel(title, updates, done), cancel: cancel}

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("progress view failed: %w", err)
	}
	return final.(progressProgram).progress.Result()
}
