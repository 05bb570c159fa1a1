package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/tasks"
	th "github.com/desertthunder/porter/internal/testing"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testPlaylist(t *testing.T, n int) *models.Playlist {
	return &models.Playlist{Name: "Road Trip", Tracks: th.MakeTracks(t, n), Source: models.PlatformSpotify}
}

func TestProgressModel(t *testing.T) {
	t.Run("DrainsUpdatesThenCompletes", func(t *testing.T) {
		updates := make(chan tasks.ProgressUpdate, 2)
		done := make(chan transferOutcome, 1)

		updates <- tasks.ProgressUpdate{Phase: tasks.Searching, Status: "Searching for T1 by Artist1...", Percent: 0, Step: 1, Total: 2}
		updates <- tasks.ProgressUpdate{Phase: tasks.Adding, Status: "Adding tracks 1-2 of 2...", Percent: 50}
		done <- transferOutcome{result: &tasks.TransferResult{PlaylistID: "p1"}}
		close(updates)

		m := NewProgressModel("Transferring", updates, done)
		cmd := m.Init()

		for range 3 {
			if cmd == nil {
				t.Fatal("expected a pending command")
			}
			m, cmd = m.Update(cmd())
		}

		if !m.Done() {
			t.Fatal("expected model to be done")
		}
		if m.seen != 2 {
			t.Errorf("expected 2 updates seen, got %d", m.seen)
		}

		result, err := m.Result()
		if err != nil || result.PlaylistID != "p1" {
			t.Errorf("unexpected outcome: %v, %v", result, err)
		}
		if m.last.Percent != 100 {
			t.Errorf("expected bar to finish at 100, got %v", m.last.Percent)
		}
	})

	t.Run("View", func(t *testing.T) {
		m := NewProgressModel("Transferring", nil, nil)
		if !strings.Contains(m.View(), "Starting...") {
			t.Errorf("expected idle status, got:\n%s", m.View())
		}

		m, _ = m.Update(progressUpdateMsg(tasks.ProgressUpdate{
			Phase: tasks.Searching, Status: "Searching for T3 by Artist3...", Percent: 10, Step: 3, Total: 15,
		}))

		view := m.View()
		for _, want := range []string{"Transferring", "Searching for T3 by Artist3...", "(3/15)"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("FailureKeepsError", func(t *testing.T) {
		m := NewProgressModel("Transferring", nil, nil)
		m, _ = m.Update(transferCompleteMsg(nil, errors.New("boom")))

		if _, err := m.Result(); err == nil {
			t.Error("expected error")
		}
		if m.last.Phase == tasks.Complete {
			t.Error("failed transfer should not show completion")
		}
	})

	t.Run("WindowSize", func(t *testing.T) {
		m := NewProgressModel("Transferring", nil, nil)
		m, _ = m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
		if m.bar.Width != maxBarWidth {
			t.Errorf("expected bar width capped at %d, got %d", maxBarWidth, m.bar.Width)
		}
	})
}

func TestStartTransfer(t *testing.T) {
	updates, done := startTransfer(context.Background(), func(_ context.Context, r tasks.ProgressReporter) (*tasks.TransferResult, error) {
		r.Report(tasks.ProgressUpdate{Phase: tasks.Complete, Percent: 100})
		return &tasks.TransferResult{PlaylistID: "p1"}, nil
	})

	var got []tasks.ProgressUpdate
	for u := range updates {
		got = append(got, u)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 update, got %d", len(got))
	}

	select {
	case outcome := <-done:
		if outcome.result.PlaylistID != "p1" {
			t.Errorf("unexpected result %+v", outcome.result)
		}
	default:
		t.Fatal("outcome must be available once updates is closed")
	}
}

func TestModel(t *testing.T) {
	t.Run("PreviewAndConfirm", func(t *testing.T) {
		m := NewModel(context.Background(), testPlaylist(t, 3), models.PlatformApple, nil)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

		if !strings.Contains(m.View(), "Road Trip (3 tracks)") {
			t.Errorf("expected preview title, got:\n%s", m.View())
		}

		m.Update(keyPress("enter"))
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Transfer 'Road Trip' to Apple Music?") {
			t.Errorf("unexpected confirm view:\n%s", m.View())
		}

		m.Update(keyPress("n"))
		if m.view != PreviewView {
			t.Errorf("expected to return to preview, got %v", m.view)
		}
	})

	t.Run("QuitFromPreview", func(t *testing.T) {
		m := NewModel(context.Background(), testPlaylist(t, 1), models.PlatformApple, nil)
		_, cmd := m.Update(keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if m.ctx.Err() == nil {
			t.Error("quitting should cancel the context")
		}
	})

	t.Run("FullTransfer", func(t *testing.T) {
		playlist := testPlaylist(t, 5)
		dest := &th.FakeAdapter{
			Dest:    models.PlatformApple,
			Batch:   2,
			Matches: map[string]string{"T1": "a1", "T2": "a2", "T4": "a4"},
		}
		engine := tasks.NewEngine(tasks.EngineOpts{
			Sleep: func(context.Context, time.Duration) error { return nil },
		})
		run := func(ctx context.Context, r tasks.ProgressReporter) (*tasks.TransferResult, error) {
			return engine.Transfer(ctx, playlist, dest, r)
		}

		m := NewModel(context.Background(), playlist, models.PlatformApple, run)
		m.Update(keyPress("enter"))
		_, cmd := m.Update(keyPress("y"))
		if m.view != TransferView {
			t.Fatalf("expected transfer view, got %v", m.view)
		}

		for steps := 0; cmd != nil; steps++ {
			if steps > 100 {
				t.Fatal("transfer did not finish")
			}
			_, cmd = m.Update(cmd())
		}

		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}

		result, err := m.Result()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.MatchedIDs) != 3 || len(result.NotFound) != 2 {
			t.Errorf("unexpected result: matched %d, not found %d", len(result.MatchedIDs), len(result.NotFound))
		}

		view := m.View()
		for _, want := range []string{"Transfer Complete", "Matched: 3/5 (60.0%)", "Could not find 2 tracks", "Artist3 - T3"} {
			if !strings.Contains(view, want) {
				t.Errorf("result view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("TransferFailure", func(t *testing.T) {
		playlist := testPlaylist(t, 2)
		run := func(context.Context, tasks.ProgressReporter) (*tasks.TransferResult, error) {
			return nil, errors.New("create failed")
		}

		m := NewModel(context.Background(), playlist, models.PlatformSpotify, run)
		m.Update(keyPress("enter"))
		_, cmd := m.Update(keyPress("y"))
		for cmd != nil {
			_, cmd = m.Update(cmd())
		}

		if !strings.Contains(m.View(), "Transfer failed: create failed") {
			t.Errorf("expected failure view, got:\n%s", m.View())
		}
	})

	t.Run("CancelDuringTransfer", func(t *testing.T) {
		playlist := testPlaylist(t, 1)
		started := make(chan struct{})
		run := func(ctx context.Context, _ tasks.ProgressReporter) (*tasks.TransferResult, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}

		m := NewModel(context.Background(), playlist, models.PlatformSpotify, run)
		m.Update(keyPress("enter"))
		_, cmd := m.Update(keyPress("y"))
		<-started

		m.Update(keyPress("ctrl+c"))
		for cmd != nil {
			_, cmd = m.Update(cmd())
		}

		if _, err := m.Result(); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
