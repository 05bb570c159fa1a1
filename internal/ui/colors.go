package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/porter/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF5F87", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	muted lipgloss.Style
}

// NewPalette builds a [Palette] from title, ok, error, warning and help colors.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		muted: NewStyle(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

const (
	barStart = "#7D56F4"
	barEnd   = "#04B575"
)

// phaseStyle colors the status line for a transfer phase.
func phaseStyle(p tasks.Phase) lipgloss.Style {
	switch p {
	case tasks.Adding:
		return styles.warn
	case tasks.Complete:
		return styles.ok
	default:
		return styles.muted
	}
}
